package registry

import (
	"slices"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
)

// VulnerabilityRegistry owns one canonical vulnerability per cluster of aliased ids.
// Canonical ids are chosen first writer wins and an alias is never re-pointed.
type VulnerabilityRegistry struct {
	vulns   map[string]*model.Vulnerability
	aliases map[string]string // alias -> canonical id
	logger  *zap.Logger
}

// NewVulnerabilityRegistry creates an empty registry.
func NewVulnerabilityRegistry(opts ...Option) *VulnerabilityRegistry {
	o := newOptions(opts)
	return &VulnerabilityRegistry{
		vulns:   map[string]*model.Vulnerability{},
		aliases: map[string]string{},
		logger:  o.logger,
	}
}

// Add registers vuln and returns the canonical instance it now belongs to, which is not
// vuln itself when its id or one of its aliases was already known. Invalid input is
// ignored and yields nil.
func (r *VulnerabilityRegistry) Add(vuln *model.Vulnerability) *model.Vulnerability {
	if !vuln.Valid() {
		r.logger.Debug("ignoring invalid vulnerability")
		return nil
	}

	if existing, ok := r.vulns[vuln.ID]; ok {
		return r.mergeInto(existing, vuln)
	}
	if canonical, ok := r.aliases[vuln.ID]; ok {
		return r.mergeInto(r.vulns[canonical], vuln)
	}
	for _, alias := range vuln.Aliases {
		if canonical, ok := r.resolve(alias); ok {
			r.registerAlias(vuln.ID, canonical)
			return r.mergeInto(r.vulns[canonical], vuln)
		}
	}

	r.vulns[vuln.ID] = vuln
	r.syncAliases(vuln)
	return vuln
}

func (r *VulnerabilityRegistry) mergeInto(existing, vuln *model.Vulnerability) *model.Vulnerability {
	if existing != vuln {
		existing.Merge(vuln)
	}
	r.syncAliases(existing)
	return existing
}

// syncAliases indexes the entity's aliases and drops from it those owned by another
// cluster, so the entity and the index never disagree.
func (r *VulnerabilityRegistry) syncAliases(vuln *model.Vulnerability) {
	for _, alias := range vuln.Aliases {
		r.registerAlias(alias, vuln.ID)
	}
	vuln.Aliases = lo.Filter(vuln.Aliases, func(alias string, _ int) bool {
		return r.aliases[alias] == vuln.ID
	})
}

func (r *VulnerabilityRegistry) registerAlias(alias, canonical string) {
	alias = strings.TrimSpace(alias)
	if alias == "" || alias == canonical {
		return
	}
	if _, ok := r.vulns[alias]; ok {
		return
	}
	if owner, ok := r.aliases[alias]; ok {
		if owner != canonical {
			r.logger.Debug("alias already owned by another vulnerability",
				zap.String("alias", alias), zap.String("owner", owner), zap.String("candidate", canonical))
		}
		return
	}
	r.aliases[alias] = canonical
}

func (r *VulnerabilityRegistry) resolve(id string) (string, bool) {
	if _, ok := r.vulns[id]; ok {
		return id, true
	}
	canonical, ok := r.aliases[id]
	return canonical, ok
}

// ResolveID returns the canonical id of id and whether id is an alias. Unknown ids
// resolve to "".
func (r *VulnerabilityRegistry) ResolveID(id string) (canonical string, isAlias bool) {
	if _, ok := r.vulns[id]; ok {
		return id, false
	}
	if canonical, ok := r.aliases[id]; ok {
		return canonical, true
	}
	return "", false
}

// Get returns the canonical vulnerability for a canonical id or an alias.
func (r *VulnerabilityRegistry) Get(id string) *model.Vulnerability {
	canonical, ok := r.resolve(id)
	if !ok {
		return nil
	}
	return r.vulns[canonical]
}

// Contains reports whether id is a known canonical id or alias.
func (r *VulnerabilityRegistry) Contains(id string) bool {
	_, ok := r.resolve(id)
	return ok
}

// Remove deletes the vulnerability id resolves to, with every alias pointing to it.
func (r *VulnerabilityRegistry) Remove(id string) bool {
	canonical, ok := r.resolve(id)
	if !ok {
		return false
	}
	delete(r.vulns, canonical)
	for alias, owner := range r.aliases {
		if owner == canonical {
			delete(r.aliases, alias)
		}
	}
	return true
}

// Len returns the number of canonical vulnerabilities.
func (r *VulnerabilityRegistry) Len() int {
	return len(r.vulns)
}

// List returns every canonical vulnerability ordered by id.
func (r *VulnerabilityRegistry) List() []*model.Vulnerability {
	list := lo.Values(r.vulns)
	slices.SortFunc(list, func(a, b *model.Vulnerability) int { return strings.Compare(a.ID, b.ID) })
	return list
}

// Prune removes the vulnerabilities none of whose packages is registered in packages, and
// returns their ids.
func (r *VulnerabilityRegistry) Prune(packages *PackageRegistry) []string {
	var removed []string
	for _, vuln := range r.List() {
		if lo.SomeBy(vuln.Packages, packages.Contains) {
			continue
		}
		r.Remove(vuln.ID)
		removed = append(removed, vuln.ID)
	}
	return removed
}
