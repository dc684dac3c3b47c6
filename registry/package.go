package registry

import (
	"slices"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
)

// PackageRegistry owns the canonical packages, keyed by name@version.
type PackageRegistry struct {
	packages map[string]*model.Package
	byName   map[string][]string
	logger   *zap.Logger
}

// NewPackageRegistry creates an empty registry.
func NewPackageRegistry(opts ...Option) *PackageRegistry {
	o := newOptions(opts)
	return &PackageRegistry{
		packages: map[string]*model.Package{},
		byName:   map[string][]string{},
		logger:   o.logger,
	}
}

// Add inserts pkg, or merges it into the registered package with the same identity, and
// returns the registered instance. Invalid input is ignored and yields nil.
func (r *PackageRegistry) Add(pkg *model.Package) *model.Package {
	if !pkg.Valid() {
		r.logger.Debug("ignoring invalid package")
		return nil
	}
	if existing := r.Find(pkg.Name, pkg.Version); existing != nil {
		existing.Merge(pkg)
		return existing
	}
	id := pkg.ID()
	r.packages[id] = pkg
	r.byName[pkg.Name] = append(r.byName[pkg.Name], id)
	return pkg
}

// Find returns the registered package identity-equal to name and version.
func (r *PackageRegistry) Find(name, version string) *model.Package {
	candidate := model.NewPackage(name, version)
	if p, ok := r.packages[candidate.ID()]; ok {
		return p
	}
	for _, id := range r.byName[candidate.Name] {
		if p := r.packages[id]; p.Equal(candidate) {
			return p
		}
	}
	return nil
}

// Get returns the package registered under id, or an identity-equal one.
func (r *PackageRegistry) Get(id string) *model.Package {
	if p, ok := r.packages[id]; ok {
		return p
	}
	name, version, ok := splitPackageID(id)
	if !ok {
		return nil
	}
	return r.Find(name, version)
}

// Contains reports whether id resolves to a registered package.
func (r *PackageRegistry) Contains(id string) bool {
	return r.Get(id) != nil
}

// Remove deletes the package id resolves to.
func (r *PackageRegistry) Remove(id string) bool {
	p := r.Get(id)
	if p == nil {
		return false
	}
	key := p.ID()
	delete(r.packages, key)
	r.byName[p.Name] = lo.Without(r.byName[p.Name], key)
	if len(r.byName[p.Name]) == 0 {
		delete(r.byName, p.Name)
	}
	return true
}

// Len returns the number of registered packages.
func (r *PackageRegistry) Len() int {
	return len(r.packages)
}

// List returns every package ordered by name then version.
func (r *PackageRegistry) List() []*model.Package {
	list := lo.Values(r.packages)
	slices.SortFunc(list, func(a, b *model.Package) int { return a.Compare(b) })
	return list
}

// splitPackageID splits name@version on the last "@", so scoped names like @types/node
// keep their leading "@".
func splitPackageID(id string) (string, string, bool) {
	i := strings.LastIndex(id, "@")
	if i <= 0 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}
