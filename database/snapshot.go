package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arangodb/go-driver/v2/arangodb"

	vulnevents "github.com/savoirfairelinux/vulnscout-sub000/events/modules/vulnerabilities"
	"github.com/savoirfairelinux/vulnscout-sub000/model"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
	"github.com/savoirfairelinux/vulnscout-sub000/util"
)

const upsertQuery = `
	FOR doc IN @docs
		UPSERT { _key: doc._key }
		INSERT doc
		REPLACE doc
		IN @@collection
`

const removeStaleQuery = `
	FOR d IN @@collection
		FILTER d._key NOT IN @keys
		REMOVE d IN @@collection
`

// toDocument flattens a record into an ArangoDB document keyed by its sanitized id.
func toDocument(id string, record interface{}) (map[string]interface{}, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	doc := map[string]interface{}{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}
	doc["_key"] = util.SanitizeKey(id)
	return doc, nil
}

func toDocuments[T any](records map[string]T) ([]map[string]interface{}, error) {
	docs := make([]map[string]interface{}, 0, len(records))
	for id, record := range records {
		doc, err := toDocument(id, record)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s: %w", id, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c DBConnection) upsert(ctx context.Context, collection string, docs []map[string]interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	cursor, err := c.Database.Query(ctx, upsertQuery, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"docs":        docs,
			"@collection": collection,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", collection, err)
	}
	return cursor.Close()
}

// removeStale deletes the documents of collection whose key is not in keys.
func (c DBConnection) removeStale(ctx context.Context, collection string, keys []string) error {
	cursor, err := c.Database.Query(ctx, removeStaleQuery, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"keys":        keys,
			"@collection": collection,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to remove stale documents from %s: %w", collection, err)
	}
	return cursor.Close()
}

func documentKeys(docs []map[string]interface{}) []string {
	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		if key, ok := doc["_key"].(string); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// SaveSnapshot makes the collections mirror the snapshot: every record is upserted, then
// documents the snapshot no longer holds are removed.
func (c DBConnection) SaveSnapshot(ctx context.Context, s *registry.Snapshot) error {
	packages, err := toDocuments(s.Packages)
	if err != nil {
		return err
	}
	vulns, err := toDocuments(s.Vulnerabilities)
	if err != nil {
		return err
	}
	assessments, err := toDocuments(s.Assessments)
	if err != nil {
		return err
	}

	for _, batch := range []struct {
		collection string
		docs       []map[string]interface{}
	}{
		{PackageCollection, packages},
		{VulnerabilityCollection, vulns},
		{AssessmentCollection, assessments},
	} {
		if err := c.upsert(ctx, batch.collection, batch.docs); err != nil {
			return err
		}
		if err := c.removeStale(ctx, batch.collection, documentKeys(batch.docs)); err != nil {
			return err
		}
	}
	c.logger().Sugar().Infof("Saved snapshot: %d packages, %d vulnerabilities, %d assessments",
		len(packages), len(vulns), len(assessments))
	return nil
}

func readAll[T any](ctx context.Context, db arangodb.Database, collection string) ([]T, error) {
	cursor, err := db.Query(ctx, `FOR d IN @@collection RETURN d`, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"@collection": collection},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}
	defer cursor.Close()

	var out []T
	for cursor.HasMore() {
		var record T
		if _, err := cursor.ReadDocument(ctx, &record); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", collection, err)
		}
		out = append(out, record)
	}
	return out, nil
}

// LoadSnapshot reads back every package, vulnerability and assessment.
func (c DBConnection) LoadSnapshot(ctx context.Context) (*registry.Snapshot, error) {
	s := &registry.Snapshot{
		Packages:        map[string]*model.Package{},
		Vulnerabilities: map[string]*model.Vulnerability{},
		Assessments:     map[string]*model.VulnAssessment{},
	}

	packages, err := readAll[*model.Package](ctx, c.Database, PackageCollection)
	if err != nil {
		return nil, err
	}
	for _, p := range packages {
		s.Packages[p.ID()] = p
	}

	vulns, err := readAll[*model.Vulnerability](ctx, c.Database, VulnerabilityCollection)
	if err != nil {
		return nil, err
	}
	for _, v := range vulns {
		s.Vulnerabilities[v.ID] = v
	}

	assessments, err := readAll[*model.VulnAssessment](ctx, c.Database, AssessmentCollection)
	if err != nil {
		return nil, err
	}
	for _, a := range assessments {
		s.Assessments[a.ID] = a
	}
	return s, nil
}

// SaveLifecycleEvent records a consumed lifecycle event, once per event id.
func (c DBConnection) SaveLifecycleEvent(ctx context.Context, event vulnevents.LifecycleEvent) error {
	doc, err := toDocument(event.EventID, event)
	if err != nil {
		return fmt.Errorf("failed to convert event %s: %w", event.EventID, err)
	}
	return c.upsert(ctx, LifecycleEventCollection, []map[string]interface{}{doc})
}

// ListLifecycleEvents returns the recorded events of a vulnerability, or of all of them when
// vulnID is empty, oldest first.
func (c DBConnection) ListLifecycleEvents(ctx context.Context, vulnID string) ([]vulnevents.LifecycleEvent, error) {
	cursor, err := c.Database.Query(ctx, `
		FOR e IN lifecycle_event
			FILTER @vuln_id == "" OR e.vuln_id == @vuln_id
			SORT e.assessed_at ASC
			RETURN e
	`, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"vuln_id": vulnID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query lifecycle events: %w", err)
	}
	defer cursor.Close()

	var events []vulnevents.LifecycleEvent
	for cursor.HasMore() {
		var event vulnevents.LifecycleEvent
		if _, err := cursor.ReadDocument(ctx, &event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}
