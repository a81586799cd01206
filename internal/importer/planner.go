package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Plan is the dry-run summary. Its shape is identical whether produced for a
// validate-only invocation or as the first phase of a commit.
type Plan struct {
	Total               int      `json:"total"`
	ValidCount          int      `json:"validCount"`
	InvalidCount        int      `json:"invalidCount"`
	WillCreate          int      `json:"willCreate"`
	WillUpdate          int      `json:"willUpdate"`
	WillDeactivate      int      `json:"willDeactivate"`
	DuplicateSourceURLs []string `json:"duplicateSourceUrls,omitempty"`
}

// deactivationSet maps a brand to the source URLs of its active products
// absent from the file. The commit path applies exactly this set, so what
// was previewed is what gets deactivated.
type deactivationSet map[uuid.UUID][]string

// buildPlan partitions the deduplicated valid rows into creates and updates
// against the existing catalog and, in sync mode, computes the deactivation
// set. It performs reads only, never writes.
//
// Sync deactivation is only computed when the file yielded at least one
// valid row: a fully-invalid or empty upload must not wipe a brand's
// catalog.
func buildPlan(ctx context.Context, store Store, rows []*ValidatedRow, syncMode bool) (*Plan, deactivationSet, error) {
	plan := &Plan{}

	type brandGroup struct {
		id   uuid.UUID
		urls map[string]bool
	}

	// A nil brand ID means a dry run referenced a brand that does not exist
	// yet. Those groups are keyed by slug so two new brands sharing a source
	// URL stay distinct and count as two creates, matching what the commit
	// would do.
	groups := make(map[string]*brandGroup)
	for _, row := range rows {
		key := row.BrandID.String()
		if row.BrandID == uuid.Nil {
			key = "\x00" + row.BrandSlug
		}
		g := groups[key]
		if g == nil {
			g = &brandGroup{id: row.BrandID, urls: make(map[string]bool)}
			groups[key] = g
		}
		g.urls[row.SourceURL] = true
	}

	for _, g := range groups {
		if g.id == uuid.Nil {
			plan.WillCreate += len(g.urls)
			continue
		}

		urls := make([]string, 0, len(g.urls))
		for u := range g.urls {
			urls = append(urls, u)
		}
		existing, err := store.ExistingSourceURLs(ctx, g.id, urls)
		if err != nil {
			return nil, nil, fmt.Errorf("lookup existing products: %w", err)
		}
		for _, u := range urls {
			if existing[u] {
				plan.WillUpdate++
			} else {
				plan.WillCreate++
			}
		}
	}

	deactivate := make(deactivationSet)
	if syncMode && len(rows) > 0 {
		for _, g := range groups {
			if g.id == uuid.Nil {
				continue
			}
			active, err := store.ActiveSourceURLs(ctx, g.id)
			if err != nil {
				return nil, nil, fmt.Errorf("lookup active products: %w", err)
			}
			for _, u := range active {
				if !g.urls[u] {
					deactivate[g.id] = append(deactivate[g.id], u)
					plan.WillDeactivate++
				}
			}
		}
	}

	return plan, deactivate, nil
}
