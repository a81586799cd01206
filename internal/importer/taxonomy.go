package importer

import (
	"context"

	"github.com/google/uuid"
)

type taxonomyKey struct {
	kind TaxonomyKind
	slug string
}

// TaxonomyResolver resolves taxonomy slugs against the store, caching every
// result for the duration of one invocation so a slug shared by many rows is
// created at most once per import.
type TaxonomyResolver struct {
	store Store
	cache map[taxonomyKey]uuid.UUID
}

func NewTaxonomyResolver(store Store) *TaxonomyResolver {
	return &TaxonomyResolver{
		store: store,
		cache: make(map[taxonomyKey]uuid.UUID),
	}
}

// Resolve returns the taxonomy row for a normalized slug, creating it on
// first reference with a display name derived from the slug.
func (r *TaxonomyResolver) Resolve(ctx context.Context, kind TaxonomyKind, slug string) (uuid.UUID, error) {
	key := taxonomyKey{kind: kind, slug: slug}
	if id, ok := r.cache[key]; ok {
		return id, nil
	}

	id, err := r.store.GetOrCreateTaxonomy(ctx, kind, slug, NameFromSlug(slug))
	if err != nil {
		return uuid.Nil, err
	}
	r.cache[key] = id
	return id, nil
}

// ResolveOptional resolves a slug that may be empty; empty means no link.
func (r *TaxonomyResolver) ResolveOptional(ctx context.Context, kind TaxonomyKind, slug string) (*uuid.UUID, error) {
	if slug == "" {
		return nil, nil
	}
	id, err := r.Resolve(ctx, kind, slug)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
