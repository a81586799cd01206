package importer

import (
	"context"

	"github.com/google/uuid"
)

// Writer turns one validated row into a persisted product. Taxonomy
// resolution happens here so that the store's SaveProduct receives fully
// resolved IDs and can stay a single atomic unit.
type Writer struct {
	store      Store
	taxonomies *TaxonomyResolver
}

func NewWriter(store Store, taxonomies *TaxonomyResolver) *Writer {
	return &Writer{store: store, taxonomies: taxonomies}
}

// WriteRow resolves the row's taxonomy references and upserts the product.
// Reports whether the product was created rather than updated.
func (w *Writer) WriteRow(ctx context.Context, row *ValidatedRow) (bool, error) {
	categoryID, err := w.taxonomies.ResolveOptional(ctx, TaxonomyCategory, row.CategorySlug)
	if err != nil {
		return false, err
	}
	occasionID, err := w.taxonomies.ResolveOptional(ctx, TaxonomyOccasion, row.OccasionSlug)
	if err != nil {
		return false, err
	}
	materialID, err := w.taxonomies.ResolveOptional(ctx, TaxonomyMaterial, row.MaterialSlug)
	if err != nil {
		return false, err
	}

	tagIDs := make([]uuid.UUID, 0, len(row.Tags))
	for _, tag := range row.Tags {
		id, err := w.taxonomies.Resolve(ctx, TaxonomyTag, tag)
		if err != nil {
			return false, err
		}
		tagIDs = append(tagIDs, id)
	}

	return w.store.SaveProduct(ctx, &ProductWrite{
		BrandID:      row.BrandID,
		Slug:         row.ProductSlug,
		Name:         row.Name,
		SourceURL:    row.SourceURL,
		AffiliateURL: row.AffiliateURL,
		Price:        row.Price,
		Currency:     row.Currency,
		Colour:       row.Colour,
		Note:         row.Note,
		Stock:        row.Stock,
		Badges:       row.Badges,
		CategoryID:   categoryID,
		OccasionID:   occasionID,
		MaterialID:   materialID,
		Images:       row.Images,
		TagIDs:       tagIDs,
	})
}
