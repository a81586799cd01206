package importer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxonomyResolverCaches(t *testing.T) {
	store := newFakeStore()
	resolver := NewTaxonomyResolver(store)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, TaxonomyTag, "maxi")
	require.NoError(t, err)
	second, err := resolver.Resolve(ctx, TaxonomyTag, "maxi")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.taxonomyCalls)

	// The same slug under a different kind is a different row.
	other, err := resolver.Resolve(ctx, TaxonomyCategory, "maxi")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
	assert.Equal(t, 2, store.taxonomyCalls)
}

func TestResolveOptionalEmptySlug(t *testing.T) {
	store := newFakeStore()
	resolver := NewTaxonomyResolver(store)

	id, err := resolver.ResolveOptional(context.Background(), TaxonomyCategory, "")
	require.NoError(t, err)
	assert.Nil(t, id)
	assert.Equal(t, 0, store.taxonomyCalls)
}

func TestWriteRowResolvesTaxonomies(t *testing.T) {
	store := newFakeStore()
	brandID := uuid.New()
	writer := NewWriter(store, NewTaxonomyResolver(store))

	row := &ValidatedRow{
		Line:         2,
		BrandID:      brandID,
		ProductSlug:  "navy-dress",
		Name:         "Navy Dress",
		SourceURL:    "https://shop.example.com/p/1",
		Currency:     "GBP",
		Images:       []string{"https://cdn.example.com/1.jpg"},
		CategorySlug: "dresses",
		Tags:         []string{"maxi", "long-sleeve"},
	}

	created, err := writer.WriteRow(context.Background(), row)
	require.NoError(t, err)
	assert.True(t, created)

	saved := store.products[store.productKey(brandID, row.SourceURL)]
	require.NotNil(t, saved)
	require.NotNil(t, saved.write.CategoryID)
	assert.Nil(t, saved.write.OccasionID)
	assert.Len(t, saved.write.TagIDs, 2)
	assert.Equal(t, 3, store.taxonomyCalls)
}
