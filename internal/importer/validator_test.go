package importer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRow(line int, fields map[string]string) RawRow {
	base := map[string]string{
		"product_slug": "navy-maxi-dress",
		"product_name": "Navy Maxi Dress",
		"product_url":  "https://shop.example.com/p/navy-maxi-dress",
		"image_url_1":  "https://cdn.example.com/navy-1.jpg",
	}
	for k, v := range fields {
		base[k] = v
	}
	return RawRow{Line: line, Fields: base}
}

func TestCheckHeader(t *testing.T) {
	t.Run("brand mode rejects brand columns", func(t *testing.T) {
		v := NewRowValidator(ModeBrand, "GBP")
		err := v.CheckHeader([]string{"brand_slug", "product_slug"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrForbiddenColumns)
	})

	t.Run("brand mode accepts clean header", func(t *testing.T) {
		v := NewRowValidator(ModeBrand, "GBP")
		assert.NoError(t, v.CheckHeader([]string{"product_slug", "product_name", "product_url"}))
	})

	t.Run("admin mode allows brand columns", func(t *testing.T) {
		v := NewRowValidator(ModeAdmin, "GBP")
		assert.NoError(t, v.CheckHeader([]string{"brand_slug", "brand_name", "product_slug"}))
	})
}

func TestValidateRowRequiredFields(t *testing.T) {
	v := NewRowValidator(ModeBrand, "GBP")

	t.Run("valid row passes", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(2, nil), ec)
		require.NotNil(t, row)
		assert.False(t, ec.HasErrors())
		assert.Equal(t, "navy-maxi-dress", row.ProductSlug)
		assert.Equal(t, "https://shop.example.com/p/navy-maxi-dress", row.SourceURL)
	})

	t.Run("missing product_url", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(2, map[string]string{"product_url": ""}), ec)
		assert.Nil(t, row)
		require.Len(t, ec.Errors(), 1)
		assert.Equal(t, ErrCodeRequiredField, ec.Errors()[0].Code)
		assert.Equal(t, "product_url", ec.Errors()[0].Column)
	})

	t.Run("relative product_url", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(2, map[string]string{"product_url": "/p/navy"}), ec)
		assert.Nil(t, row)
		require.Len(t, ec.Errors(), 1)
		assert.Equal(t, ErrCodeInvalidURL, ec.Errors()[0].Code)
	})

	t.Run("missing first image", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(2, map[string]string{"image_url_1": ""}), ec)
		assert.Nil(t, row)
		require.Len(t, ec.Errors(), 1)
		assert.Equal(t, "image_url_1", ec.Errors()[0].Column)
	})

	t.Run("multiple problems on one row collect on one line", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(5, map[string]string{
			"product_slug": "",
			"product_name": "",
		}), ec)
		assert.Nil(t, row)
		assert.Equal(t, 2, ec.TotalCount())
		assert.Equal(t, 1, ec.RowCount())
		assert.True(t, ec.HasRow(5))
	})
}

func TestValidateRowSourceURLNormalization(t *testing.T) {
	v := NewRowValidator(ModeBrand, "GBP")
	ec := NewErrorCollection(0)

	row, _ := v.ValidateRow(makeRow(2, map[string]string{
		"product_url": "https://shop.example.com/p/navy/",
	}), ec)
	require.NotNil(t, row)
	assert.Equal(t, "https://shop.example.com/p/navy", row.SourceURL)
}

func TestValidateRowPrice(t *testing.T) {
	v := NewRowValidator(ModeBrand, "GBP")

	t.Run("valid decimal", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(2, map[string]string{"price": "59.99"}), ec)
		require.NotNil(t, row)
		require.NotNil(t, row.Price)
		assert.True(t, row.Price.Equal(decimal.RequireFromString("59.99")))
	})

	t.Run("not a number", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(2, map[string]string{"price": "abc"}), ec)
		assert.Nil(t, row)
		assert.Equal(t, ErrCodeInvalidPrice, ec.Errors()[0].Code)
	})

	t.Run("negative", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(2, map[string]string{"price": "-1"}), ec)
		assert.Nil(t, row)
		assert.Equal(t, ErrCodeInvalidPrice, ec.Errors()[0].Code)
	})

	t.Run("blank means no price", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(2, nil), ec)
		require.NotNil(t, row)
		assert.Nil(t, row.Price)
	})
}

func TestValidateRowStock(t *testing.T) {
	v := NewRowValidator(ModeBrand, "GBP")

	tests := []struct {
		name  string
		value string
		want  *int
		code  string
	}{
		{"whole number", "12", intPtr(12), ""},
		{"fractional floors", "3.7", intPtr(3), ""},
		{"negative clamps to zero", "-5", intPtr(0), ""},
		{"zero", "0", intPtr(0), ""},
		{"not a number", "lots", nil, ErrCodeInvalidStock},
		{"NaN rejected", "NaN", nil, ErrCodeInvalidStock},
		{"infinity rejected", "Inf", nil, ErrCodeInvalidStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := NewErrorCollection(0)
			row, _ := v.ValidateRow(makeRow(2, map[string]string{"stock": tt.value}), ec)
			if tt.code != "" {
				assert.Nil(t, row)
				require.Len(t, ec.Errors(), 1)
				assert.Equal(t, tt.code, ec.Errors()[0].Code)
				return
			}
			require.NotNil(t, row)
			require.NotNil(t, row.Stock)
			assert.Equal(t, *tt.want, *row.Stock)
		})
	}
}

func TestValidateRowCurrency(t *testing.T) {
	v := NewRowValidator(ModeBrand, "GBP")

	t.Run("blank defaults to platform currency", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(2, nil), ec)
		require.NotNil(t, row)
		assert.Equal(t, "GBP", row.Currency)
	})

	t.Run("lowercase accepted", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(2, map[string]string{"currency": "eur"}), ec)
		require.NotNil(t, row)
		assert.Equal(t, "EUR", row.Currency)
	})

	t.Run("unknown rejected", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(2, map[string]string{"currency": "JPY"}), ec)
		assert.Nil(t, row)
		assert.Equal(t, ErrCodeInvalidCurrency, ec.Errors()[0].Code)
	})
}

func TestValidateRowBadges(t *testing.T) {
	v := NewRowValidator(ModeBrand, "GBP")

	t.Run("known badges pass", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(2, map[string]string{"badges": "new_in, Modest_Essential"}), ec)
		require.NotNil(t, row)
		assert.Equal(t, []string{"new_in", "modest_essential"}, row.Badges)
	})

	t.Run("one unknown badge rejects the whole list", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(2, map[string]string{"badges": "new_in, shiny, sale"}), ec)
		assert.Nil(t, row)
		require.Len(t, ec.Errors(), 1)
		assert.Equal(t, ErrCodeInvalidBadge, ec.Errors()[0].Code)
		assert.Contains(t, ec.Errors()[0].Message, "shiny")
	})
}

func TestValidateRowTags(t *testing.T) {
	v := NewRowValidator(ModeBrand, "GBP")
	ec := NewErrorCollection(0)

	row, _ := v.ValidateRow(makeRow(2, map[string]string{
		"tags": "Maxi, maxi , Long Sleeve",
	}), ec)
	require.NotNil(t, row)
	assert.Equal(t, []string{"maxi", "long-sleeve"}, row.Tags)
}

func TestValidateRowAdminBrandFields(t *testing.T) {
	v := NewRowValidator(ModeAdmin, "GBP")

	t.Run("brand_slug required", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(2, nil), ec)
		assert.Nil(t, row)
		assert.Equal(t, "brand_slug", ec.Errors()[0].Column)
	})

	t.Run("brand_name derived from slug when blank", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(2, map[string]string{"brand_slug": "aab-collection"}), ec)
		require.NotNil(t, row)
		assert.Equal(t, "aab-collection", row.BrandSlug)
		assert.Equal(t, "Aab Collection", row.BrandName)
	})

	t.Run("brand_slug is slugified", func(t *testing.T) {
		ec := NewErrorCollection(0)
		row, _ := v.ValidateRow(makeRow(2, map[string]string{
			"brand_slug": "Aab Collection",
			"brand_name": "Aab Collection Ltd",
		}), ec)
		require.NotNil(t, row)
		assert.Equal(t, "aab-collection", row.BrandSlug)
		assert.Equal(t, "Aab Collection Ltd", row.BrandName)
	})
}

func TestValidateRowWarnings(t *testing.T) {
	v := NewRowValidator(ModeBrand, "GBP")
	ec := NewErrorCollection(0)

	row, warnings := v.ValidateRow(makeRow(2, nil), ec)
	require.NotNil(t, row)
	// Base row has one image, no stock, no tags.
	assert.Len(t, warnings, 3)

	ec = NewErrorCollection(0)
	_, warnings = v.ValidateRow(makeRow(3, map[string]string{
		"image_url_2": "https://cdn.example.com/navy-2.jpg",
		"stock":       "4",
		"tags":        "maxi",
	}), ec)
	assert.Empty(t, warnings)
}

func TestErrorCollectionCap(t *testing.T) {
	ec := NewErrorCollection(3)
	for i := 0; i < 10; i++ {
		ec.Addf(i+2, "product_url", ErrCodeRequiredField, "product_url is required")
	}
	assert.Len(t, ec.Errors(), 3)
	assert.Equal(t, 10, ec.TotalCount())
	assert.Equal(t, 10, ec.RowCount())
	assert.True(t, ec.IsTruncated())
}

func intPtr(n int) *int { return &n }
