package importer

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mode distinguishes the two row schemas. Admin uploads carry brand identity
// per row; brand uploads belong to the caller's brand and must not carry
// brand columns at all.
type Mode string

const (
	ModeAdmin Mode = "admin"
	ModeBrand Mode = "brand"
)

// Column names recognized in uploads. Columns outside this set are ignored.
const (
	colBrandSlug    = "brand_slug"
	colBrandName    = "brand_name"
	colProductSlug  = "product_slug"
	colProductName  = "product_name"
	colProductURL   = "product_url"
	colCategorySlug = "category_slug"
	colOccasionSlug = "occasion_slug"
	colMaterialSlug = "material_slug"
	colTags         = "tags"
	colBadges       = "badges"
	colNote         = "note"
	colPrice        = "price"
	colCurrency     = "currency"
	colColour       = "colour"
	colStock        = "stock"
	colAffiliateURL = "affiliate_url"
)

const maxImageColumns = 4

// Currencies accepted on import. Blank defaults to the platform currency.
var Currencies = map[string]bool{
	"GBP": true,
	"EUR": true,
	"CHF": true,
	"USD": true,
}

// Badges accepted on import. A single unknown token invalidates the whole
// badge list for that row.
var Badges = map[string]bool{
	"bestseller":       true,
	"new_in":           true,
	"editor_pick":      true,
	"modest_essential": true,
	"limited_stock":    true,
	"sale":             true,
	"ramadan_edit":     true,
	"eid_edit":         true,
	"workwear":         true,
	"next_day":         true,
}

func allowedBadges() string {
	names := make([]string, 0, len(Badges))
	for b := range Badges {
		names = append(names, b)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// ValidatedRow is the typed, normalized projection of one RawRow. SourceURL
// is always normalized and non-empty.
type ValidatedRow struct {
	Line         int
	BrandSlug    string    // admin mode only
	BrandName    string    // admin mode only
	BrandID      uuid.UUID // assigned by the engine after brand resolution
	ProductSlug  string
	Name         string
	SourceURL    string
	Images       []string
	CategorySlug string
	OccasionSlug string
	MaterialSlug string
	Tags         []string
	Badges       []string
	Note         *string
	Price        *decimal.Decimal
	Currency     string
	Colour       *string
	Stock        *int
	AffiliateURL *string
}

// RowValidator validates raw rows against the mode-specific schema. It is
// pure: no I/O, failures are collected, never raised.
type RowValidator struct {
	mode            Mode
	defaultCurrency string
}

func NewRowValidator(mode Mode, defaultCurrency string) *RowValidator {
	if defaultCurrency == "" {
		defaultCurrency = "GBP"
	}
	return &RowValidator{mode: mode, defaultCurrency: defaultCurrency}
}

// CheckHeader enforces the file-level schema. In brand mode a header
// declaring brand identity columns is fatal before any row is processed.
func (v *RowValidator) CheckHeader(header []string) error {
	if v.mode != ModeBrand {
		return nil
	}
	for _, h := range header {
		if h == colBrandSlug || h == colBrandName {
			return fmt.Errorf("%w: column '%s'", ErrForbiddenColumns, h)
		}
	}
	return nil
}

// ValidateRow validates and coerces one raw row. Every problem is recorded
// into ec against the row's physical line; a row with any error yields a nil
// ValidatedRow. Warnings are non-blocking quality signals.
func (v *RowValidator) ValidateRow(raw RawRow, ec *ErrorCollection) (*ValidatedRow, []RowWarning) {
	row := raw.Line
	before := ec.TotalCount()
	out := &ValidatedRow{Line: row}

	if v.mode == ModeAdmin {
		out.BrandSlug = Slugify(raw.Get(colBrandSlug))
		if out.BrandSlug == "" {
			ec.Addf(row, colBrandSlug, ErrCodeRequiredField, "brand_slug is required")
		}
		out.BrandName = raw.Get(colBrandName)
		if out.BrandName == "" {
			out.BrandName = NameFromSlug(out.BrandSlug)
		}
	}

	out.ProductSlug = Slugify(raw.Get(colProductSlug))
	if out.ProductSlug == "" {
		ec.Addf(row, colProductSlug, ErrCodeRequiredField, "product_slug is required")
	}

	out.Name = raw.Get(colProductName)
	if out.Name == "" {
		ec.Addf(row, colProductName, ErrCodeRequiredField, "product_name is required")
	}

	rawURL := raw.Get(colProductURL)
	if rawURL == "" {
		ec.Addf(row, colProductURL, ErrCodeRequiredField, "product_url is required")
	} else if !isAbsoluteURL(rawURL) {
		ec.Addf(row, colProductURL, ErrCodeInvalidURL, "product_url must be an absolute URL, got '%s'", rawURL)
	} else {
		out.SourceURL = NormalizeSourceURL(rawURL)
	}

	for i := 1; i <= maxImageColumns; i++ {
		col := fmt.Sprintf("image_url_%d", i)
		img := raw.Get(col)
		if img == "" {
			if i == 1 {
				ec.Addf(row, col, ErrCodeRequiredField, "at least one image URL is required")
			}
			continue
		}
		if !isAbsoluteURL(img) {
			ec.Addf(row, col, ErrCodeInvalidURL, "%s must be an absolute URL, got '%s'", col, img)
			continue
		}
		out.Images = append(out.Images, img)
	}

	if price := raw.Get(colPrice); price != "" {
		d, err := decimal.NewFromString(price)
		if err != nil {
			ec.Addf(row, colPrice, ErrCodeInvalidPrice, "price must be a decimal number, got '%s'", price)
		} else if d.IsNegative() {
			ec.Addf(row, colPrice, ErrCodeInvalidPrice, "price must not be negative, got '%s'", price)
		} else {
			out.Price = &d
		}
	}

	if stock := raw.Get(colStock); stock != "" {
		out.Stock = parseStock(row, stock, ec)
	}

	currency := strings.ToUpper(raw.Get(colCurrency))
	if currency == "" {
		out.Currency = v.defaultCurrency
	} else if !Currencies[currency] {
		ec.Addf(row, colCurrency, ErrCodeInvalidCurrency, "currency must be one of GBP, EUR, CHF, USD, got '%s'", currency)
	} else {
		out.Currency = currency
	}

	// Badges are all-or-nothing: one unknown token rejects the whole list.
	for _, badge := range SplitList(raw.Get(colBadges)) {
		token := strings.ToLower(badge)
		if !Badges[token] {
			ec.Addf(row, colBadges, ErrCodeInvalidBadge,
				"unknown badge '%s'; allowed badges are: %s", badge, allowedBadges())
			out.Badges = nil
			break
		}
		out.Badges = append(out.Badges, token)
	}

	seenTags := make(map[string]bool)
	for _, tag := range SplitList(raw.Get(colTags)) {
		if slug := Slugify(tag); slug != "" && !seenTags[slug] {
			seenTags[slug] = true
			out.Tags = append(out.Tags, slug)
		}
	}

	out.CategorySlug = Slugify(raw.Get(colCategorySlug))
	out.OccasionSlug = Slugify(raw.Get(colOccasionSlug))
	out.MaterialSlug = Slugify(raw.Get(colMaterialSlug))

	if note := raw.Get(colNote); note != "" {
		out.Note = &note
	}
	if colour := raw.Get(colColour); colour != "" {
		out.Colour = &colour
	}
	if aff := raw.Get(colAffiliateURL); aff != "" {
		if !isAbsoluteURL(aff) {
			ec.Addf(row, colAffiliateURL, ErrCodeInvalidURL, "affiliate_url must be an absolute URL, got '%s'", aff)
		} else {
			out.AffiliateURL = &aff
		}
	}

	if ec.TotalCount() > before {
		return nil, nil
	}
	return out, v.warningsFor(out)
}

func (v *RowValidator) warningsFor(row *ValidatedRow) []RowWarning {
	var warnings []RowWarning
	if len(row.Images) == 1 {
		warnings = append(warnings, RowWarning{Row: row.Line, Message: "only one image supplied"})
	}
	if row.Stock == nil {
		warnings = append(warnings, RowWarning{Row: row.Line, Message: "no stock value supplied"})
	}
	if len(row.Tags) == 0 {
		warnings = append(warnings, RowWarning{Row: row.Line, Message: "no tags supplied"})
	}
	return warnings
}

// parseStock parses a stock cell as a number, rejects non-finite values,
// then floors and clamps to zero. Fractional stock such as "3.7" therefore
// becomes 3 rather than an error, preserving the platform's historical
// behavior for whole-number semantics.
func parseStock(row int, raw string, ec *ErrorCollection) *int {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		ec.Addf(row, colStock, ErrCodeInvalidStock, "stock must be a number, got '%s'", raw)
		return nil
	}
	n := int(math.Floor(f))
	if n < 0 {
		n = 0
	}
	return &n
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
