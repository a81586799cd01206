package models

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // string, number, url, list
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity  string                 `json:"entity"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// CatalogImportColumns returns the column definitions for catalog import.
// Admin uploads additionally carry brand_slug/brand_name; brand uploads must
// not include them.
func CatalogImportColumns(adminMode bool) []ImportTemplateColumn {
	cols := []ImportTemplateColumn{}
	if adminMode {
		cols = append(cols,
			ImportTemplateColumn{Name: "brand_slug", Description: "Brand identifier - auto-creates if not exists", Required: true, Type: "string", Example: "aab-collection"},
			ImportTemplateColumn{Name: "brand_name", Description: "Brand display name", Required: false, Type: "string", Example: "Aab Collection"},
		)
	}
	cols = append(cols,
		ImportTemplateColumn{Name: "product_slug", Description: "Product identifier within the brand", Required: true, Type: "string", Example: "navy-maxi-dress"},
		ImportTemplateColumn{Name: "product_name", Description: "Product display name", Required: true, Type: "string", Example: "Navy Maxi Dress"},
		ImportTemplateColumn{Name: "product_url", Description: "Absolute URL of the product page - identity for create vs update", Required: true, Type: "url", Example: "https://example.com/products/navy-maxi-dress"},
		ImportTemplateColumn{Name: "image_url_1", Description: "Canonical listing image", Required: true, Type: "url", Example: "https://example.com/images/navy-1.jpg"},
		ImportTemplateColumn{Name: "image_url_2", Description: "Additional image", Required: false, Type: "url", Example: ""},
		ImportTemplateColumn{Name: "image_url_3", Description: "Additional image", Required: false, Type: "url", Example: ""},
		ImportTemplateColumn{Name: "image_url_4", Description: "Additional image", Required: false, Type: "url", Example: ""},
		ImportTemplateColumn{Name: "category_slug", Description: "Category - auto-creates if not exists", Required: false, Type: "string", Example: "dresses"},
		ImportTemplateColumn{Name: "occasion_slug", Description: "Occasion - auto-creates if not exists", Required: false, Type: "string", Example: "eid"},
		ImportTemplateColumn{Name: "material_slug", Description: "Material - auto-creates if not exists", Required: false, Type: "string", Example: "cotton"},
		ImportTemplateColumn{Name: "tags", Description: "Comma-separated free-text tags", Required: false, Type: "list", Example: "maxi, long-sleeve"},
		ImportTemplateColumn{Name: "badges", Description: "Comma-separated badges from the fixed set", Required: false, Type: "list", Example: "new_in, modest_essential"},
		ImportTemplateColumn{Name: "note", Description: "Internal note", Required: false, Type: "string", Example: ""},
		ImportTemplateColumn{Name: "price", Description: "Price as a decimal", Required: false, Type: "number", Example: "59.99"},
		ImportTemplateColumn{Name: "currency", Description: "GBP, EUR, CHF or USD (defaults to GBP)", Required: false, Type: "string", Example: "GBP"},
		ImportTemplateColumn{Name: "colour", Description: "Colour description", Required: false, Type: "string", Example: "navy"},
		ImportTemplateColumn{Name: "stock", Description: "Stock count", Required: false, Type: "number", Example: "12"},
		ImportTemplateColumn{Name: "affiliate_url", Description: "Tracked outbound URL", Required: false, Type: "url", Example: ""},
	)
	return cols
}

// CatalogImportTemplate returns the template definition for catalog imports
func CatalogImportTemplate(adminMode bool) ImportTemplate {
	return ImportTemplate{
		Entity:  "catalog",
		Version: "1.0",
		Columns: CatalogImportColumns(adminMode),
	}
}

type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}
