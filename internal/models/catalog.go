package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JSON type for PostgreSQL JSONB (object/map)
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// StringList type for PostgreSQL JSONB (array of strings)
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = make(StringList, 0)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// JSONRaw type for PostgreSQL JSONB holding arbitrary documents, including
// arrays.
type JSONRaw json.RawMessage

func (j JSONRaw) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

func (j *JSONRaw) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], bytes...)
	return nil
}

func (j JSONRaw) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return []byte(j), nil
}

func (j *JSONRaw) UnmarshalJSON(data []byte) error {
	*j = append((*j)[0:0], data...)
	return nil
}

// Brand is the tenant boundary: every product belongs to exactly one brand,
// and product identity (source URL) is scoped to it.
type Brand struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Slug      string    `json:"slug" gorm:"not null;uniqueIndex:idx_brands_slug"`
	Name      string    `json:"name" gorm:"not null"`
	IsActive  bool      `json:"isActive" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Product represents one catalog item. The (brand_id, source_url) pair is
// the authoritative identity for imports; the slug is cosmetic and may
// collide across brands.
type Product struct {
	ID           uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BrandID      uuid.UUID        `json:"brandId" gorm:"type:uuid;not null;index;uniqueIndex:idx_products_brand_source"`
	Slug         string           `json:"slug" gorm:"not null;index"`
	Name         string           `json:"name" gorm:"not null"`
	SourceURL    string           `json:"sourceUrl" gorm:"not null;uniqueIndex:idx_products_brand_source"`
	AffiliateURL *string          `json:"affiliateUrl,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty" gorm:"type:numeric(12,2)"`
	Currency     string           `json:"currency" gorm:"not null;default:'GBP'"`
	Colour       *string          `json:"colour,omitempty"`
	Note         *string          `json:"note,omitempty"`
	Stock        *int             `json:"stock,omitempty"`
	Badges       StringList       `json:"badges" gorm:"type:jsonb"`
	CategoryID   *uuid.UUID       `json:"categoryId,omitempty" gorm:"type:uuid;index"`
	OccasionID   *uuid.UUID       `json:"occasionId,omitempty" gorm:"type:uuid;index"`
	MaterialID   *uuid.UUID       `json:"materialId,omitempty" gorm:"type:uuid;index"`
	IsActive     bool             `json:"isActive" gorm:"not null;default:true;index"`
	Images       []ProductImage   `json:"images,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// ProductImage is one gallery image. Position 0 is the canonical listing
// image; the full set is replaced on every import of the product.
type ProductImage struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;not null;index"`
	URL       string    `json:"url" gorm:"not null"`
	Position  int       `json:"position" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"createdAt"`
}

// Category, Occasion and Material are the browse taxonomies. They are shared
// across all brands; identity is the slug.
type Category struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Slug      string    `json:"slug" gorm:"not null;uniqueIndex:idx_categories_slug"`
	Name      string    `json:"name" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Occasion struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Slug      string    `json:"slug" gorm:"not null;uniqueIndex:idx_occasions_slug"`
	Name      string    `json:"name" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Material struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Slug      string    `json:"slug" gorm:"not null;uniqueIndex:idx_materials_slug"`
	Name      string    `json:"name" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tag is free-text, slugified on import, shared across brands.
type Tag struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Slug      string    `json:"slug" gorm:"not null;uniqueIndex:idx_tags_slug"`
	Name      string    `json:"name" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductTag links a product to a tag. The link set is replaced wholesale on
// every import of the product, so a row with no tags clears them.
type ProductTag struct {
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;primary_key"`
	TagID     uuid.UUID `json:"tagId" gorm:"type:uuid;primary_key"`
}

// ImportJobStatus is the ledger lifecycle: created as RUNNING, transitioned
// exactly once to SUCCESS or FAILED, never revisited.
type ImportJobStatus string

const (
	ImportJobStatusRunning ImportJobStatus = "RUNNING"
	ImportJobStatusSuccess ImportJobStatus = "SUCCESS"
	ImportJobStatusFailed  ImportJobStatus = "FAILED"
)

// ImportJob is the audit record for one import invocation.
type ImportJob struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BrandID    *uuid.UUID      `json:"brandId,omitempty" gorm:"type:uuid;index"`
	Mode       string          `json:"mode" gorm:"not null"`
	FileName   string          `json:"fileName" gorm:"not null"`
	ActorID    string          `json:"actorId"`
	Status     ImportJobStatus `json:"status" gorm:"not null;default:'RUNNING';index"`
	Totals     JSON            `json:"totals" gorm:"type:jsonb"`
	RowErrors  JSONRaw         `json:"rowErrors" gorm:"type:jsonb"`
	Error      *string         `json:"error,omitempty" gorm:"type:text"`
	CreatedAt  time.Time       `json:"createdAt"`
	FinishedAt *time.Time      `json:"finishedAt,omitempty"`
}

func (Brand) TableName() string        { return "brands" }
func (Product) TableName() string      { return "products" }
func (ProductImage) TableName() string { return "product_images" }
func (Category) TableName() string     { return "categories" }
func (Occasion) TableName() string     { return "occasions" }
func (Material) TableName() string     { return "materials" }
func (Tag) TableName() string          { return "tags" }
func (ProductTag) TableName() string   { return "product_tags" }
func (ImportJob) TableName() string    { return "import_jobs" }
