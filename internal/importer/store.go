package importer

import (
	"context"
	"database/sql/driver"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxonomyKind selects which shared taxonomy table a slug resolves against.
type TaxonomyKind string

const (
	TaxonomyCategory TaxonomyKind = "category"
	TaxonomyOccasion TaxonomyKind = "occasion"
	TaxonomyMaterial TaxonomyKind = "material"
	TaxonomyTag      TaxonomyKind = "tag"
)

// ProductWrite is one product's complete desired state: the unit the store
// must persist atomically. Images and TagIDs replace the existing sets
// wholesale, in the order given.
type ProductWrite struct {
	BrandID      uuid.UUID
	Slug         string
	Name         string
	SourceURL    string
	AffiliateURL *string
	Price        *decimal.Decimal
	Currency     string
	Colour       *string
	Note         *string
	Stock        *int
	Badges       []string
	CategoryID   *uuid.UUID
	OccasionID   *uuid.UUID
	MaterialID   *uuid.UUID
	Images       []string
	TagIDs       []uuid.UUID
}

// JobStart describes a new ledger record, created as RUNNING before any row
// processing begins.
type JobStart struct {
	Mode     Mode
	BrandID  *uuid.UUID
	FileName string
	ActorID  string
}

// JobTotals are the final counts written to the ledger.
type JobTotals struct {
	Total       int `json:"total"`
	Valid       int `json:"valid"`
	Invalid     int `json:"invalid"`
	Created     int `json:"created"`
	Updated     int `json:"updated"`
	Deactivated int `json:"deactivated"`
}

// JobOutcome finalizes a ledger record exactly once.
type JobOutcome struct {
	Success    bool
	Totals     JobTotals
	RowErrors  []RowError
	Error      string
	FinishedAt time.Time
}

// Store is the persistence contract the engine depends on. Implementations
// must make brand/taxonomy resolution idempotent under races and must apply
// SaveProduct as a single all-or-nothing unit per product.
type Store interface {
	// FindBrandBySlug looks a brand up without creating it (dry-run path).
	FindBrandBySlug(ctx context.Context, slug string) (uuid.UUID, bool, error)

	// GetOrCreateBrand resolves a brand, creating it on first reference.
	GetOrCreateBrand(ctx context.Context, slug, name string) (uuid.UUID, error)

	// GetOrCreateTaxonomy resolves a taxonomy row by slug, creating it with
	// the given display name on first reference.
	GetOrCreateTaxonomy(ctx context.Context, kind TaxonomyKind, slug, name string) (uuid.UUID, error)

	// ExistingSourceURLs reports which of the given normalized source URLs
	// already identify a product of the brand, active or not.
	ExistingSourceURLs(ctx context.Context, brandID uuid.UUID, urls []string) (map[string]bool, error)

	// ActiveSourceURLs returns the source URLs of all currently-active
	// products of the brand.
	ActiveSourceURLs(ctx context.Context, brandID uuid.UUID) ([]string, error)

	// SaveProduct upserts the product by (brand, source URL), replaces its
	// image and tag sets and marks it active, atomically. Reports whether
	// the product was created.
	SaveProduct(ctx context.Context, w *ProductWrite) (created bool, err error)

	// DeactivateBySourceURLs flips the active flag off for the brand's
	// products matching the given source URLs. Never deletes.
	DeactivateBySourceURLs(ctx context.Context, brandID uuid.UUID, urls []string) (int64, error)

	StartImportJob(ctx context.Context, job *JobStart) (uuid.UUID, error)
	FinishImportJob(ctx context.Context, id uuid.UUID, outcome *JobOutcome) error
}

// ErrStoreUnavailable marks store errors that are infrastructure faults
// rather than per-row business failures. Store implementations wrap
// connection-level errors with it.
var ErrStoreUnavailable = errors.New("store unavailable")

// IsInfrastructureError distinguishes faults that abort the whole invocation
// from per-row write failures that become RowErrors.
func IsInfrastructureError(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
