package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"catalog-service/internal/importer"
	"catalog-service/internal/models"
)

// taxonomyTables maps a taxonomy kind to its table. Table names are fixed
// here, never taken from input.
var taxonomyTables = map[importer.TaxonomyKind]string{
	importer.TaxonomyCategory: "categories",
	importer.TaxonomyOccasion: "occasions",
	importer.TaxonomyMaterial: "materials",
	importer.TaxonomyTag:      "tags",
}

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// wrap classifies a database error. Server-reported SQL errors (constraint
// violations, bad data) pass through and stay row-scoped; anything else is a
// connection-level fault that must abort the whole import.
func (r *CatalogRepository) wrap(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", importer.ErrStoreUnavailable, err)
}

// FindBrandBySlug looks a brand up without creating it.
func (r *CatalogRepository) FindBrandBySlug(ctx context.Context, slug string) (uuid.UUID, bool, error) {
	var brand models.Brand
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&brand).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, r.wrap(err)
	}
	return brand.ID, true, nil
}

// GetOrCreateBrand resolves a brand by slug, creating it on first reference.
// The no-op conflict update makes RETURNING yield the row either way, so
// concurrent imports referencing a new brand converge on one ID.
func (r *CatalogRepository) GetOrCreateBrand(ctx context.Context, slug, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO brands (slug, name, is_active, created_at, updated_at)
		VALUES (?, ?, TRUE, NOW(), NOW())
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id
	`, slug, name).Scan(&id).Error
	if err != nil {
		return uuid.Nil, r.wrap(err)
	}
	return id, nil
}

// GetOrCreateTaxonomy resolves a taxonomy row by slug across the shared
// category/occasion/material/tag tables.
func (r *CatalogRepository) GetOrCreateTaxonomy(ctx context.Context, kind importer.TaxonomyKind, slug, name string) (uuid.UUID, error) {
	table, ok := taxonomyTables[kind]
	if !ok {
		return uuid.Nil, fmt.Errorf("unknown taxonomy kind '%s'", kind)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (slug, name, created_at)
		VALUES (?, ?, NOW())
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id
	`, table)
	if kind != importer.TaxonomyTag {
		query = fmt.Sprintf(`
			INSERT INTO %s (slug, name, created_at, updated_at)
			VALUES (?, ?, NOW(), NOW())
			ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
			RETURNING id
		`, table)
	}

	var id uuid.UUID
	if err := r.db.WithContext(ctx).Raw(query, slug, name).Scan(&id).Error; err != nil {
		return uuid.Nil, r.wrap(err)
	}
	return id, nil
}

// ExistingSourceURLs reports which of the given source URLs already identify
// a product of the brand, active or not.
func (r *CatalogRepository) ExistingSourceURLs(ctx context.Context, brandID uuid.UUID, urls []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(urls))
	if len(urls) == 0 {
		return existing, nil
	}

	var found []string
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("brand_id = ? AND source_url IN ?", brandID, urls).
		Pluck("source_url", &found).Error
	if err != nil {
		return nil, r.wrap(err)
	}

	for _, url := range found {
		existing[url] = true
	}
	return existing, nil
}

// ActiveSourceURLs returns the source URLs of the brand's active products.
func (r *CatalogRepository) ActiveSourceURLs(ctx context.Context, brandID uuid.UUID) ([]string, error) {
	var urls []string
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("brand_id = ? AND is_active = ?", brandID, true).
		Pluck("source_url", &urls).Error
	if err != nil {
		return nil, r.wrap(err)
	}
	return urls, nil
}

// SaveProduct upserts a product by (brand_id, source_url) and replaces its
// image and tag sets, all inside one transaction. The insert-or-update is a
// single statement, so concurrent imports of the same product are
// last-write-wins with no lookup window. Reports whether the product was
// created: xmax is zero only on a freshly inserted row.
func (r *CatalogRepository) SaveProduct(ctx context.Context, w *importer.ProductWrite) (bool, error) {
	var row struct {
		ID      uuid.UUID
		Created bool
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Raw(`
			INSERT INTO products (id, brand_id, slug, name, source_url, affiliate_url,
				price, currency, colour, note, stock, badges,
				category_id, occasion_id, material_id, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE, NOW(), NOW())
			ON CONFLICT (brand_id, source_url) DO UPDATE SET
				slug = EXCLUDED.slug,
				name = EXCLUDED.name,
				affiliate_url = EXCLUDED.affiliate_url,
				price = EXCLUDED.price,
				currency = EXCLUDED.currency,
				colour = EXCLUDED.colour,
				note = EXCLUDED.note,
				stock = EXCLUDED.stock,
				badges = EXCLUDED.badges,
				category_id = EXCLUDED.category_id,
				occasion_id = EXCLUDED.occasion_id,
				material_id = EXCLUDED.material_id,
				is_active = TRUE,
				updated_at = NOW()
			RETURNING id, (xmax = 0) AS created
		`, uuid.New(), w.BrandID, w.Slug, w.Name, w.SourceURL, w.AffiliateURL,
			w.Price, w.Currency, w.Colour, w.Note, w.Stock, models.StringList(w.Badges),
			w.CategoryID, w.OccasionID, w.MaterialID).Scan(&row).Error
		if err != nil {
			return fmt.Errorf("failed to upsert product: %w", err)
		}

		return r.replaceProductLinks(tx, row.ID, w)
	})

	return row.Created, r.wrap(err)
}

// replaceProductLinks swaps the product's image gallery and tag links for
// the given sets, preserving image order.
func (r *CatalogRepository) replaceProductLinks(tx *gorm.DB, productID uuid.UUID, w *importer.ProductWrite) error {
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
		return fmt.Errorf("failed to clear product images: %w", err)
	}
	if len(w.Images) > 0 {
		images := make([]models.ProductImage, 0, len(w.Images))
		for i, url := range w.Images {
			images = append(images, models.ProductImage{
				ProductID: productID,
				URL:       url,
				Position:  i,
			})
		}
		if err := tx.Create(&images).Error; err != nil {
			return fmt.Errorf("failed to insert product images: %w", err)
		}
	}

	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductTag{}).Error; err != nil {
		return fmt.Errorf("failed to clear product tags: %w", err)
	}
	if len(w.TagIDs) > 0 {
		links := make([]models.ProductTag, 0, len(w.TagIDs))
		for _, tagID := range w.TagIDs {
			links = append(links, models.ProductTag{ProductID: productID, TagID: tagID})
		}
		if err := tx.Create(&links).Error; err != nil {
			return fmt.Errorf("failed to insert product tags: %w", err)
		}
	}
	return nil
}

// DeactivateBySourceURLs flips the active flag off for the brand's products
// matching the given source URLs. Products are never deleted by sync.
func (r *CatalogRepository) DeactivateBySourceURLs(ctx context.Context, brandID uuid.UUID, urls []string) (int64, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("brand_id = ? AND is_active = ? AND source_url IN ?", brandID, true, urls).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, r.wrap(result.Error)
	}
	return result.RowsAffected, nil
}

// StartImportJob creates the ledger record as RUNNING.
func (r *CatalogRepository) StartImportJob(ctx context.Context, start *importer.JobStart) (uuid.UUID, error) {
	job := models.ImportJob{
		ID:       uuid.New(),
		BrandID:  start.BrandID,
		Mode:     string(start.Mode),
		FileName: start.FileName,
		ActorID:  start.ActorID,
		Status:   models.ImportJobStatusRunning,
	}
	if err := r.db.WithContext(ctx).Create(&job).Error; err != nil {
		return uuid.Nil, r.wrap(err)
	}
	return job.ID, nil
}

// FinishImportJob transitions a RUNNING ledger record to its terminal status.
// The status guard makes finalization idempotent: a second call finds no
// RUNNING row and changes nothing.
func (r *CatalogRepository) FinishImportJob(ctx context.Context, id uuid.UUID, outcome *importer.JobOutcome) error {
	status := models.ImportJobStatusSuccess
	if !outcome.Success {
		status = models.ImportJobStatusFailed
	}

	totals, err := toJSON(outcome.Totals)
	if err != nil {
		return fmt.Errorf("failed to encode job totals: %w", err)
	}

	updates := map[string]interface{}{
		"status":      status,
		"totals":      totals,
		"finished_at": outcome.FinishedAt,
	}
	if len(outcome.RowErrors) > 0 {
		rowErrors, err := json.Marshal(outcome.RowErrors)
		if err != nil {
			return fmt.Errorf("failed to encode row errors: %w", err)
		}
		updates["row_errors"] = models.JSONRaw(rowErrors)
	}
	if outcome.Error != "" {
		updates["error"] = outcome.Error
	}

	result := r.db.WithContext(ctx).Model(&models.ImportJob{}).
		Where("id = ? AND status = ?", id, models.ImportJobStatusRunning).
		Updates(updates)
	return r.wrap(result.Error)
}

// GetImportJob retrieves one ledger record. A non-nil brandID restricts the
// lookup to that brand's jobs.
func (r *CatalogRepository) GetImportJob(ctx context.Context, id uuid.UUID, brandID *uuid.UUID) (*models.ImportJob, error) {
	query := r.db.WithContext(ctx).Where("id = ?", id)
	if brandID != nil {
		query = query.Where("brand_id = ?", *brandID)
	}

	var job models.ImportJob
	if err := query.First(&job).Error; err != nil {
		return nil, r.wrap(err)
	}
	return &job, nil
}

// ListImportJobs retrieves ledger records newest-first with pagination. A
// non-nil brandID restricts the listing to that brand's jobs.
func (r *CatalogRepository) ListImportJobs(ctx context.Context, brandID *uuid.UUID, page, limit int) ([]models.ImportJob, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := r.db.WithContext(ctx).Model(&models.ImportJob{})
	if brandID != nil {
		query = query.Where("brand_id = ?", *brandID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, r.wrap(err)
	}

	var jobs []models.ImportJob
	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&jobs).Error; err != nil {
		return nil, 0, r.wrap(err)
	}
	return jobs, total, nil
}

func toJSON(v interface{}) (models.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out models.JSON
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
