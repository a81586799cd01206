package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultMaxRowErrors = 500

// Scope identifies who the import runs for. Brand mode fixes the brand from
// the caller's session; admin mode lets each row declare its own brand.
type Scope struct {
	Mode    Mode
	BrandID uuid.UUID // brand mode only
	ActorID string
}

// Input is one complete import invocation: a parsed tabular dataset plus the
// tenant scope and flags. The engine knows nothing about HTTP or files.
type Input struct {
	Scope    Scope
	Header   []string
	Rows     []RawRow
	FileName string
	SyncMode bool
	DryRun   bool
}

// Result is the structured outcome. Dry runs carry the plan only; commits
// additionally carry the applied counts and the ledger job ID.
type Result struct {
	Plan        *Plan        `json:"plan"`
	Errors      []RowError   `json:"errors,omitempty"`
	Warnings    []RowWarning `json:"warnings,omitempty"`
	Created     int          `json:"createdCount"`
	Updated     int          `json:"updatedCount"`
	Deactivated int          `json:"deactivatedCount"`
	JobID       *uuid.UUID   `json:"jobId,omitempty"`
}

// Engine is the catalog import and synchronization engine. It validates
// every row, plans the reconciliation against the existing catalog, and on
// commit applies it product by product in file order.
type Engine struct {
	store           Store
	logger          *logrus.Entry
	defaultCurrency string
	maxRowErrors    int
}

func NewEngine(store Store, logger *logrus.Entry, defaultCurrency string) *Engine {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Engine{
		store:           store,
		logger:          logger.WithField("component", "import-engine"),
		defaultCurrency: defaultCurrency,
		maxRowErrors:    defaultMaxRowErrors,
	}
}

// SetMaxRowErrors caps how many row errors a single invocation reports.
func (e *Engine) SetMaxRowErrors(n int) {
	if n > 0 {
		e.maxRowErrors = n
	}
}

// Run executes one import invocation. Row-level problems are collected into
// the result and never abort the run; file-level and infrastructure faults
// return a terminal error. On the commit path the ledger record is created
// before row processing and finalized exactly once, even on panic.
func (e *Engine) Run(ctx context.Context, in Input) (res *Result, err error) {
	validator := NewRowValidator(in.Scope.Mode, e.defaultCurrency)
	if headerErr := validator.CheckHeader(in.Header); headerErr != nil {
		return nil, headerErr
	}

	log := e.logger.WithFields(logrus.Fields{
		"mode":    in.Scope.Mode,
		"rows":    len(in.Rows),
		"sync":    in.SyncMode,
		"dry_run": in.DryRun,
	})

	var jobID uuid.UUID
	if !in.DryRun {
		start := &JobStart{
			Mode:     in.Scope.Mode,
			FileName: in.FileName,
			ActorID:  in.Scope.ActorID,
		}
		if in.Scope.Mode == ModeBrand {
			brandID := in.Scope.BrandID
			start.BrandID = &brandID
		}
		jobID, err = e.store.StartImportJob(ctx, start)
		if err != nil {
			return nil, fmt.Errorf("start import job: %w", err)
		}
		log = log.WithField("job_id", jobID)

		defer func() {
			if r := recover(); r != nil {
				res = nil
				err = fmt.Errorf("catalog import aborted: %v", r)
			}
			if err != nil {
				e.failJob(jobID, err, res)
			}
		}()
	}

	ec := NewErrorCollection(e.maxRowErrors)
	var warnings []RowWarning
	valid := make([]*ValidatedRow, 0, len(in.Rows))
	for _, raw := range in.Rows {
		row, rowWarnings := validator.ValidateRow(raw, ec)
		if row != nil {
			valid = append(valid, row)
			warnings = append(warnings, rowWarnings...)
		}
	}

	rows, duplicates := e.dedupe(in.Scope, valid, ec)

	rows, err = e.resolveBrands(ctx, in, rows, ec)
	if err != nil {
		return nil, err
	}

	plan, deactivate, err := buildPlan(ctx, e.store, rows, in.SyncMode)
	if err != nil {
		return nil, err
	}
	plan.Total = len(in.Rows)
	plan.InvalidCount = ec.RowCount()
	plan.ValidCount = plan.Total - plan.InvalidCount
	plan.DuplicateSourceURLs = duplicates

	res = &Result{Plan: plan, Errors: ec.Errors(), Warnings: warnings}
	if in.DryRun {
		return res, nil
	}

	writer := NewWriter(e.store, NewTaxonomyResolver(e.store))
	for _, row := range rows {
		created, writeErr := writer.WriteRow(ctx, row)
		if writeErr != nil {
			if IsInfrastructureError(writeErr) {
				return nil, fmt.Errorf("save product at row %d: %w", row.Line, writeErr)
			}
			ec.Addf(row.Line, "", ErrCodeWriteFailed, "failed to save product: %v", writeErr)
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	for brandID, urls := range deactivate {
		n, deactErr := e.store.DeactivateBySourceURLs(ctx, brandID, urls)
		if deactErr != nil {
			return nil, fmt.Errorf("deactivate absent products: %w", deactErr)
		}
		res.Deactivated += int(n)
	}

	res.Errors = ec.Errors()
	res.JobID = &jobID

	outcome := &JobOutcome{
		Success:    true,
		Totals:     e.totals(plan, res, ec),
		RowErrors:  ec.Errors(),
		FinishedAt: time.Now().UTC(),
	}
	if finishErr := e.store.FinishImportJob(ctx, jobID, outcome); finishErr != nil {
		return nil, fmt.Errorf("finalize import job: %w", finishErr)
	}

	log.WithFields(logrus.Fields{
		"created":     res.Created,
		"updated":     res.Updated,
		"deactivated": res.Deactivated,
		"invalid":     ec.RowCount(),
	}).Info("catalog import finished")

	return res, nil
}

// dedupe flags every second and subsequent occurrence of a dedup key inside
// the file, in file order, and drops those rows from the write set.
func (e *Engine) dedupe(scope Scope, rows []*ValidatedRow, ec *ErrorCollection) ([]*ValidatedRow, []string) {
	seen := make(map[string]bool, len(rows))
	kept := make([]*ValidatedRow, 0, len(rows))
	var duplicates []string

	for _, row := range rows {
		brandPart := scope.BrandID.String()
		if scope.Mode == ModeAdmin {
			brandPart = row.BrandSlug
		}
		key := brandPart + "\x00" + row.SourceURL
		if seen[key] {
			ec.Addf(row.Line, colProductURL, ErrCodeDuplicateInFile,
				"duplicate product_url '%s' in file", row.SourceURL)
			duplicates = append(duplicates, row.SourceURL)
			continue
		}
		seen[key] = true
		kept = append(kept, row)
	}
	return kept, duplicates
}

// resolveBrands assigns a brand to every row. Brand mode uses the caller's
// brand; admin mode resolves per row, creating brands on commit but only
// looking them up on dry runs so a dry run stays write-free.
func (e *Engine) resolveBrands(ctx context.Context, in Input, rows []*ValidatedRow, ec *ErrorCollection) ([]*ValidatedRow, error) {
	if in.Scope.Mode == ModeBrand {
		for _, row := range rows {
			row.BrandID = in.Scope.BrandID
		}
		return rows, nil
	}

	resolved := make(map[string]uuid.UUID)
	kept := make([]*ValidatedRow, 0, len(rows))
	for _, row := range rows {
		id, ok := resolved[row.BrandSlug]
		if !ok {
			var err error
			if in.DryRun {
				var found bool
				id, found, err = e.store.FindBrandBySlug(ctx, row.BrandSlug)
				if err == nil && !found {
					id = uuid.Nil
				}
			} else {
				id, err = e.store.GetOrCreateBrand(ctx, row.BrandSlug, row.BrandName)
			}
			if err != nil {
				if IsInfrastructureError(err) {
					return nil, fmt.Errorf("resolve brand '%s': %w", row.BrandSlug, err)
				}
				ec.Addf(row.Line, colBrandSlug, ErrCodeBrandResolve,
					"failed to resolve brand '%s': %v", row.BrandSlug, err)
				continue
			}
			resolved[row.BrandSlug] = id
		}
		row.BrandID = id
		kept = append(kept, row)
	}
	return kept, nil
}

func (e *Engine) totals(plan *Plan, res *Result, ec *ErrorCollection) JobTotals {
	return JobTotals{
		Total:       plan.Total,
		Valid:       plan.Total - ec.RowCount(),
		Invalid:     ec.RowCount(),
		Created:     res.Created,
		Updated:     res.Updated,
		Deactivated: res.Deactivated,
	}
}

// failJob finalizes the ledger as failed. It runs on the terminal error
// path, including panics, so operator visibility survives a crashed import.
func (e *Engine) failJob(jobID uuid.UUID, runErr error, res *Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outcome := &JobOutcome{
		Success:    false,
		Error:      runErr.Error(),
		FinishedAt: time.Now().UTC(),
	}
	if res != nil && res.Plan != nil {
		outcome.Totals = JobTotals{
			Total:   res.Plan.Total,
			Valid:   res.Plan.ValidCount,
			Invalid: res.Plan.InvalidCount,
		}
		outcome.RowErrors = res.Errors
	}

	if err := e.store.FinishImportJob(ctx, jobID, outcome); err != nil {
		e.logger.WithError(err).WithField("job_id", jobID).
			Error("failed to finalize import job as failed")
	}
}
