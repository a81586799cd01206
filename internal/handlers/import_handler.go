package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"catalog-service/internal/config"
	"catalog-service/internal/events"
	"catalog-service/internal/importer"
	"catalog-service/internal/middleware"
	"catalog-service/internal/models"
	"catalog-service/internal/repository"
)

type ImportHandler struct {
	repo      *repository.CatalogRepository
	engine    *importer.Engine
	publisher *events.Publisher
	cfg       *config.Config
	logger    *logrus.Entry
}

func NewImportHandler(repo *repository.CatalogRepository, engine *importer.Engine, publisher *events.Publisher, cfg *config.Config, logger *logrus.Logger) *ImportHandler {
	return &ImportHandler{
		repo:      repo,
		engine:    engine,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.WithField("component", "import-handler"),
	}
}

// scope derives the import scope from the route context: tenant routes carry
// a brand set by BrandMiddleware, admin routes do not.
func (h *ImportHandler) scope(c *gin.Context) importer.Scope {
	if brandID, ok := middleware.GetBrandID(c); ok {
		return importer.Scope{
			Mode:    importer.ModeBrand,
			BrandID: brandID,
			ActorID: middleware.GetActorID(c),
		}
	}
	return importer.Scope{
		Mode:    importer.ModeAdmin,
		ActorID: middleware.GetActorID(c),
	}
}

// GetImportTemplate returns the import template definition or file
// GET /api/v1/catalog/import/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	adminMode := h.scope(c).Mode == importer.ModeAdmin
	template := models.CatalogImportTemplate(adminMode)

	switch format {
	case "csv":
		h.generateCSVTemplate(c, template)
	case "xlsx":
		h.generateXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

// generateCSVTemplate generates and downloads a CSV template (headers only)
func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=catalog_import_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)
}

// generateXLSXTemplate generates and downloads an Excel template
func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Catalog"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		if col.Required {
			headerText = col.Name + " *"
		}
		f.SetCellValue(sheetName, cell, headerText)

		if col.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 22)
	}

	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Catalog Import Instructions")

	f.SetCellValue("Instructions", "A3", "HOW IMPORTS WORK:")
	f.SetCellValue("Instructions", "A4", "- Each product is identified by its product_url. Re-importing the same URL updates the product instead of duplicating it.")
	f.SetCellValue("Instructions", "A5", "- Categories, occasions, materials and tags are created automatically the first time a slug appears.")
	f.SetCellValue("Instructions", "A6", "- Use dry run first: the response shows exactly what would be created, updated and deactivated, without changing anything.")
	f.SetCellValue("Instructions", "A7", "- Sync mode deactivates your products that are missing from the file. Products are never deleted.")

	f.SetCellValue("Instructions", "A9", "Column Definitions:")
	f.SetCellValue("Instructions", "A10", "Column")
	f.SetCellValue("Instructions", "B10", "Description")
	f.SetCellValue("Instructions", "C10", "Required")
	f.SetCellValue("Instructions", "D10", "Type")
	f.SetCellValue("Instructions", "E10", "Example")

	for i, col := range template.Columns {
		row := i + 11
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Description)
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), required)
		f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), col.Type)
		f.SetCellValue("Instructions", fmt.Sprintf("E%d", row), col.Example)
	}

	f.SetColWidth("Instructions", "A", "A", 25)
	f.SetColWidth("Instructions", "B", "B", 70)
	f.SetColWidth("Instructions", "C", "C", 15)
	f.SetColWidth("Instructions", "D", "D", 15)
	f.SetColWidth("Instructions", "E", "E", 45)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=catalog_import_template.xlsx")

	f.Write(c.Writer)
}

// ImportCatalog runs one import invocation from an uploaded CSV/XLSX file
// POST /api/v1/catalog/import
// Form fields: file (required), dryRun (default false), sync (default false)
func (h *ImportHandler) ImportCatalog(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_REQUIRED",
				Message: "Please upload a CSV or Excel file",
			},
		})
		return
	}
	defer file.Close()

	if h.cfg.MaxUploadBytes > 0 && header.Size > h.cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_TOO_LARGE",
				Message: fmt.Sprintf("File exceeds the %d byte upload limit", h.cfg.MaxUploadBytes),
			},
		})
		return
	}

	dryRun := c.DefaultPostForm("dryRun", "false") == "true"
	syncMode := c.DefaultPostForm("sync", "false") == "true"

	filename := header.Filename
	var table *importer.Table
	var parseErr error
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		table, parseErr = importer.ParseCSV(file)
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"):
		table, parseErr = importer.ParseXLSX(file)
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_FORMAT",
				Message: "Only CSV and XLSX files are supported",
			},
		})
		return
	}

	if parseErr != nil {
		code := "PARSE_ERROR"
		if errors.Is(parseErr, importer.ErrInvalidEncoding) {
			code = "INVALID_ENCODING"
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    code,
				Message: parseErr.Error(),
			},
		})
		return
	}

	if h.cfg.MaxImportRows > 0 && len(table.Rows) > h.cfg.MaxImportRows {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "TOO_MANY_ROWS",
				Message: fmt.Sprintf("File has %d rows, the limit is %d", len(table.Rows), h.cfg.MaxImportRows),
			},
		})
		return
	}

	scope := h.scope(c)
	in := importer.Input{
		Scope:    scope,
		Header:   table.Header,
		Rows:     table.Rows,
		FileName: filename,
		SyncMode: syncMode,
		DryRun:   dryRun,
	}

	var scopeBrand *uuid.UUID
	if scope.Mode == importer.ModeBrand {
		brandID := scope.BrandID
		scopeBrand = &brandID
	}

	if !dryRun {
		h.publisher.PublishImportStarted(c.Request.Context(), uuid.Nil, string(scope.Mode), filename, scope.ActorID, scopeBrand, syncMode)
	}

	result, err := h.engine.Run(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, importer.ErrForbiddenColumns) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "FORBIDDEN_COLUMNS",
					Message: err.Error(),
				},
			})
			return
		}

		h.logger.WithError(err).WithFields(logrus.Fields{
			"mode": scope.Mode,
			"file": filename,
		}).Error("Catalog import failed")

		if !dryRun {
			h.publisher.PublishImportFailed(c.Request.Context(), uuid.Nil, string(scope.Mode), filename, scopeBrand, err)
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "IMPORT_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	if !dryRun && result.JobID != nil {
		h.publisher.PublishImportCompleted(c.Request.Context(), *result.JobID, string(scope.Mode), filename, scopeBrand, importer.JobTotals{
			Total:       result.Plan.Total,
			Valid:       result.Plan.ValidCount,
			Invalid:     result.Plan.InvalidCount,
			Created:     result.Created,
			Updated:     result.Updated,
			Deactivated: result.Deactivated,
		})
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    result,
	})
}

// ListImportJobs lists the ledger records, newest first
// GET /api/v1/catalog/import/jobs
func (h *ImportHandler) ListImportJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.cfg.DefaultPageSize)))
	if limit > h.cfg.MaxPageSize {
		limit = h.cfg.MaxPageSize
	}

	var brandID *uuid.UUID
	if id, ok := middleware.GetBrandID(c); ok {
		brandID = &id
	}

	jobs, total, err := h.repo.ListImportJobs(c.Request.Context(), brandID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "LIST_FAILED",
				Message: "Failed to list import jobs",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"jobs":    jobs,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// GetImportJob retrieves one ledger record
// GET /api/v1/catalog/import/jobs/:id
func (h *ImportHandler) GetImportJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_JOB_ID",
				Message: "Job ID must be a valid UUID",
			},
		})
		return
	}

	var brandID *uuid.UUID
	if bid, ok := middleware.GetBrandID(c); ok {
		brandID = &bid
	}

	job, err := h.repo.GetImportJob(c.Request.Context(), id, brandID)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "JOB_NOT_FOUND",
				Message: "Import job not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    job,
	})
}
