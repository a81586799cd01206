package importer

import (
	"errors"
	"fmt"
)

// Import error codes
const (
	ErrCodeRequiredField   = "REQUIRED_FIELD"
	ErrCodeInvalidURL      = "INVALID_URL"
	ErrCodeInvalidPrice    = "INVALID_PRICE"
	ErrCodeInvalidStock    = "INVALID_STOCK"
	ErrCodeInvalidCurrency = "INVALID_CURRENCY"
	ErrCodeInvalidBadge    = "INVALID_BADGE"
	ErrCodeForbiddenColumn = "FORBIDDEN_COLUMN"
	ErrCodeDuplicateInFile = "DUPLICATE_SOURCE_URL"
	ErrCodeBrandResolve    = "BRAND_RESOLVE_FAILED"
	ErrCodeWriteFailed     = "WRITE_FAILED"
)

// File-level errors fatal to the whole invocation.
var (
	ErrEmptyHeader      = errors.New("file has no header row")
	ErrInvalidEncoding  = errors.New("file is not valid UTF-8")
	ErrForbiddenColumns = errors.New("brand identity columns are not allowed in brand uploads")
)

// RowError is a blocking problem on one physical row. Rows carrying at least
// one RowError are excluded from all writes; the import itself continues.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// RowWarning is a non-blocking quality signal surfaced to the operator.
type RowWarning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ErrorCollection accumulates row errors up to a cap so a pathological file
// cannot balloon the result payload. Row counts stay exact past the cap.
type ErrorCollection struct {
	errors     []RowError
	rows       map[int]struct{}
	maxErrors  int
	totalCount int
}

func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 500
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0),
		rows:      make(map[int]struct{}),
		maxErrors: maxErrors,
	}
}

// Add records an error against its row.
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	ec.rows[err.Row] = struct{}{}
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

func (ec *ErrorCollection) Addf(row int, column, code, format string, args ...interface{}) {
	ec.Add(RowError{Row: row, Column: column, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Errors returns the collected errors, capped at maxErrors.
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// HasRow reports whether the given physical row carries any error.
func (ec *ErrorCollection) HasRow(row int) bool {
	_, ok := ec.rows[row]
	return ok
}

// RowCount returns the number of distinct rows carrying at least one error.
func (ec *ErrorCollection) RowCount() int {
	return len(ec.rows)
}

// TotalCount returns the total number of errors, including any dropped by
// the cap.
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated reports whether some errors were dropped by the cap.
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}
