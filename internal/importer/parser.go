package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// RawRow is one data row exactly as parsed from the uploaded file. Line is
// the 1-based physical line number (the header is line 1), matching what an
// operator sees in their spreadsheet.
type RawRow struct {
	Line   int
	Fields map[string]string
}

// Get returns the trimmed cell value for a column, or "" if absent.
func (r RawRow) Get(column string) string {
	return strings.TrimSpace(r.Fields[column])
}

// Table is a parsed tabular upload: normalized header names plus data rows
// in file order. Blank lines are skipped but do not disturb line numbering.
type Table struct {
	Header []string
	Rows   []RawRow
}

func normalizeHeader(cell string) string {
	h := strings.ToLower(strings.TrimSpace(cell))
	// Templates mark required columns with a trailing asterisk.
	h = strings.TrimSuffix(h, " *")
	return strings.TrimSpace(h)
}

// validUTF8Prefix validates a sampled prefix of the file. When the sample
// cuts the file mid-stream it may end inside a multi-byte rune, so up to
// three trailing bytes are allowed to be incomplete.
func validUTF8Prefix(p []byte, complete bool) bool {
	if complete {
		return utf8.Valid(p)
	}
	for trim := 0; trim <= 3 && trim < len(p); trim++ {
		if utf8.Valid(p[:len(p)-trim]) {
			return true
		}
	}
	return false
}

// csvReadError reports a failed CSV read at the line the csv package
// recorded for it. FieldPos cannot be used here: after a failed Read it
// still describes the previous record.
func csvReadError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("malformed CSV at line %d: %w", parseErr.Line, parseErr.Err)
	}
	return fmt.Errorf("failed to read file: %w", err)
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ParseCSV parses a CSV upload into a Table. The reader must be UTF-8; a
// leading BOM is stripped. Rows keep their physical line numbers even when
// blank lines appear between them.
func ParseCSV(r io.Reader) (*Table, error) {
	buf := bufio.NewReader(r)

	// UTF-8 BOM: 0xEF, 0xBB, 0xBF
	if peek, err := buf.Peek(3); err == nil && len(peek) == 3 &&
		peek[0] == 0xEF && peek[1] == 0xBB && peek[2] == 0xBF {
		_, _ = buf.Discard(3)
	}

	peek, err := buf.Peek(4096)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(peek) == 0 {
		return &Table{}, nil
	}
	if !validUTF8Prefix(peek, err == io.EOF) {
		return nil, ErrInvalidEncoding
	}

	reader := csv.NewReader(buf)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	headerRecord, err := reader.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	headers := make([]string, len(headerRecord))
	for i, cell := range headerRecord {
		headers[i] = normalizeHeader(cell)
	}

	table := &Table{Header: headers}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvReadError(err)
		}
		if isBlankRecord(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		fields := make(map[string]string, len(headers))
		for i, value := range record {
			if i < len(headers) && headers[i] != "" {
				fields[headers[i]] = strings.TrimSpace(value)
			}
		}
		table.Rows = append(table.Rows, RawRow{Line: line, Fields: fields})
	}

	return table, nil
}

// ParseXLSX parses an Excel upload into a Table, reading the "Catalog" sheet
// when present, otherwise the first sheet.
func ParseXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}
	sheetName := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, "Catalog") {
			sheetName = name
			break
		}
	}

	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(excelRows) == 0 {
		return &Table{}, nil
	}

	headers := make([]string, len(excelRows[0]))
	for i, cell := range excelRows[0] {
		headers[i] = normalizeHeader(cell)
	}

	table := &Table{Header: headers}
	for idx, excelRow := range excelRows[1:] {
		if isBlankRecord(excelRow) {
			continue
		}
		fields := make(map[string]string, len(headers))
		for i, value := range excelRow {
			if i < len(headers) && headers[i] != "" {
				fields[headers[i]] = strings.TrimSpace(value)
			}
		}
		// Header is physical line 1, so data row idx 0 is line 2.
		table.Rows = append(table.Rows, RawRow{Line: idx + 2, Fields: fields})
	}

	return table, nil
}
