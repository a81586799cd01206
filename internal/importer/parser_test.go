package importer

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	t.Run("normalizes headers and trims cells", func(t *testing.T) {
		csv := "Product_Slug *,PRODUCT_NAME , product_url\n" +
			"navy-dress , Navy Dress ,https://shop.example.com/p/1\n"

		table, err := ParseCSV(strings.NewReader(csv))
		require.NoError(t, err)
		assert.Equal(t, []string{"product_slug", "product_name", "product_url"}, table.Header)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, "navy-dress", table.Rows[0].Get("product_slug"))
		assert.Equal(t, "Navy Dress", table.Rows[0].Get("product_name"))
	})

	t.Run("keeps physical line numbers across blank lines", func(t *testing.T) {
		csv := "product_slug,product_name\n" +
			"a,A\n" +
			"\n" +
			"b,B\n"

		table, err := ParseCSV(strings.NewReader(csv))
		require.NoError(t, err)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, 2, table.Rows[0].Line)
		assert.Equal(t, 4, table.Rows[1].Line)
	})

	t.Run("skips whitespace-only records", func(t *testing.T) {
		csv := "product_slug,product_name\n" +
			" , \n" +
			"a,A\n"

		table, err := ParseCSV(strings.NewReader(csv))
		require.NoError(t, err)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, 3, table.Rows[0].Line)
	})

	t.Run("strips UTF-8 BOM", func(t *testing.T) {
		csv := "\xEF\xBB\xBFproduct_slug\nabaya\n"

		table, err := ParseCSV(strings.NewReader(csv))
		require.NoError(t, err)
		assert.Equal(t, []string{"product_slug"}, table.Header)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, "abaya", table.Rows[0].Get("product_slug"))
	})

	t.Run("rejects non-UTF-8 input", func(t *testing.T) {
		// Latin-1 encoded "café" is not valid UTF-8.
		csv := "product_name\ncaf\xe9\n"

		_, err := ParseCSV(strings.NewReader(csv))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("empty file yields empty table", func(t *testing.T) {
		table, err := ParseCSV(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, table.Header)
		assert.Empty(t, table.Rows)
	})

	t.Run("header-only file yields no rows", func(t *testing.T) {
		table, err := ParseCSV(strings.NewReader("product_slug,product_name\n"))
		require.NoError(t, err)
		assert.Len(t, table.Header, 2)
		assert.Empty(t, table.Rows)
	})

	t.Run("ragged rows ignore extra cells", func(t *testing.T) {
		csv := "product_slug,product_name\na,A,extra\n"

		table, err := ParseCSV(strings.NewReader(csv))
		require.NoError(t, err)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, "a", table.Rows[0].Get("product_slug"))
		assert.Equal(t, "", table.Rows[0].Get("unknown"))
	})
}

func TestParseXLSX(t *testing.T) {
	buildXLSX := func(t *testing.T, sheet string, rows [][]interface{}) *bytes.Buffer {
		t.Helper()
		f := excelize.NewFile()
		defer f.Close()
		f.SetSheetName("Sheet1", sheet)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cell, &row))
		}
		buf, err := f.WriteToBuffer()
		require.NoError(t, err)
		return buf
	}

	t.Run("reads Catalog sheet with physical line numbers", func(t *testing.T) {
		buf := buildXLSX(t, "Catalog", [][]interface{}{
			{"Product_Slug *", "product_name"},
			{"navy-dress", "Navy Dress"},
			{"", ""},
			{"black-abaya", "Black Abaya"},
		})

		table, err := ParseXLSX(buf)
		require.NoError(t, err)
		assert.Equal(t, []string{"product_slug", "product_name"}, table.Header)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, 2, table.Rows[0].Line)
		assert.Equal(t, "navy-dress", table.Rows[0].Get("product_slug"))
		assert.Equal(t, 4, table.Rows[1].Line)
		assert.Equal(t, "black-abaya", table.Rows[1].Get("product_slug"))
	})

	t.Run("falls back to first sheet", func(t *testing.T) {
		buf := buildXLSX(t, "Data", [][]interface{}{
			{"product_slug"},
			{"navy-dress"},
		})

		table, err := ParseXLSX(buf)
		require.NoError(t, err)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, "navy-dress", table.Rows[0].Get("product_slug"))
	})

	t.Run("rejects non-spreadsheet input", func(t *testing.T) {
		_, err := ParseXLSX(strings.NewReader("not an xlsx file"))
		assert.Error(t, err)
	})
}

func TestCSVReadError(t *testing.T) {
	t.Run("reports the failed record's own line", func(t *testing.T) {
		err := csvReadError(&csv.ParseError{StartLine: 3, Line: 5, Err: csv.ErrQuote})
		assert.ErrorIs(t, err, csv.ErrQuote)
		assert.Contains(t, err.Error(), "line 5")
	})

	t.Run("passes non-parse errors through", func(t *testing.T) {
		err := csvReadError(io.ErrUnexpectedEOF)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		assert.NotContains(t, err.Error(), "malformed")
	})
}
