package ingest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range rows {
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, val))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseSalesWorkbook(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"Monthly sales export"},
		{"Date", "Product", "Quantity", "Unit Price", "Customer"},
		{"2026-03-02", "House Blend", "2.5", "11000", "Blue Bottle Mart"},
		{"2026-03-03", "", "1", "11000", "x"},
		{"not-a-date", "House Blend", "1", "11000", "x"},
		{"2026-03-04", "Single Origin Drip", "1.000", "", ""},
	})

	rows, warnings, err := ParseSalesWorkbook(buf)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Len(t, warnings, 2)

	first := rows[0]
	assert.Equal(t, "House Blend", first.ProductName)
	assert.Equal(t, "2.500", first.QuantityKg.String())
	// 11000 gross / 1.1 = 10000 net
	assert.Equal(t, "10000.00", first.UnitPrice.String())
	assert.Equal(t, "25000.00", first.TotalAmount.String())
	assert.Equal(t, "Blue Bottle Mart", first.Customer)
	assert.Equal(t, 2026, first.Date.Year())

	// Missing price leaves money fields zero, row still imports.
	second := rows[1]
	assert.Equal(t, "Single Origin Drip", second.ProductName)
	assert.True(t, second.UnitPrice.IsZero())
}

func TestParseSalesWorkbook_NoHeader(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"just", "random", "cells"},
	})

	_, _, err := ParseSalesWorkbook(buf)
	assert.Error(t, err)
}

func TestParsePurchasesWorkbook(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"Date", "Origin", "Product", "Quantity", "Amount", "Supplier"},
		{"2026-02-10", "Ethiopia", "Yirgacheffe G1", "60", "1,380,000", "GreenCo"},
		{"2026-02-11", "Ethiopia", "", "10", "100000", "GreenCo"},
	})

	rows, warnings, err := ParsePurchasesWorkbook(buf)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "bean")

	row := rows[0]
	assert.Equal(t, "Ethiopia", row.Bean.Origin)
	assert.Equal(t, "Yirgacheffe G1", row.Bean.Product)
	assert.Equal(t, "60.000", row.QuantityKg.String())
	assert.Equal(t, "1380000.00", row.TotalAmount.String())
	assert.Equal(t, "GreenCo", row.Supplier)
}

func TestExtractProductNames(t *testing.T) {
	rows := []SaleRow{
		{ProductName: "House Blend"},
		{ProductName: "Single Origin Drip"},
		{ProductName: "House Blend"},
	}
	assert.Equal(t, []string{"House Blend", "Single Origin Drip"}, ExtractProductNames(rows))
}

func TestParseDate_Serial(t *testing.T) {
	// 45292 is 2024-01-01 in Excel serial days.
	d, err := parseDate("45292")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", d.Format("2006-01-02"))
}
