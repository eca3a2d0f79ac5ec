// Package ingest parses ERP spreadsheet exports into sale and purchase
// rows and feeds them through the regular document services.
package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"roastledger/internal/core/types"
	"roastledger/internal/domain/bean"
)

// vatRate is the multiplier between net and VAT-inclusive prices.
// ERP exports carry gross amounts; stored prices are net.
var vatRate = decimal.RequireFromString("1.1")

// SaleRow is one parsed sales line.
type SaleRow struct {
	Line        int
	Date        time.Time
	ProductName string
	QuantityKg  types.Quantity
	UnitPrice   types.MinorUnits // net of VAT
	TotalAmount types.MinorUnits // net of VAT
	Customer    string
}

// PurchaseRow is one parsed purchase line.
type PurchaseRow struct {
	Line        int
	Date        time.Time
	Bean        bean.Bean
	QuantityKg  types.Quantity
	TotalAmount types.MinorUnits
	Supplier    string
}

// RowWarning describes one skipped or suspicious workbook row.
type RowWarning struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Column aliases recognized in header rows, lowercased.
var (
	saleColumns = map[string][]string{
		"date":     {"date", "sale date", "sale_date", "일자", "판매일"},
		"product":  {"product", "product name", "item", "품목", "품명"},
		"quantity": {"quantity", "qty", "quantity_kg", "수량"},
		"price":    {"unit price", "price", "unit_price", "단가"},
		"customer": {"customer", "buyer", "거래처"},
	}
	purchaseColumns = map[string][]string{
		"date":     {"date", "purchase date", "purchase_date", "일자", "입고일"},
		"origin":   {"origin", "bean origin", "bean_origin", "원산지", "산지"},
		"product":  {"product", "bean product", "bean_product", "품목", "품명"},
		"quantity": {"quantity", "qty", "quantity_kg", "수량"},
		"amount":   {"amount", "total", "total_amount", "금액", "총액"},
		"supplier": {"supplier", "vendor", "공급처", "거래처"},
	}
)

// ParseSalesWorkbook reads the first sheet of a sales export.
// Unit prices in the workbook are VAT-inclusive; they are divided by 1.1
// before storage. Unparseable rows are skipped with a warning.
func ParseSalesWorkbook(r io.Reader) ([]SaleRow, []RowWarning, error) {
	rows, warnings, headerIdx, err := openSheet(r, saleColumns, []string{"date", "product", "quantity"})
	if err != nil {
		return nil, nil, err
	}

	var out []SaleRow
	for i, cells := range rows {
		line := i + 1
		if i <= headerIdx || isEmptyRow(cells) {
			continue
		}

		sr := SaleRow{Line: line}

		sr.Date, err = parseDate(cellAt(cells, colIdx(rows[headerIdx], saleColumns["date"])))
		if err != nil {
			warnings = append(warnings, RowWarning{Line: line, Message: fmt.Sprintf("bad date: %v", err)})
			continue
		}

		sr.ProductName = strings.TrimSpace(cellAt(cells, colIdx(rows[headerIdx], saleColumns["product"])))
		if sr.ProductName == "" {
			warnings = append(warnings, RowWarning{Line: line, Message: "missing product name"})
			continue
		}

		qty, err := parseDecimal(cellAt(cells, colIdx(rows[headerIdx], saleColumns["quantity"])))
		if err != nil || !qty.IsPositive() {
			warnings = append(warnings, RowWarning{Line: line, Message: "bad quantity"})
			continue
		}
		sr.QuantityKg = types.NewQuantityFromDecimal(qty)

		if c := colIdx(rows[headerIdx], saleColumns["price"]); c >= 0 {
			gross, err := parseDecimal(cellAt(cells, c))
			if err == nil && gross.IsPositive() {
				net := gross.Div(vatRate)
				sr.UnitPrice = types.NewMinorUnitsFromDecimal(net)
				sr.TotalAmount = types.NewMinorUnitsFromDecimal(net.Mul(qty))
			}
		}
		if c := colIdx(rows[headerIdx], saleColumns["customer"]); c >= 0 {
			sr.Customer = strings.TrimSpace(cellAt(cells, c))
		}

		out = append(out, sr)
	}
	return out, warnings, nil
}

// ParsePurchasesWorkbook reads the first sheet of a purchase export.
// Purchase amounts are already net; no VAT strip.
func ParsePurchasesWorkbook(r io.Reader) ([]PurchaseRow, []RowWarning, error) {
	rows, warnings, headerIdx, err := openSheet(r, purchaseColumns, []string{"date", "origin", "product", "quantity"})
	if err != nil {
		return nil, nil, err
	}

	var out []PurchaseRow
	for i, cells := range rows {
		line := i + 1
		if i <= headerIdx || isEmptyRow(cells) {
			continue
		}

		pr := PurchaseRow{Line: line}

		pr.Date, err = parseDate(cellAt(cells, colIdx(rows[headerIdx], purchaseColumns["date"])))
		if err != nil {
			warnings = append(warnings, RowWarning{Line: line, Message: fmt.Sprintf("bad date: %v", err)})
			continue
		}

		pr.Bean = bean.New(
			cellAt(cells, colIdx(rows[headerIdx], purchaseColumns["origin"])),
			cellAt(cells, colIdx(rows[headerIdx], purchaseColumns["product"])),
		)
		if err := pr.Bean.Validate(); err != nil {
			warnings = append(warnings, RowWarning{Line: line, Message: "missing bean origin or product"})
			continue
		}

		qty, err := parseDecimal(cellAt(cells, colIdx(rows[headerIdx], purchaseColumns["quantity"])))
		if err != nil || !qty.IsPositive() {
			warnings = append(warnings, RowWarning{Line: line, Message: "bad quantity"})
			continue
		}
		pr.QuantityKg = types.NewQuantityFromDecimal(qty)

		if c := colIdx(rows[headerIdx], purchaseColumns["amount"]); c >= 0 {
			if amount, err := parseDecimal(cellAt(cells, c)); err == nil {
				pr.TotalAmount = types.NewMinorUnitsFromDecimal(amount)
			}
		}
		if c := colIdx(rows[headerIdx], purchaseColumns["supplier"]); c >= 0 {
			pr.Supplier = strings.TrimSpace(cellAt(cells, c))
		}

		out = append(out, pr)
	}
	return out, warnings, nil
}

// ExtractProductNames returns the unique product names of parsed sales,
// in first-seen order.
func ExtractProductNames(rows []SaleRow) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range rows {
		if !seen[r.ProductName] {
			seen[r.ProductName] = true
			names = append(names, r.ProductName)
		}
	}
	return names
}

// openSheet loads the first sheet and locates the header row: the first
// row containing all required columns.
func openSheet(r io.Reader, columns map[string][]string, required []string) ([][]string, []RowWarning, int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, 0, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	headerIdx := -1
	for i, cells := range rows {
		found := 0
		for _, key := range required {
			if colIdx(cells, columns[key]) >= 0 {
				found++
			}
		}
		if found == len(required) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, nil, 0, fmt.Errorf("no header row with columns %v", required)
	}

	return rows, nil, headerIdx, nil
}

// colIdx finds the index of the first header cell matching any alias.
func colIdx(header []string, aliases []string) int {
	for i, cell := range header {
		c := strings.ToLower(strings.TrimSpace(cell))
		for _, a := range aliases {
			if c == a {
				return i
			}
		}
	}
	return -1
}

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

func isEmptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"01-02-06",
	"1/2/06",
	"2006-01-02 15:04:05",
}

// parseDate accepts common date strings and Excel serial numbers.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// Excel serial date (days since 1899-12-30).
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
		return epoch.AddDate(0, 0, int(serial)), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty number")
	}
	return decimal.NewFromString(s)
}
