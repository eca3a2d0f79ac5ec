package ingest

import (
	"context"
	"fmt"
	"io"

	"roastledger/internal/core/apperror"
	"roastledger/internal/domain/catalogs/product"
	"roastledger/internal/domain/documents/purchase"
	"roastledger/internal/domain/documents/sale"
	"roastledger/pkg/logger"
)

// Importer pushes parsed workbook rows through the document services so
// imports get the same numbering, stock effects and audit trail as
// manual entry.
type Importer struct {
	sales     *sale.Service
	purchases *purchase.Service
	products  *product.Service
}

func NewImporter(sales *sale.Service, purchases *purchase.Service, products *product.Service) *Importer {
	return &Importer{sales: sales, purchases: purchases, products: products}
}

// Summary reports the outcome of one import run.
type Summary struct {
	Imported int          `json:"imported"`
	Skipped  int          `json:"skipped"`
	Warnings []RowWarning `json:"warnings,omitempty"`
}

// ImportSales parses a sales workbook and creates one sale per row.
// Product names seen in the file are registered in the catalog first.
// A failing row is skipped with a warning; the rest continue.
func (imp *Importer) ImportSales(ctx context.Context, r io.Reader) (Summary, error) {
	rows, warnings, err := ParseSalesWorkbook(r)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Warnings: warnings, Skipped: len(warnings)}

	if err := imp.RegisterProducts(ctx, ExtractProductNames(rows)); err != nil {
		return summary, err
	}

	for _, row := range rows {
		doc := &sale.Sale{
			Date:        row.Date,
			ProductName: row.ProductName,
			QuantityKg:  row.QuantityKg,
			UnitPrice:   row.UnitPrice,
			TotalAmount: row.TotalAmount,
			Customer:    row.Customer,
		}
		result, err := imp.sales.Create(ctx, doc)
		if err != nil {
			summary.Skipped++
			summary.Warnings = append(summary.Warnings, RowWarning{
				Line:    row.Line,
				Message: fmt.Sprintf("create sale: %v", err),
			})
			continue
		}
		for _, w := range result.Warnings {
			summary.Warnings = append(summary.Warnings, RowWarning{Line: row.Line, Message: w.Message})
		}
		summary.Imported++
	}

	logger.Info(ctx, "sales import finished",
		"imported", summary.Imported, "skipped", summary.Skipped)
	return summary, nil
}

// ImportPurchases parses a purchase workbook and creates one purchase
// per row.
func (imp *Importer) ImportPurchases(ctx context.Context, r io.Reader) (Summary, error) {
	rows, warnings, err := ParsePurchasesWorkbook(r)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Warnings: warnings, Skipped: len(warnings)}

	for _, row := range rows {
		doc := &purchase.Purchase{
			Date:        row.Date,
			BeanOrigin:  row.Bean.Origin,
			BeanProduct: row.Bean.Product,
			QuantityKg:  row.QuantityKg,
			TotalAmount: row.TotalAmount,
			Supplier:    row.Supplier,
		}
		if err := imp.purchases.Create(ctx, doc); err != nil {
			summary.Skipped++
			summary.Warnings = append(summary.Warnings, RowWarning{
				Line:    row.Line,
				Message: fmt.Sprintf("create purchase: %v", err),
			})
			continue
		}
		summary.Imported++
	}

	logger.Info(ctx, "purchase import finished",
		"imported", summary.Imported, "skipped", summary.Skipped)
	return summary, nil
}

// RegisterProducts ensures every name exists in the product catalog.
// Names already present are left as they are.
func (imp *Importer) RegisterProducts(ctx context.Context, names []string) error {
	for _, name := range names {
		p := &product.Product{Name: name}
		if err := imp.products.Create(ctx, p); err != nil {
			if apperror.IsDuplicate(err) {
				continue
			}
			return err
		}
	}
	return nil
}
