// Package bean defines the green bean identity shared by purchases,
// recipes and the stock register.
package bean

import (
	"fmt"
	"strings"

	"roastledger/internal/core/apperror"
)

// Bean identifies a green coffee bean by its natural key.
// Origin is the growing region ("Ethiopia Yirgacheffe"), Product the
// commercial name ("G1 Natural"). The pair is unique in stock.
type Bean struct {
	Origin  string `json:"origin" db:"bean_origin"`
	Product string `json:"product" db:"bean_product"`
}

// New returns a Bean with trimmed components.
func New(origin, product string) Bean {
	return Bean{
		Origin:  strings.TrimSpace(origin),
		Product: strings.TrimSpace(product),
	}
}

// FullName returns the display name used in warnings and reports.
func (b Bean) FullName() string {
	return fmt.Sprintf("%s - %s", b.Origin, b.Product)
}

// IsZero reports whether both components are empty.
func (b Bean) IsZero() bool {
	return b.Origin == "" && b.Product == ""
}

// Validate checks that both components are present.
func (b Bean) Validate() error {
	if strings.TrimSpace(b.Origin) == "" {
		return apperror.NewValidation("bean origin is required")
	}
	if strings.TrimSpace(b.Product) == "" {
		return apperror.NewValidation("bean product is required")
	}
	return nil
}
