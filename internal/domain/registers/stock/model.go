// Package stock provides the green bean stock register: a materialized
// per-bean balance plus an append-only transaction ledger.
package stock

import (
	"time"

	"roastledger/internal/core/id"
	"roastledger/internal/core/types"
	"roastledger/internal/domain/bean"
)

// EntryType classifies a ledger entry by the document action that caused it.
type EntryType string

const (
	EntryPurchase       EntryType = "purchase"
	EntryPurchaseEdit   EntryType = "purchase_edit"
	EntryPurchaseDelete EntryType = "purchase_delete"
	EntrySale           EntryType = "sale"
	EntrySaleEdit       EntryType = "sale_edit"
	EntrySaleDelete     EntryType = "sale_delete"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case EntryPurchase, EntryPurchaseEdit, EntryPurchaseDelete,
		EntrySale, EntrySaleEdit, EntrySaleDelete:
		return true
	}
	return false
}

// Entry is one stock mutation request: a signed delta against a bean's
// balance plus the ledger row describing it.
type Entry struct {
	Bean    bean.Bean
	DeltaKg types.Quantity // signed; positive adds stock
	Type    EntryType
	RefID   id.ID // originating purchase or sale
	Date    time.Time
	Note    string
}

// Transaction is one persisted ledger row.
type Transaction struct {
	ID          id.ID          `json:"id" db:"id"`
	Date        time.Time      `json:"date" db:"transaction_date"`
	Type        EntryType      `json:"type" db:"transaction_type"`
	BeanOrigin  string         `json:"beanOrigin" db:"bean_origin"`
	BeanProduct string         `json:"beanProduct" db:"bean_product"`
	DeltaKg     types.Quantity `json:"deltaKg" db:"quantity_kg"`
	RefID       id.ID          `json:"refId" db:"reference_id"`
	Note        string         `json:"note,omitempty" db:"note"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
}

// Bean returns the transaction's bean identity.
func (t Transaction) Bean() bean.Bean {
	return bean.Bean{Origin: t.BeanOrigin, Product: t.BeanProduct}
}

// Balance is the materialized current stock of one bean.
type Balance struct {
	BeanOrigin  string         `json:"beanOrigin" db:"bean_origin"`
	BeanProduct string         `json:"beanProduct" db:"bean_product"`
	QuantityKg  types.Quantity `json:"quantityKg" db:"quantity_kg"`
	UpdatedAt   time.Time      `json:"updatedAt" db:"updated_at"`
}

// Bean returns the balance's bean identity.
func (b Balance) Bean() bean.Bean {
	return bean.Bean{Origin: b.BeanOrigin, Product: b.BeanProduct}
}

// Inconsistency is one bean whose materialized balance disagrees with
// the sum of its ledger deltas.
type Inconsistency struct {
	Bean       bean.Bean      `json:"bean"`
	BalanceKg  types.Quantity `json:"balanceKg"`
	LedgerSum  types.Quantity `json:"ledgerSum"`
	DriftKg    types.Quantity `json:"driftKg"`
}
