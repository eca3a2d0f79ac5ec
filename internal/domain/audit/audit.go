// Package audit defines the change-history contract used by document
// services. The persistent store lives in infrastructure/storage/postgres.
package audit

import (
	"context"

	"roastledger/internal/core/id"
)

// Action classifies an audited operation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionImport Action = "import"
)

// Recorder records document change history.
type Recorder interface {
	// Record appends one audit row describing a change to an entity.
	Record(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) error
}

// Noop is a Recorder that discards everything. Used in tests and in
// tools that run without an audit store.
type Noop struct{}

func (Noop) Record(context.Context, string, id.ID, Action, map[string]any) error { return nil }
