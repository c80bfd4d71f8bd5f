// Package state provides the entity state and history store consumed by
// data-driven widgets.
package state

import (
	"context"
	"fmt"
	"time"
)

// Sample is one historical observation of an entity.
type Sample struct {
	At    time.Time
	Value float64
}

// Store resolves entity references to current values and time series.
type Store interface {
	// GetState returns the entity's current scalar state.
	GetState(ctx context.Context, id string) (string, error)

	// GetHistory returns the entity's samples within [start, end],
	// ordered by time ascending.
	GetHistory(ctx context.Context, id string, start, end time.Time) ([]Sample, error)
}

// NotFoundError reports an entity with no recorded state.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entity not found: %s", e.ID)
}
