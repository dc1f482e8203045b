package funnel

import (
	"context"
	"errors"
)

var (
	ErrStageNotFound  = errors.New("funnel: stage not found")
	ErrInvalidReorder = errors.New("funnel: reorder ids do not match current stages")
	ErrFunnelNotFound = errors.New("funnel: funnel not found")
)

// Store defines the contract for persisting funnel snapshots and session traces.
// Concurrent writers are last-write-wins; implementations do no merging.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Funnels (whole-snapshot operations)
	SaveFunnel(ctx context.Context, f *Funnel) error
	GetFunnel(ctx context.Context, funnelID string) (*Funnel, error)
	DeleteFunnel(ctx context.Context, funnelID string) error
	ListFunnels(ctx context.Context) ([]FunnelSummary, error)

	// Sessions
	RecordSession(ctx context.Context, funnelID string, trace *SessionTrace) (string, error)
	ListSessions(ctx context.Context, funnelID string) ([]SessionTrace, error)
}
