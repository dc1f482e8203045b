package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/funnel"
)

// SaveFunnel saves a full funnel snapshot (metadata + ordered stages) in one
// transaction, replacing whatever was stored under the same ID.
// A funnel without an ID gets an auto-generated UUID.
func (s *PGStore) SaveFunnel(ctx context.Context, f *funnel.Funnel) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("funnel: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO funnels (id, name) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()`,
		f.ID, f.Name,
	); err != nil {
		return fmt.Errorf("funnel: upsert funnel: %w", err)
	}

	// Replace semantics: stage rows are rewritten in their new order.
	if _, err := tx.Exec(ctx, `DELETE FROM funnel_stages WHERE funnel_id = $1`, f.ID); err != nil {
		return fmt.Errorf("funnel: delete stages: %w", err)
	}
	if err := insertStages(ctx, tx, f.ID, f.Stages); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("funnel: commit: %w", err)
	}
	return nil
}

// GetFunnel retrieves a funnel with its stages in traversal order.
// Returns nil, nil if the funnel doesn't exist.
func (s *PGStore) GetFunnel(ctx context.Context, funnelID string) (*funnel.Funnel, error) {
	f := &funnel.Funnel{ID: funnelID}
	err := s.db.QueryRow(ctx, `SELECT name FROM funnels WHERE id = $1`, funnelID).Scan(&f.Name)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("funnel: get funnel: %w", err)
	}

	stages, err := listStages(ctx, s.db, funnelID)
	if err != nil {
		return nil, err
	}
	f.Stages = stages
	return f, nil
}

// DeleteFunnel removes a funnel; its stages and sessions are cascade-deleted.
// No error if the funnel doesn't exist.
func (s *PGStore) DeleteFunnel(ctx context.Context, funnelID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM funnels WHERE id = $1`, funnelID); err != nil {
		return fmt.Errorf("funnel: delete funnel: %w", err)
	}
	return nil
}

// ListFunnels returns all funnels ordered by created_at.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListFunnels(ctx context.Context) ([]funnel.FunnelSummary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT f.id, f.name, COUNT(st.stage_id)
		FROM funnels f
		LEFT JOIN funnel_stages st ON st.funnel_id = f.id
		GROUP BY f.id, f.name, f.created_at
		ORDER BY f.created_at, f.id`)
	if err != nil {
		return nil, fmt.Errorf("funnel: list funnels: %w", err)
	}
	defer rows.Close()

	out := []funnel.FunnelSummary{}
	for rows.Next() {
		var sum funnel.FunnelSummary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.StageCount); err != nil {
			return nil, fmt.Errorf("funnel: scan funnel: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("funnel: rows funnels: %w", err)
	}
	return out, nil
}
