package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/meikuraledutech/funnel"
)

// querier is the subset of pgxpool.Pool and pgx.Tx used for stage rows.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// insertStages writes stages with their slice index as order_index.
// The stage itself is stored as its JSON snapshot.
func insertStages(ctx context.Context, q querier, funnelID string, stages []funnel.Stage) error {
	for i, st := range stages {
		body, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("funnel: encode stage %s: %w", st.ID, err)
		}
		if _, err := q.Exec(ctx,
			`INSERT INTO funnel_stages (funnel_id, stage_id, order_index, body) VALUES ($1, $2, $3, $4)`,
			funnelID, st.ID, i, body,
		); err != nil {
			return fmt.Errorf("funnel: insert stage %s: %w", st.ID, err)
		}
	}
	return nil
}

// listStages returns a funnel's stages ordered by order_index.
// Returns an empty slice (not nil) if none found.
func listStages(ctx context.Context, q querier, funnelID string) ([]funnel.Stage, error) {
	rows, err := q.Query(ctx,
		`SELECT body FROM funnel_stages WHERE funnel_id = $1 ORDER BY order_index`, funnelID)
	if err != nil {
		return nil, fmt.Errorf("funnel: list stages: %w", err)
	}
	defer rows.Close()

	stages := []funnel.Stage{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("funnel: scan stage: %w", err)
		}
		var st funnel.Stage
		if err := json.Unmarshal(body, &st); err != nil {
			return nil, fmt.Errorf("funnel: decode stage: %w", err)
		}
		stages = append(stages, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("funnel: rows stages: %w", err)
	}
	return stages, nil
}
