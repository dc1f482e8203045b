package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/funnel"
)

// RecordSession stores one respondent's session trace for a funnel.
// If trace.SessionID is empty, a UUID is auto-generated. Session ids are
// scoped to their funnel; re-recording an id replaces that funnel's trace.
// Returns ErrFunnelNotFound if the funnel doesn't exist.
func (s *PGStore) RecordSession(ctx context.Context, funnelID string, trace *funnel.SessionTrace) (string, error) {
	if trace.SessionID == "" {
		trace.SessionID = uuid.NewString()
	}
	visited := trace.VisitedStageIDs
	if visited == nil {
		visited = []string{}
	}
	body, err := json.Marshal(visited)
	if err != nil {
		return "", fmt.Errorf("funnel: encode trace: %w", err)
	}

	ct, err := s.db.Exec(ctx,
		`INSERT INTO funnel_sessions (id, funnel_id, visited, completed)
		 SELECT $1, id, $3, $4 FROM funnels WHERE id = $2
		 ON CONFLICT (funnel_id, id) DO UPDATE SET visited = EXCLUDED.visited, completed = EXCLUDED.completed`,
		trace.SessionID, funnelID, body, trace.Completed,
	)
	if err != nil {
		return "", fmt.Errorf("funnel: insert session: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return "", funnel.ErrFunnelNotFound
	}
	return trace.SessionID, nil
}

// ListSessions returns all session traces of a funnel, ordered by recorded_at.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListSessions(ctx context.Context, funnelID string) ([]funnel.SessionTrace, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, visited, completed FROM funnel_sessions WHERE funnel_id = $1 ORDER BY recorded_at, id`, funnelID)
	if err != nil {
		return nil, fmt.Errorf("funnel: list sessions: %w", err)
	}
	defer rows.Close()

	traces := []funnel.SessionTrace{}
	for rows.Next() {
		var (
			tr      funnel.SessionTrace
			visited []byte
		)
		if err := rows.Scan(&tr.SessionID, &visited, &tr.Completed); err != nil {
			return nil, fmt.Errorf("funnel: scan session: %w", err)
		}
		if err := json.Unmarshal(visited, &tr.VisitedStageIDs); err != nil {
			return nil, fmt.Errorf("funnel: decode session %s: %w", tr.SessionID, err)
		}
		traces = append(traces, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("funnel: rows sessions: %w", err)
	}
	return traces, nil
}
