package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/funnel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to DATABASE_URL and recreates the schema.
// Tests are skipped when no database is configured.
func newTestStore(t *testing.T) *PGStore {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL is not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool)
	require.NoError(t, s.DropSchema(ctx))
	require.NoError(t, s.CreateSchema(ctx))
	t.Cleanup(func() { _ = s.DropSchema(context.Background()) })
	return s
}

func sampleFunnel() *funnel.Funnel {
	return &funnel.Funnel{
		ID:   "onboarding",
		Name: "Onboarding quiz",
		Stages: []funnel.Stage{
			{ID: "intro", Name: "Intro", Components: []funnel.Component{{ID: "t", Kind: funnel.KindText}}},
			{ID: "role", Name: "Role", Components: []funnel.Component{{
				ID:   "q",
				Kind: funnel.KindChoice,
				Options: []funnel.Option{
					{ID: "dev", Destination: funnel.DestinationNext},
					{ID: "design", Destination: funnel.DestinationSpecific, DestinationStageID: "result"},
				},
			}}, Position: &funnel.Position{X: 100, Y: 40}},
			{ID: "result", Name: "Result", Components: []funnel.Component{}},
		},
	}
}

func TestPGStore_FunnelRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f := sampleFunnel()
	require.NoError(t, s.SaveFunnel(ctx, f))

	got, err := s.GetFunnel(ctx, "onboarding")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f, got)

	// Replace semantics keep the new order.
	f.Stages[0], f.Stages[2] = f.Stages[2], f.Stages[0]
	require.NoError(t, s.SaveFunnel(ctx, f))
	got, err = s.GetFunnel(ctx, "onboarding")
	require.NoError(t, err)
	assert.Equal(t, []string{"result", "role", "intro"}, got.StageIDs())

	list, err := s.ListFunnels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []funnel.FunnelSummary{{ID: "onboarding", Name: "Onboarding quiz", StageCount: 3}}, list)
}

func TestPGStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetFunnel(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPGStore_Sessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveFunnel(ctx, sampleFunnel()))

	id, err := s.RecordSession(ctx, "onboarding", &funnel.SessionTrace{
		VisitedStageIDs: []string{"intro", "role"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = s.RecordSession(ctx, "onboarding", &funnel.SessionTrace{
		SessionID:       "s2",
		VisitedStageIDs: []string{"intro", "role", "result"},
		Completed:       true,
	})
	require.NoError(t, err)

	_, err = s.RecordSession(ctx, "missing", &funnel.SessionTrace{SessionID: "s3"})
	assert.ErrorIs(t, err, funnel.ErrFunnelNotFound)

	traces, err := s.ListSessions(ctx, "onboarding")
	require.NoError(t, err)
	require.Len(t, traces, 2)

	require.NoError(t, s.DeleteFunnel(ctx, "onboarding"))
	traces, err = s.ListSessions(ctx, "onboarding")
	require.NoError(t, err)
	assert.Empty(t, traces)
}

func TestPGStore_SessionIDsScopedPerFunnel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := sampleFunnel()
	b := sampleFunnel()
	b.ID = "onboarding-b"
	require.NoError(t, s.SaveFunnel(ctx, a))
	require.NoError(t, s.SaveFunnel(ctx, b))

	_, err := s.RecordSession(ctx, a.ID, &funnel.SessionTrace{
		SessionID:       "s1",
		VisitedStageIDs: []string{"intro", "role", "result"},
		Completed:       true,
	})
	require.NoError(t, err)
	_, err = s.RecordSession(ctx, b.ID, &funnel.SessionTrace{
		SessionID:       "s1",
		VisitedStageIDs: []string{"intro"},
	})
	require.NoError(t, err)

	traces, err := s.ListSessions(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, []string{"intro", "role", "result"}, traces[0].VisitedStageIDs)
	assert.True(t, traces[0].Completed)

	traces, err = s.ListSessions(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, []string{"intro"}, traces[0].VisitedStageIDs)
	assert.False(t, traces[0].Completed)

	_, err = s.RecordSession(ctx, b.ID, &funnel.SessionTrace{
		SessionID:       "s1",
		VisitedStageIDs: []string{"intro", "role"},
	})
	require.NoError(t, err)
	traces, err = s.ListSessions(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, []string{"intro", "role"}, traces[0].VisitedStageIDs)
}
