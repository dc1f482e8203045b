package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/funnel"
	"github.com/meikuraledutech/funnel/memory"
	"github.com/meikuraledutech/funnel/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, opts ...Option) *fiber.App {
	t.Helper()
	h := New(memory.New(), zap.NewNop(), metrics.NewCollector("test"), 2, opts...)
	return NewApp(h)
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func seedFunnel(t *testing.T, app *fiber.App) {
	t.Helper()
	status, _ := do(t, app, http.MethodPost, "/funnels", map[string]any{
		"id":   "quiz",
		"name": "Quiz",
		"stages": []funnel.Stage{
			{ID: "intro", Name: "Intro", Components: []funnel.Component{{ID: "t", Kind: funnel.KindText}}},
			{ID: "choice", Name: "Choice", Components: []funnel.Component{{
				ID:   "q",
				Kind: funnel.KindChoice,
				Options: []funnel.Option{
					{ID: "opt1", Destination: funnel.DestinationNext},
					{ID: "opt2", Destination: funnel.DestinationSpecific, DestinationStageID: "result"},
				},
			}}},
			{ID: "result", Name: "Result", Components: []funnel.Component{}},
		},
	})
	require.Equal(t, http.StatusCreated, status)
}

func TestAPI_CreateAndGetFunnel(t *testing.T) {
	app := newTestApp(t)
	seedFunnel(t, app)

	status, body := do(t, app, http.MethodGet, "/funnels/quiz", nil)
	require.Equal(t, http.StatusOK, status)
	var f funnel.Funnel
	require.NoError(t, json.Unmarshal(body, &f))
	assert.Equal(t, []string{"intro", "choice", "result"}, f.StageIDs())

	status, _ = do(t, app, http.MethodGet, "/funnels/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = do(t, app, http.MethodPost, "/funnels", map[string]any{"id": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "name: required")
}

func TestAPI_StageLifecycle(t *testing.T) {
	app := newTestApp(t)
	seedFunnel(t, app)

	status, body := do(t, app, http.MethodPost, "/funnels/quiz/stages", map[string]any{"name": "Extra", "index": 1})
	require.Equal(t, http.StatusCreated, status)
	var created snapshotResponse
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotNil(t, created.Stage)
	newID := created.Stage.ID
	assert.Equal(t, []string{"intro", newID, "choice", "result"}, created.Funnel.StageIDs())

	status, _ = do(t, app, http.MethodPatch, "/funnels/quiz/stages/"+newID, map[string]any{"name": "Renamed"})
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, http.MethodPatch, "/funnels/quiz/stages/missing", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, app, http.MethodPut, "/funnels/quiz/order", map[string]any{"stage_ids": []string{"intro", "choice"}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, body = do(t, app, http.MethodPut, "/funnels/quiz/order", map[string]any{
		"stage_ids": []string{"intro", "choice", "result", newID},
	})
	require.Equal(t, http.StatusOK, status)
	var reordered snapshotResponse
	require.NoError(t, json.Unmarshal(body, &reordered))
	assert.Equal(t, []string{"intro", "choice", "result", newID}, reordered.Funnel.StageIDs())
	assert.True(t, reordered.Validation.OK())
	assert.Zero(t, reordered.Validation.Count(funnel.FindingUnreachableStage))

	status, _ = do(t, app, http.MethodDelete, "/funnels/quiz/stages/"+newID, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAPI_RemoveSurfacesDanglingReference(t *testing.T) {
	app := newTestApp(t)
	seedFunnel(t, app)

	status, body := do(t, app, http.MethodDelete, "/funnels/quiz/stages/result", nil)
	require.Equal(t, http.StatusOK, status)
	var resp snapshotResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Validation.Errors, 1)
	assert.Equal(t, funnel.FindingDanglingReference, resp.Validation.Errors[0].Kind)

	status, body = do(t, app, http.MethodGet, "/funnels/quiz/validation", nil)
	require.Equal(t, http.StatusOK, status)
	var report funnel.ValidationReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.False(t, report.OK())
}

func TestAPI_ComponentsPositionConnections(t *testing.T) {
	app := newTestApp(t)
	seedFunnel(t, app)

	status, _ := do(t, app, http.MethodPut, "/funnels/quiz/stages/intro/components", map[string]any{
		"components": []funnel.Component{{ID: "b", Kind: funnel.KindButton, ButtonAction: funnel.ButtonStage, ButtonTarget: "result"}},
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, http.MethodPut, "/funnels/quiz/stages/intro/position", map[string]any{"x": 1.5, "y": 2})
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, http.MethodPut, "/funnels/quiz/stages/intro/position", map[string]any{"x": 1.5})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := do(t, app, http.MethodPost, "/funnels/quiz/stages/intro/connections", map[string]any{
		"sourceBranchId": "b:button",
		"toStageId":      "choice",
	})
	require.Equal(t, http.StatusOK, status)
	var resp snapshotResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, 1, resp.Validation.Count(funnel.FindingConnectionMismatch))
	assert.Equal(t, &funnel.Position{X: 1.5, Y: 2}, resp.Funnel.Stages[0].Position)

	status, body = do(t, app, http.MethodDelete, "/funnels/quiz/stages/intro/connections", map[string]any{
		"sourceBranchId": "b:button",
		"toStageId":      "choice",
	})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Zero(t, resp.Validation.Count(funnel.FindingConnectionMismatch))
}

func TestAPI_GraphAndReport(t *testing.T) {
	app := newTestApp(t)
	seedFunnel(t, app)

	status, body := do(t, app, http.MethodGet, "/funnels/quiz/graph", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"branch_id":"q:opt2"`)

	for _, tr := range []map[string]any{
		{"visited_stage_ids": []string{"intro", "choice", "result"}, "completed": true},
		{"visited_stage_ids": []string{"intro", "choice"}},
	} {
		status, _ = do(t, app, http.MethodPost, "/funnels/quiz/sessions", tr)
		require.Equal(t, http.StatusCreated, status)
	}

	status, _ = do(t, app, http.MethodPost, "/funnels/quiz/sessions", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, app, http.MethodPost, "/funnels/nope/sessions", map[string]any{"visited_stage_ids": []string{"a"}})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = do(t, app, http.MethodGet, "/funnels/quiz/report", nil)
	require.Equal(t, http.StatusOK, status)
	var report funnel.FunnelReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, map[string]int{"intro": 2, "choice": 2, "result": 1}, report.StageVisits)
	require.NotNil(t, report.DropOff["choice"])
	assert.InDelta(t, 0.5, *report.DropOff["choice"], 1e-9)
	assert.InDelta(t, 0.5, report.EdgeCount("choice", "q:opt2"), 1e-9)
}

func TestAPI_Metrics(t *testing.T) {
	app := newTestApp(t)
	seedFunnel(t, app)
	do(t, app, http.MethodGet, "/funnels/quiz/validation", nil)

	status, body := do(t, app, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(string(body), "test_http_requests_total"))
}

func TestAPI_MetricsDisabled(t *testing.T) {
	app := newTestApp(t, ExposeMetrics(false))
	seedFunnel(t, app)

	status, _ := do(t, app, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, app, http.MethodGet, "/funnels/quiz/validation", nil)
	assert.Equal(t, http.StatusOK, status)
}
