package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pipecrm/internal/catalog"
	"pipecrm/internal/model"
)

type stubLeadSource struct {
	leads       []model.Lead
	updateErr   error
	updateCalls int
}

func (s *stubLeadSource) ListByUser(ctx context.Context, userID int) ([]model.Lead, error) {
	return s.leads, nil
}

func (s *stubLeadSource) StageHistory(ctx context.Context, leadID int) ([]model.StageChange, error) {
	return nil, nil
}

func (s *stubLeadSource) UpdateStage(ctx context.Context, leadID int, stageID string) error {
	s.updateCalls++
	return s.updateErr
}

type stubAgendaSource struct {
	activities []model.Activity
}

func (s *stubAgendaSource) ListByUser(ctx context.Context, userID int) ([]model.Activity, error) {
	return s.activities, nil
}

func testStages() *catalog.StatusCatalog {
	return catalog.NewStatusCatalog([]model.Stage{
		{ID: "new", Label: "New", OrderIndex: 0},
		{ID: "contacted", Label: "Contacted", OrderIndex: 1},
		{ID: "won", Label: "Won", OrderIndex: 2, IsTerminal: true},
	})
}

func newTestRouter(register func(*gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", 7)
		c.Next()
	})
	register(r)
	return r
}

func TestMoveStageCommitsAndReturnsGrouping(t *testing.T) {
	store := &stubLeadSource{leads: []model.Lead{
		{ID: 1, UserID: 7, Name: "Acme", StageID: "new"},
	}}
	h := NewBoardHandler(testStages(), store, zap.NewNop())
	r := newTestRouter(func(r *gin.Engine) {
		r.POST("/board/leads/:id/stage", h.MoveStage)
	})

	body := bytes.NewBufferString(`{"target_stage_id":"contacted"}`)
	req := httptest.NewRequest(http.MethodPost, "/board/leads/1/stage", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, store.updateCalls)

	var resp struct {
		Status       string                  `json:"status"`
		LeadsByStage map[string][]model.Lead `json:"leads_by_stage"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.Len(t, resp.LeadsByStage["contacted"], 1)
	require.Empty(t, resp.LeadsByStage["new"])
}

func TestMoveStageUnknownStageRejected(t *testing.T) {
	store := &stubLeadSource{leads: []model.Lead{
		{ID: 1, UserID: 7, Name: "Acme", StageID: "new"},
	}}
	h := NewBoardHandler(testStages(), store, zap.NewNop())
	r := newTestRouter(func(r *gin.Engine) {
		r.POST("/board/leads/:id/stage", h.MoveStage)
	})

	body := bytes.NewBufferString(`{"target_stage_id":"nonsense"}`)
	req := httptest.NewRequest(http.MethodPost, "/board/leads/1/stage", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Zero(t, store.updateCalls)
}

func TestMoveStagePersistFailureRollsBack(t *testing.T) {
	store := &stubLeadSource{
		leads:     []model.Lead{{ID: 1, UserID: 7, Name: "Acme", StageID: "new"}},
		updateErr: errors.New("connection reset"),
	}
	h := NewBoardHandler(testStages(), store, zap.NewNop())
	r := newTestRouter(func(r *gin.Engine) {
		r.POST("/board/leads/:id/stage", h.MoveStage)
	})

	body := bytes.NewBufferString(`{"target_stage_id":"contacted"}`)
	req := httptest.NewRequest(http.MethodPost, "/board/leads/1/stage", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, 1, store.updateCalls)
}

func TestMoveStageUnknownLeadNotFound(t *testing.T) {
	store := &stubLeadSource{leads: []model.Lead{
		{ID: 1, UserID: 7, Name: "Acme", StageID: "new"},
	}}
	h := NewBoardHandler(testStages(), store, zap.NewNop())
	r := newTestRouter(func(r *gin.Engine) {
		r.POST("/board/leads/:id/stage", h.MoveStage)
	})

	body := bytes.NewBufferString(`{"target_stage_id":"contacted"}`)
	req := httptest.NewRequest(http.MethodPost, "/board/leads/99/stage", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Zero(t, store.updateCalls)
}

func TestGetAgendaBucketsByDay(t *testing.T) {
	ref := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	yesterday := ref.AddDate(0, 0, -1)
	tomorrow := ref.AddDate(0, 0, 1)

	src := &stubAgendaSource{activities: []model.Activity{
		{ID: 1, LeadID: 1, TypeID: "call", ScheduledAt: &yesterday},
		{ID: 2, LeadID: 1, TypeID: "call", ScheduledAt: &ref},
		{ID: 3, LeadID: 2, TypeID: "email", ScheduledAt: &tomorrow},
	}}
	h := NewAgendaHandler(src, zap.NewNop()).WithClock(func() time.Time { return ref })
	r := newTestRouter(func(r *gin.Engine) {
		r.GET("/agenda", h.GetAgenda)
	})

	req := httptest.NewRequest(http.MethodGet, "/agenda", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Overdue  []model.Activity `json:"overdue"`
		Today    []model.Activity `json:"today"`
		Tomorrow []model.Activity `json:"tomorrow"`
		Stats    struct {
			Pending int `json:"pending"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Overdue, 1)
	require.Len(t, resp.Today, 1)
	require.Len(t, resp.Tomorrow, 1)
	require.Equal(t, 3, resp.Stats.Pending)
}

func TestGetAgendaExcludesCompletedActivities(t *testing.T) {
	ref := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	yesterday := ref.AddDate(0, 0, -1)

	// Completed yesterday, scheduled for yesterday: done work, not
	// overdue work.
	src := &stubAgendaSource{activities: []model.Activity{
		{ID: 1, LeadID: 1, TypeID: "call", ScheduledAt: &yesterday, IsCompleted: true, CompletedAt: &yesterday},
	}}
	h := NewAgendaHandler(src, zap.NewNop()).WithClock(func() time.Time { return ref })
	r := newTestRouter(func(r *gin.Engine) {
		r.GET("/agenda", h.GetAgenda)
	})

	req := httptest.NewRequest(http.MethodGet, "/agenda", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Overdue  []model.Activity `json:"overdue"`
		Today    []model.Activity `json:"today"`
		Tomorrow []model.Activity `json:"tomorrow"`
		Upcoming []model.Activity `json:"upcoming"`
		Stats    struct {
			Pending int `json:"pending"`
			Overdue int `json:"overdue"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Empty(t, resp.Overdue)
	require.Empty(t, resp.Today)
	require.Empty(t, resp.Tomorrow)
	require.Empty(t, resp.Upcoming)
	require.Zero(t, resp.Stats.Pending)
	require.Zero(t, resp.Stats.Overdue)
}
