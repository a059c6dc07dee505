package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/harborview/timetable-api/internal/dto"
	internalmiddleware "github.com/harborview/timetable-api/internal/middleware"
	"github.com/harborview/timetable-api/internal/models"
)

type optimizerRunnerMock struct {
	startReq   dto.StartRunRequest
	startActor string
}

func (m *optimizerRunnerMock) StartRun(_ context.Context, req dto.StartRunRequest, actorID string) (*dto.RunResponse, error) {
	m.startReq = req
	m.startActor = actorID
	return &dto.RunResponse{ID: "run-1", TermID: req.TermID, Status: string(models.RunStatusQueued)}, nil
}

func (m *optimizerRunnerMock) GetRunReport(context.Context, string) (*dto.RunReportResponse, error) {
	return &dto.RunReportResponse{Run: dto.RunResponse{ID: "run-1"}}, nil
}

func (m *optimizerRunnerMock) ListRuns(context.Context, string, int) ([]dto.RunResponse, error) {
	return nil, nil
}

func (m *optimizerRunnerMock) ListConfigs(context.Context) ([]dto.OptimizationConfigResponse, error) {
	return nil, nil
}

func (m *optimizerRunnerMock) CreateConfig(context.Context, dto.OptimizationConfigRequest) (*dto.OptimizationConfigResponse, error) {
	return &dto.OptimizationConfigResponse{ID: "cfg-1"}, nil
}

func (m *optimizerRunnerMock) UpdateConfig(context.Context, string, dto.OptimizationConfigRequest) (*dto.OptimizationConfigResponse, error) {
	return &dto.OptimizationConfigResponse{ID: "cfg-1"}, nil
}

func (m *optimizerRunnerMock) DeleteConfig(context.Context, string) error {
	return nil
}

func TestOptimizerStartRunAccepted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &optimizerRunnerMock{}
	h := &OptimizerHandler{service: mockSvc}

	req, _ := http.NewRequest(http.MethodPost, "/optimizer/runs", bytes.NewReader([]byte(`{"termId":"term-fall","seed":42}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: internalmiddleware.RoleAdmin})

	h.StartRun(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, "term-fall", mockSvc.startReq.TermID)
	require.Equal(t, int64(42), mockSvc.startReq.Seed)
	require.Equal(t, "admin-1", mockSvc.startActor)
}

func TestOptimizerStartRunBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &OptimizerHandler{service: &optimizerRunnerMock{}}

	req, _ := http.NewRequest(http.MethodPost, "/optimizer/runs", bytes.NewReader([]byte(`{"termId":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.StartRun(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOptimizerListRunsRequiresTerm(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &OptimizerHandler{service: &optimizerRunnerMock{}}

	req, _ := http.NewRequest(http.MethodGet, "/optimizer/runs", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.ListRuns(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOptimizerRunsUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &OptimizerHandler{service: &optimizerRunnerMock{}}
	router := gin.New()
	router.POST("/optimizer/runs", internalmiddleware.RequireRoles(internalmiddleware.RoleAdmin), h.StartRun)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/optimizer/runs", bytes.NewReader([]byte(`{"termId":"term-fall"}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptimizerRunsForbiddenForViewer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &OptimizerHandler{service: &optimizerRunnerMock{}}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "viewer-1", Role: internalmiddleware.RoleViewer})
		c.Next()
	})
	router.POST("/optimizer/runs", internalmiddleware.RequireRoles(internalmiddleware.RoleAdmin, internalmiddleware.RoleScheduler), h.StartRun)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/optimizer/runs", bytes.NewReader([]byte(`{"termId":"term-fall"}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}
