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
)

type enrollmentPlacerMock struct {
	placementReq dto.PlacementRunRequest
	promotedTerm string
	promotedUnit string
}

func (m *enrollmentPlacerMock) RunPlacement(_ context.Context, req dto.PlacementRunRequest) (*dto.PlacementSummaryResponse, error) {
	m.placementReq = req
	return &dto.PlacementSummaryResponse{TermID: req.TermID, Requests: 3, Enrolled: 2, Waitlisted: 1}, nil
}

func (m *enrollmentPlacerMock) GetWaitlist(context.Context, string) ([]dto.WaitlistEntryResponse, error) {
	return []dto.WaitlistEntryResponse{{ID: "w-1", Position: 1}}, nil
}

func (m *enrollmentPlacerMock) PromoteHead(_ context.Context, termID, unitID string) (*dto.WaitlistEntryResponse, error) {
	m.promotedTerm = termID
	m.promotedUnit = unitID
	return &dto.WaitlistEntryResponse{ID: "w-1", UnitID: unitID, Status: "PROMOTED"}, nil
}

func TestEnrollmentRunPlacement(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentPlacerMock{}
	h := &EnrollmentHandler{service: mockSvc}

	req, _ := http.NewRequest(http.MethodPost, "/enrollment/placements", bytes.NewReader([]byte(`{"termId":"term-fall","maxUnitsPerStudent":7}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.RunPlacement(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "term-fall", mockSvc.placementReq.TermID)
	require.Equal(t, 7, mockSvc.placementReq.MaxUnitsPerStudent)
}

func TestEnrollmentPromoteRequiresTerm(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &EnrollmentHandler{service: &enrollmentPlacerMock{}}

	req, _ := http.NewRequest(http.MethodPost, "/enrollment/waitlists/u-alg/promote", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "unitId", Value: "u-alg"}}

	h.Promote(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentPromote(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentPlacerMock{}
	h := &EnrollmentHandler{service: mockSvc}

	req, _ := http.NewRequest(http.MethodPost, "/enrollment/waitlists/u-alg/promote?termId=term-fall", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "unitId", Value: "u-alg"}}

	h.Promote(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "term-fall", mockSvc.promotedTerm)
	require.Equal(t, "u-alg", mockSvc.promotedUnit)
}
