package depthead

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eportal/backend/auth"
	"github.com/eportal/backend/models"
)

type mockRequests struct {
	dept int64
}

func (m *mockRequests) ListForDepartment(_ context.Context, departmentID int64, _ models.RequestFilter) ([]models.RequestSummary, error) {
	m.dept = departmentID
	fee := int64(2500)
	reviewer := "Officer Bo"
	return []models.RequestSummary{{ID: 4, Status: models.StatusApproved, FeeCents: &fee, ReviewerName: &reviewer}}, nil
}

type mockReports struct {
	reportDept *int64
}

func (m *mockReports) DepartmentStats(context.Context, int64) (models.DepartmentStats, error) {
	return models.DepartmentStats{TotalRequests: 5, Approved: 2, Pending: 1, Rejected: 1, FeeCollected: 9000}, nil
}

func (m *mockReports) ReportRows(_ context.Context, departmentID *int64) ([]models.ReportRow, error) {
	m.reportDept = departmentID
	return []models.ReportRow{{
		RequestID:   4,
		Citizen:     "Ann Lee",
		Service:     "Permit",
		Department:  "Planning",
		Status:      models.StatusApproved,
		SubmittedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}}, nil
}

type mockCatalog struct{}

func (mockCatalog) DepartmentServices(context.Context, int64) ([]models.Service, error) {
	return []models.Service{{ID: 1, Name: "Permit"}}, nil
}

func headPrincipal() auth.Principal {
	dept := int64(8)
	return auth.Principal{ID: 2, Roles: []string{"DEPT_HEAD"}, DepartmentID: &dept}
}

func serve(h http.Handler, p auth.Principal, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDashboardCombinesStatsAndRequests(t *testing.T) {
	requests := &mockRequests{}
	h := NewHandler(requests, &mockReports{}, mockCatalog{}, nil).Routes()

	rec := serve(h, headPrincipal(), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(8), requests.dept)

	var page struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.EqualValues(t, 5, page.Data["total_requests"])
	assert.EqualValues(t, 9000, page.Data["fee_collected"])
	assert.Len(t, page.Data["requests"], 1)
}

func TestDownloadReportIsDepartmentScoped(t *testing.T) {
	reports := &mockReports{}
	h := NewHandler(&mockRequests{}, reports, mockCatalog{}, nil).Routes()

	rec := serve(h, headPrincipal(), "/download-report")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, reports.reportDept)
	assert.Equal(t, int64(8), *reports.reportDept)
	assert.Equal(t, "attachment; filename=dept_report.csv", rec.Header().Get("Content-Disposition"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "RequestID,Citizen,Service,Status,SubmittedAt", lines[0])
	assert.Equal(t, "4,Ann Lee,Permit,APPROVED,2024-01-02T03:04:05Z", lines[1])
}

func TestDashboardWithoutDepartment(t *testing.T) {
	h := NewHandler(&mockRequests{}, &mockReports{}, mockCatalog{}, nil).Routes()
	rec := serve(h, auth.Principal{ID: 2, Roles: []string{"DEPT_HEAD"}}, "/")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
