package csvreport

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eportal/backend/models"
)

var rows = []models.ReportRow{
	{
		RequestID:   12,
		Citizen:     `Ann "Nan" Lee`,
		Service:     "Permit, residential",
		Department:  "Planning",
		Status:      models.StatusApproved,
		SubmittedAt: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	},
}

func TestWriteDepartmentReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rows, false))

	assert.Equal(t,
		"RequestID,Citizen,Service,Status,SubmittedAt\n"+
			`12,"Ann ""Nan"" Lee","Permit, residential",APPROVED,2024-05-01T09:30:00Z`+"\n",
		buf.String())
}

func TestWriteOrganizationReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rows, true))

	assert.Equal(t,
		"RequestID,Citizen,Service,Department,Status,SubmittedAt\n"+
			`12,"Ann ""Nan"" Lee","Permit, residential",Planning,APPROVED,2024-05-01T09:30:00Z`+"\n",
		buf.String())
}

func TestWriteEmptyReportHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil, false))
	assert.Equal(t, "RequestID,Citizen,Service,Status,SubmittedAt\n", buf.String())
}

func TestAttach(t *testing.T) {
	rec := httptest.NewRecorder()
	Attach(rec, "dept_report.csv")
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=dept_report.csv", rec.Header().Get("Content-Disposition"))
}
