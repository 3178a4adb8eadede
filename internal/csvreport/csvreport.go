package csvreport

import (
	"encoding/csv"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/eportal/backend/models"
)

var (
	departmentHeader   = []string{"RequestID", "Citizen", "Service", "Status", "SubmittedAt"}
	organizationHeader = []string{"RequestID", "Citizen", "Service", "Department", "Status", "SubmittedAt"}
)

// Write renders rows as CSV. The Department column is included only for
// organization-wide reports.
func Write(w io.Writer, rows []models.ReportRow, withDepartment bool) error {
	cw := csv.NewWriter(w)

	header := departmentHeader
	if withDepartment {
		header = organizationHeader
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{strconv.FormatInt(row.RequestID, 10), row.Citizen, row.Service}
		if withDepartment {
			record = append(record, row.Department)
		}
		record = append(record, row.Status, row.SubmittedAt.UTC().Format(time.RFC3339))
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Attach sets the headers for a CSV download named filename.
func Attach(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
}
