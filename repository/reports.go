package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eportal/backend/models"
)

// Reports computes aggregate statistics and report rows.
type Reports struct {
	db Querier
}

// NewReports constructs a report reader over db.
func NewReports(db Querier) *Reports {
	return &Reports{db: db}
}

// DepartmentStats counts requests by outcome and sums successful payments
// for one department.
func (r *Reports) DepartmentStats(ctx context.Context, departmentID int64) (models.DepartmentStats, error) {
	var stats models.DepartmentStats
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
                COUNT(*) FILTER (WHERE r.current_status = 'APPROVED'),
                COUNT(*) FILTER (WHERE r.current_status = 'PENDING'),
                COUNT(*) FILTER (WHERE r.current_status = 'REJECTED'),
                COALESCE((
                    SELECT SUM(p.amount_cents) FROM payments p
                    JOIN requests pr ON pr.id = p.request_id
                    JOIN services ps ON ps.id = pr.service_id
                    WHERE p.status = 'SUCCESS' AND ps.department_id = $1
                ), 0)
         FROM requests r
         JOIN services s ON s.id = r.service_id
         WHERE s.department_id = $1`,
		departmentID,
	).Scan(&stats.TotalRequests, &stats.Approved, &stats.Pending, &stats.Rejected, &stats.FeeCollected)
	if err != nil {
		return stats, fmt.Errorf("department stats: %w", err)
	}
	return stats, nil
}

// DepartmentLoads returns the request count of every department, busiest first.
func (r *Reports) DepartmentLoads(ctx context.Context) ([]models.DepartmentLoad, error) {
	rows, err := r.db.Query(ctx,
		`SELECT d.id, d.name, COUNT(r.id) AS total_requests
         FROM departments d
         LEFT JOIN services s ON s.department_id = d.id
         LEFT JOIN requests r ON r.service_id = s.id
         GROUP BY d.id, d.name
         ORDER BY total_requests DESC, d.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("department loads: %w", err)
	}
	loads, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.DepartmentLoad, error) {
		var l models.DepartmentLoad
		err := row.Scan(&l.ID, &l.Name, &l.TotalRequests)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan department load: %w", err)
	}
	return loads, nil
}

// StatusCounts returns the number of requests per status.
func (r *Reports) StatusCounts(ctx context.Context) ([]models.StatusCount, error) {
	rows, err := r.db.Query(ctx,
		`SELECT current_status, COUNT(*) FROM requests GROUP BY current_status ORDER BY current_status`,
	)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	counts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.StatusCount, error) {
		var c models.StatusCount
		err := row.Scan(&c.Status, &c.Count)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan status count: %w", err)
	}
	return counts, nil
}

// TotalCollected sums every successful payment.
func (r *Reports) TotalCollected(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE status = 'SUCCESS'`,
	).Scan(&total); err != nil {
		return 0, fmt.Errorf("total collected: %w", err)
	}
	return total, nil
}

// ReportRows returns CSV rows, newest first. A nil departmentID covers the
// whole organization.
func (r *Reports) ReportRows(ctx context.Context, departmentID *int64) ([]models.ReportRow, error) {
	filter := NewFilter()
	if departmentID != nil {
		filter.Where(`s.department_id = ?`, *departmentID)
	}

	rows, err := r.db.Query(ctx,
		`SELECT r.id, u.full_name, s.name, d.name, r.current_status, r.submitted_at
         FROM requests r
         JOIN users u ON u.id = r.citizen_id
         JOIN services s ON s.id = r.service_id
         JOIN departments d ON d.id = s.department_id`+filter.SQL()+`
         ORDER BY r.submitted_at DESC`,
		filter.Args()...,
	)
	if err != nil {
		return nil, fmt.Errorf("report rows: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ReportRow, error) {
		var rr models.ReportRow
		err := row.Scan(&rr.RequestID, &rr.Citizen, &rr.Service, &rr.Department, &rr.Status, &rr.SubmittedAt)
		return rr, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan report row: %w", err)
	}
	return out, nil
}
