package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/eportal/backend/models"
)

// Requests stores service requests with their documents and payments.
type Requests struct {
	db DB
}

// NewRequests constructs a request store over db.
func NewRequests(db DB) *Requests {
	return &Requests{db: db}
}

const summarySelect = `
    SELECT r.id, r.current_status, r.submitted_at, u.full_name, s.name, d.name,
           p.status, p.amount_cents, r.reviewed_by, ru.full_name
    FROM requests r
    JOIN users u ON u.id = r.citizen_id
    JOIN services s ON s.id = r.service_id
    JOIN departments d ON d.id = s.department_id
    LEFT JOIN LATERAL (
        SELECT status, amount_cents FROM payments
        WHERE request_id = r.id
        ORDER BY created_at DESC, id DESC
        LIMIT 1
    ) p ON TRUE
    LEFT JOIN officers ro ON ro.id = r.reviewed_by
    LEFT JOIN users ru ON ru.id = ro.user_id`

const detailSelect = `
    SELECT r.id, r.citizen_id, u.full_name, r.service_id, s.name, s.department_id, d.name,
           r.current_status, r.details, r.remarks, r.submitted_at, r.reviewed_by, r.reviewed_at,
           p.amount_cents, p.status
    FROM requests r
    JOIN users u ON u.id = r.citizen_id
    JOIN services s ON s.id = r.service_id
    JOIN departments d ON d.id = s.department_id
    LEFT JOIN LATERAL (
        SELECT status, amount_cents FROM payments
        WHERE request_id = r.id
        ORDER BY created_at DESC, id DESC
        LIMIT 1
    ) p ON TRUE`

// ListForCitizen returns the citizen's own requests, newest first.
func (s *Requests) ListForCitizen(ctx context.Context, citizenID int64, f models.CitizenFilter) ([]models.RequestSummary, error) {
	filter := NewFilter(citizenID)
	applyCitizenFilter(filter, f)
	return s.listSummaries(ctx, summarySelect+` WHERE r.citizen_id = $1`+filter.And()+` ORDER BY r.submitted_at DESC`, filter.Args())
}

// ListForDepartment returns the requests for services of departmentID.
func (s *Requests) ListForDepartment(ctx context.Context, departmentID int64, f models.RequestFilter) ([]models.RequestSummary, error) {
	filter := NewFilter(departmentID)
	applyStaffFilter(filter, f)
	return s.listSummaries(ctx, summarySelect+` WHERE s.department_id = $1`+filter.And()+` ORDER BY r.submitted_at DESC`, filter.Args())
}

// ListAll returns requests across every department.
func (s *Requests) ListAll(ctx context.Context, f models.RequestFilter) ([]models.RequestSummary, error) {
	filter := NewFilter()
	applyStaffFilter(filter, f)
	return s.listSummaries(ctx, summarySelect+filter.SQL()+` ORDER BY r.submitted_at DESC`, filter.Args())
}

func (s *Requests) listSummaries(ctx context.Context, query string, args []any) ([]models.RequestSummary, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	summaries := []models.RequestSummary{}
	for rows.Next() {
		var rs models.RequestSummary
		if err := rows.Scan(&rs.ID, &rs.Status, &rs.SubmittedAt, &rs.CitizenName, &rs.ServiceName, &rs.DepartmentName,
			&rs.PaymentStatus, &rs.FeeCents, &rs.ReviewedBy, &rs.ReviewerName); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		summaries = append(summaries, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return summaries, nil
}

// ForCitizen loads a request owned by citizenID. Requests of other citizens
// are reported as models.ErrNotFound.
func (s *Requests) ForCitizen(ctx context.Context, citizenID, requestID int64) (*models.RequestDetail, error) {
	detail, err := s.loadDetail(ctx, detailSelect+` WHERE r.id = $1 AND r.citizen_id = $2`, requestID, citizenID)
	if err != nil {
		return nil, err
	}
	if detail.Payments, err = s.payments(ctx, requestID); err != nil {
		return nil, err
	}
	return detail, nil
}

// ForDepartment loads a request for a service of departmentID.
func (s *Requests) ForDepartment(ctx context.Context, departmentID, requestID int64) (*models.RequestDetail, error) {
	return s.loadDetail(ctx, detailSelect+` WHERE r.id = $1 AND s.department_id = $2`, requestID, departmentID)
}

func (s *Requests) loadDetail(ctx context.Context, query string, args ...any) (*models.RequestDetail, error) {
	var d models.RequestDetail
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&d.ID, &d.CitizenID, &d.CitizenName, &d.ServiceID, &d.ServiceName, &d.DepartmentID, &d.DepartmentName,
		&d.Status, &d.Details, &d.Remarks, &d.SubmittedAt, &d.ReviewedBy, &d.ReviewedAt,
		&d.FeeCents, &d.PaymentStatus,
	)
	if err != nil {
		return nil, mapError(err)
	}
	if d.Documents, err = s.documents(ctx, d.ID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Requests) documents(ctx context.Context, requestID int64) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, request_id, file_name, file_path, COALESCE(mime_type, ''), created_at
         FROM documents WHERE request_id = $1 ORDER BY id`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.RequestID, &doc.FileName, &doc.FilePath, &doc.MimeType, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Requests) payments(ctx context.Context, requestID int64) ([]models.Payment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, request_id, amount_cents, status, created_at
         FROM payments WHERE request_id = $1 ORDER BY created_at`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	payments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Payment, error) {
		var p models.Payment
		err := row.Scan(&p.ID, &p.RequestID, &p.AmountCents, &p.Status, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return payments, nil
}

// Create persists a SUBMITTED request with its documents and payment in
// one transaction. An unknown or inactive service yields models.ErrNotFound.
func (s *Requests) Create(ctx context.Context, req models.NewRequest) (int64, error) {
	var requestID int64
	err := WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var active bool
		if err := tx.QueryRow(ctx, `SELECT is_active FROM services WHERE id = $1`, req.ServiceID).Scan(&active); err != nil {
			return err
		}
		if !active {
			return models.ErrNotFound
		}

		if err := tx.QueryRow(ctx,
			`INSERT INTO requests (citizen_id, service_id, details, current_status)
             VALUES ($1, $2, $3, $4)
             RETURNING id`,
			req.CitizenID, req.ServiceID, req.Details, models.StatusSubmitted,
		).Scan(&requestID); err != nil {
			return fmt.Errorf("insert request: %w", err)
		}

		if len(req.Documents) > 0 {
			batch := &pgx.Batch{}
			for _, doc := range req.Documents {
				batch.Queue(
					`INSERT INTO documents (request_id, file_name, file_path, mime_type) VALUES ($1, $2, $3, $4)`,
					requestID, doc.FileName, doc.FilePath, doc.MimeType,
				)
			}
			br := tx.SendBatch(ctx, batch)
			for range req.Documents {
				if _, err := br.Exec(); err != nil {
					br.Close()
					return fmt.Errorf("insert document: %w", err)
				}
			}
			if err := br.Close(); err != nil {
				return fmt.Errorf("insert documents: %w", err)
			}
		}

		status := models.PaymentSuccess
		if !req.PaymentOK {
			status = models.PaymentFailed
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO payments (request_id, amount_cents, status) VALUES ($1, $2, $3)`,
			requestID, req.AmountCents, status,
		); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, mapError(err)
	}
	return requestID, nil
}

// Review records an officer decision and the citizen notification in one
// transaction. Requests outside the officer's department are not found.
func (s *Requests) Review(ctx context.Context, review models.Review) error {
	err := WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var citizenID int64
		if err := tx.QueryRow(ctx,
			`UPDATE requests
             SET current_status = $1, reviewed_by = $2, reviewed_at = NOW()
             WHERE id = $3
               AND service_id IN (SELECT id FROM services WHERE department_id = $4)
             RETURNING citizen_id`,
			review.Status, review.OfficerID, review.RequestID, review.DepartmentID,
		).Scan(&citizenID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO notifications (user_id, message) VALUES ($1, $2)`,
			citizenID, review.Message,
		); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		return nil
	})
	return mapError(err)
}

// Document finds an attachment of a request in departmentID by its
// original file name.
func (s *Requests) Document(ctx context.Context, departmentID, requestID int64, fileName string) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRow(ctx,
		`SELECT doc.id, doc.request_id, doc.file_name, doc.file_path, COALESCE(doc.mime_type, ''), doc.created_at
         FROM documents doc
         JOIN requests r ON r.id = doc.request_id
         JOIN services s ON s.id = r.service_id
         WHERE doc.request_id = $1 AND doc.file_name = $2 AND s.department_id = $3
         ORDER BY doc.id
         LIMIT 1`,
		requestID, fileName, departmentID,
	).Scan(&doc.ID, &doc.RequestID, &doc.FileName, &doc.FilePath, &doc.MimeType, &doc.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &doc, nil
}

// applyCitizenFilter maps the dashboard filters onto predicates. PROCESSING
// and COMPLETED are groupings of request statuses; any other value matches
// either the request or its payment status.
func applyCitizenFilter(filter *Filter, f models.CitizenFilter) {
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := Contains(search)
		filter.Where(`(s.name ILIKE ? OR d.name ILIKE ?)`, pattern, pattern)
	}

	status := strings.ToUpper(strings.TrimSpace(f.Status))
	switch status {
	case "", "ALL":
	case "PROCESSING":
		filter.Where(`r.current_status = 'UNDER_REVIEW'`)
	case "COMPLETED":
		filter.Where(`r.current_status IN ('APPROVED', 'REJECTED')`)
	default:
		filter.Where(`(r.current_status = ? OR p.status = ?)`, status, status)
	}
}

func applyStaffFilter(filter *Filter, f models.RequestFilter) {
	filter.WhereIf(strings.TrimSpace(f.Name) != "", `u.full_name ILIKE ?`, Contains(strings.TrimSpace(f.Name)))
	filter.WhereIf(strings.TrimSpace(f.RequestID) != "", `CAST(r.id AS TEXT) LIKE ?`, Contains(strings.TrimSpace(f.RequestID)))
	filter.WhereIf(strings.TrimSpace(f.Status) != "", `r.current_status = ?`, strings.ToUpper(strings.TrimSpace(f.Status)))
	if f.ServiceID != nil {
		filter.Where(`s.id = ?`, *f.ServiceID)
	}
	if f.Date != nil {
		filter.Where(`r.submitted_at::date = ?`, *f.Date)
	}
}
