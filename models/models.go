package models

import "time"

// Request statuses.
const (
	StatusSubmitted   = "SUBMITTED"
	StatusUnderReview = "UNDER_REVIEW"
	StatusPending     = "PENDING"
	StatusApproved    = "APPROVED"
	StatusRejected    = "REJECTED"
)

// Payment statuses.
const (
	PaymentSuccess = "SUCCESS"
	PaymentFailed  = "FAILED"
)

// User is a credential record.
type User struct {
	ID           int64      `json:"id"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	NationalID   *string    `json:"national_id,omitempty"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	Phone        *string    `json:"phone,omitempty"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewUser carries the fields needed to create a credential record.
// PasswordHash must already be hashed.
type NewUser struct {
	FullName     string
	Email        string
	PasswordHash string
	NationalID   *string
	DateOfBirth  *time.Time
	Phone        *string
}

// Affiliation is the officer record of a user with its department and
// position resolved.
type Affiliation struct {
	OfficerID      int64
	DepartmentID   int64
	DepartmentName string
	PositionName   string
}

type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Service struct {
	ID             int64  `json:"id"`
	DepartmentID   int64  `json:"department_id"`
	DepartmentName string `json:"department_name,omitempty"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	IsActive       bool   `json:"is_active"`
}

// RequestSummary is a row of a request listing. Optional columns are only
// populated by the listings that select them.
type RequestSummary struct {
	ID             int64     `json:"id"`
	Status         string    `json:"status"`
	SubmittedAt    time.Time `json:"submitted_at"`
	CitizenName    string    `json:"citizen_name,omitempty"`
	ServiceName    string    `json:"service_name"`
	DepartmentName string    `json:"department_name,omitempty"`
	PaymentStatus  *string   `json:"payment_status,omitempty"`
	FeeCents       *int64    `json:"fee_cents,omitempty"`
	ReviewedBy     *int64    `json:"reviewed_by,omitempty"`
	ReviewerName   *string   `json:"reviewer_name,omitempty"`
}

// RequestDetail is a single request with its attachments.
type RequestDetail struct {
	ID             int64      `json:"id"`
	CitizenID      int64      `json:"citizen_id"`
	CitizenName    string     `json:"citizen_name,omitempty"`
	ServiceID      int64      `json:"service_id"`
	ServiceName    string     `json:"service_name"`
	DepartmentID   int64      `json:"department_id"`
	DepartmentName string     `json:"department_name"`
	Status         string     `json:"status"`
	Details        *string    `json:"details,omitempty"`
	Remarks        *string    `json:"remarks,omitempty"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	ReviewedBy     *int64     `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	FeeCents       *int64     `json:"fee_cents,omitempty"`
	PaymentStatus  *string    `json:"payment_status,omitempty"`
	Documents      []Document `json:"documents"`
	Payments       []Payment  `json:"payments,omitempty"`
}

// NewRequest is a citizen application ready to be persisted together with
// its documents and payment.
type NewRequest struct {
	CitizenID   int64
	ServiceID   int64
	Details     *string
	Documents   []NewDocument
	AmountCents int64
	PaymentOK   bool
}

// CitizenFilter narrows a citizen's own request listing. Status accepts
// "All", "PROCESSING", "COMPLETED" or a raw request/payment status.
type CitizenFilter struct {
	Search string
	Status string
}

// RequestFilter narrows staff request listings. RequestID is matched as a
// substring of the id, the way staff type partial numbers.
type RequestFilter struct {
	Name      string     `json:"name,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
	Status    string     `json:"status,omitempty"`
	ServiceID *int64     `json:"service_id,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
}

// Empty reports whether no filter field is set.
func (f RequestFilter) Empty() bool {
	return f.Name == "" && f.RequestID == "" && f.Status == "" && f.ServiceID == nil && f.Date == nil
}

type Document struct {
	ID        int64     `json:"id"`
	RequestID int64     `json:"request_id"`
	FileName  string    `json:"file_name"`
	FilePath  string    `json:"-"`
	MimeType  string    `json:"mime_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDocument describes an already stored upload to attach to a request.
type NewDocument struct {
	FileName string
	FilePath string
	MimeType string
}

type Payment struct {
	ID          int64     `json:"id"`
	RequestID   int64     `json:"request_id"`
	AmountCents int64     `json:"amount_cents"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// DepartmentStats summarizes requests for one department.
type DepartmentStats struct {
	TotalRequests int64 `json:"total_requests"`
	Approved      int64 `json:"approved"`
	Pending       int64 `json:"pending"`
	Rejected      int64 `json:"rejected"`
	FeeCollected  int64 `json:"fee_collected"`
}

// DepartmentLoad is a request count per department.
type DepartmentLoad struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	TotalRequests int64  `json:"total_requests"`
}

// StatusCount is a request count per status.
type StatusCount struct {
	Status string `json:"current_status"`
	Count  int64  `json:"count"`
}

// ReportRow is one line of a CSV request report.
type ReportRow struct {
	RequestID   int64
	Citizen     string
	Service     string
	Department  string
	Status      string
	SubmittedAt time.Time
}

// Profile is the joined user view shown on the profile screen.
type Profile struct {
	ID             int64      `json:"id"`
	FullName       string     `json:"full_name"`
	Email          string     `json:"email"`
	Phone          *string    `json:"phone,omitempty"`
	NationalID     *string    `json:"national_id,omitempty"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`
	Roles          []string   `json:"roles"`
	DepartmentID   *int64     `json:"department_id,omitempty"`
	DepartmentName *string    `json:"department_name,omitempty"`
	NickName       *string    `json:"nick_name,omitempty"`
	OfficerID      *int64     `json:"officer_id,omitempty"`
}

// ProfileUpdate holds optional profile edits. Nil fields are left untouched;
// a non-nil empty string clears the column.
type ProfileUpdate struct {
	FullName    *string
	Phone       *string
	DateOfBirth *string
	NickName    *string
}

// Review is an officer decision on a request, applied together with the
// citizen notification it produces.
type Review struct {
	RequestID    int64
	DepartmentID int64
	OfficerID    int64
	Status       string
	Message      string
}
