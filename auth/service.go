package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/eportal/backend/httpx"
	"github.com/eportal/backend/internal/timeutil"
	"github.com/eportal/backend/models"
	"github.com/eportal/backend/rbac"
)

var (
	// ErrInvalidCredentials never distinguishes an unknown email from a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRegistrationFailed is the only error registration surfaces.
	ErrRegistrationFailed = errors.New("could not create user")
)

// Credentials is the credential store consumed by the authentication service.
type Credentials interface {
	// FindActiveByEmail returns models.ErrNotFound for unknown or disabled accounts.
	FindActiveByEmail(ctx context.Context, email string) (*models.User, error)
	AssignedRoles(ctx context.Context, userID int64) ([]string, error)
	// Affiliation returns nil without error when the user has no officer record.
	Affiliation(ctx context.Context, userID int64) (*models.Affiliation, error)
	// CreateUserWithRole atomically creates the user, looks up or creates the
	// role and links them.
	CreateUserWithRole(ctx context.Context, user models.NewUser, role string) (int64, error)
}

// Registration is the citizen self-registration payload.
type Registration struct {
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	NationalID string `json:"national_id" validate:"omitempty,max=64"`
	DOB        string `json:"dob" validate:"omitempty"`
	Contact    string `json:"contact" validate:"omitempty,max=64"`
}

// Service authenticates principals against the credential store.
type Service struct {
	creds      Credentials
	bcryptCost int
	logger     *slog.Logger
	dummyHash  []byte
}

// NewService constructs the authentication service.
func NewService(creds Credentials, bcryptCost int, logger *slog.Logger) (*Service, error) {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", bcryptCost)
	}
	if logger == nil {
		logger = slog.Default()
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("portal-timing-equalizer"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Service{creds: creds, bcryptCost: bcryptCost, logger: logger, dummyHash: dummy}, nil
}

// HashPassword hashes a password with the configured cost.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login verifies credentials and derives the principal's roles and
// department affiliation.
func (s *Service) Login(ctx context.Context, email, password string) (*Principal, error) {
	user, err := s.creds.FindActiveByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	assigned, err := s.creds.AssignedRoles(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}

	principal := &Principal{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Roles:    rbac.Fold(assigned),
		Phone:    user.Phone,
	}
	if user.DateOfBirth != nil {
		dob := timeutil.FormatDate(*user.DateOfBirth)
		principal.DateOfBirth = &dob
	}

	aff, err := s.creds.Affiliation(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load officer affiliation: %w", err)
	}
	if aff != nil {
		officerID := aff.OfficerID
		deptID := aff.DepartmentID
		principal.OfficerID = &officerID
		principal.DepartmentID = &deptID
		if aff.DepartmentName != "" {
			name := aff.DepartmentName
			principal.DepartmentName = &name
		}
		principal.Roles = rbac.Fold(principal.Roles, aff.PositionName)
	}

	return principal, nil
}

// Register creates a citizen account. Every failure, including a duplicate
// email, is logged and reported as ErrRegistrationFailed.
func (s *Service) Register(ctx context.Context, reg Registration) error {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.TrimSpace(reg.Email)
	if err := httpx.Validate(reg); err != nil {
		s.logger.WarnContext(ctx, "registration rejected", slog.Any("error", err))
		return ErrRegistrationFailed
	}

	dob, err := timeutil.ParseOptionalDate(reg.DOB)
	if err != nil {
		s.logger.WarnContext(ctx, "registration rejected", slog.Any("error", err))
		return ErrRegistrationFailed
	}

	hash, err := s.HashPassword(reg.Password)
	if err != nil {
		s.logger.ErrorContext(ctx, "registration error", slog.Any("error", err))
		return ErrRegistrationFailed
	}

	user := models.NewUser{
		FullName:     reg.Name,
		Email:        reg.Email,
		PasswordHash: hash,
		NationalID:   optional(reg.NationalID),
		DateOfBirth:  dob,
		Phone:        optional(reg.Contact),
	}
	if _, err := s.creds.CreateUserWithRole(ctx, user, string(rbac.RoleCitizen)); err != nil {
		s.logger.ErrorContext(ctx, "registration error", slog.Any("error", err))
		return ErrRegistrationFailed
	}
	return nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
