package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eportal/backend/models"
	"github.com/eportal/backend/rbac"
)

// Users is the credential store.
type Users struct {
	db DB
}

// NewUsers constructs a credential store over db.
func NewUsers(db DB) *Users {
	return &Users{db: db}
}

// FindActiveByEmail looks up an active account by exact email.
func (u *Users) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	row := u.db.QueryRow(ctx,
		`SELECT id, full_name, email, password_hash, national_id, date_of_birth, phone, is_active, created_at
         FROM users WHERE email = $1 AND is_active = TRUE`,
		email,
	)

	var user models.User
	if err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.PasswordHash, &user.NationalID,
		&user.DateOfBirth, &user.Phone, &user.IsActive, &user.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// AssignedRoles returns the role names linked to the user.
func (u *Users) AssignedRoles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := u.db.Query(ctx,
		`SELECT r.name FROM roles r
         JOIN users_roles ur ON ur.role_id = r.id
         WHERE ur.user_id = $1
         ORDER BY r.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan roles: %w", err)
	}
	return names, nil
}

// Affiliation returns the officer record of the user, or nil when there is none.
func (u *Users) Affiliation(ctx context.Context, userID int64) (*models.Affiliation, error) {
	row := u.db.QueryRow(ctx,
		`SELECT o.id, o.department_id, d.name, p.name
         FROM officers o
         JOIN departments d ON d.id = o.department_id
         JOIN positions p ON p.id = o.position_id
         WHERE o.user_id = $1`,
		userID,
	)

	var aff models.Affiliation
	if err := row.Scan(&aff.OfficerID, &aff.DepartmentID, &aff.DepartmentName, &aff.PositionName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load affiliation: %w", err)
	}
	return &aff, nil
}

// CreateUserWithRole inserts the user, looks up or creates the role and
// links them in one transaction.
func (u *Users) CreateUserWithRole(ctx context.Context, user models.NewUser, role string) (int64, error) {
	var userID int64
	err := WithTx(ctx, u.db, func(tx pgx.Tx) error {
		id, err := insertUser(ctx, tx, user)
		if err != nil {
			return err
		}
		if err := linkRole(ctx, tx, id, role); err != nil {
			return err
		}
		userID = id
		return nil
	})
	if err != nil {
		return 0, mapError(err)
	}
	return userID, nil
}

// CreateStaffUser creates an active account with the given role. OFFICER
// and DEPT_HEAD accounts also get an officer record in departmentID, with
// the position resolved by the role's name.
func (u *Users) CreateStaffUser(ctx context.Context, user models.NewUser, role string, departmentID *int64) (int64, error) {
	canonical := rbac.Canonical(role)
	needsOfficer := canonical == rbac.RoleOfficer || canonical == rbac.RoleDeptHead
	if needsOfficer && departmentID == nil {
		return 0, fmt.Errorf("%s requires a department", canonical)
	}

	var userID int64
	err := WithTx(ctx, u.db, func(tx pgx.Tx) error {
		id, err := insertUser(ctx, tx, user)
		if err != nil {
			return err
		}
		if err := linkRole(ctx, tx, id, role); err != nil {
			return err
		}
		if needsOfficer {
			var positionID int64
			if err := tx.QueryRow(ctx, `SELECT id FROM positions WHERE name = $1`, string(canonical)).Scan(&positionID); err != nil {
				return fmt.Errorf("resolve position %s: %w", canonical, err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO officers (user_id, department_id, position_id) VALUES ($1, $2, $3)`,
				id, *departmentID, positionID,
			); err != nil {
				return fmt.Errorf("insert officer: %w", err)
			}
		}
		userID = id
		return nil
	})
	if err != nil {
		return 0, mapError(err)
	}
	return userID, nil
}

func insertUser(ctx context.Context, q Querier, user models.NewUser) (int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`INSERT INTO users (full_name, email, password_hash, national_id, date_of_birth, phone, is_active)
         VALUES ($1, $2, $3, $4, $5, $6, TRUE)
         RETURNING id`,
		user.FullName, user.Email, user.PasswordHash, user.NationalID, user.DateOfBirth, user.Phone,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// linkRole looks up or creates the role by canonical name and links it.
func linkRole(ctx context.Context, q Querier, userID int64, role string) error {
	name := rbac.Canonical(role)
	if name == "" {
		return errors.New("role name is required")
	}

	var roleID int64
	err := q.QueryRow(ctx,
		`INSERT INTO roles (name) VALUES ($1)
         ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
         RETURNING id`,
		string(name),
	).Scan(&roleID)
	if err != nil {
		return fmt.Errorf("ensure role %s: %w", name, err)
	}

	if _, err := q.Exec(ctx,
		`INSERT INTO users_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, roleID,
	); err != nil {
		return fmt.Errorf("link role: %w", err)
	}
	return nil
}
