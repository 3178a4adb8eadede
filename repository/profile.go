package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/eportal/backend/internal/timeutil"
	"github.com/eportal/backend/models"
)

// Profiles reads and edits the joined user profile.
type Profiles struct {
	db DB
}

// NewProfiles constructs a profile store over db.
func NewProfiles(db DB) *Profiles {
	return &Profiles{db: db}
}

// Profile loads the user with their officer record, department and roles.
func (p *Profiles) Profile(ctx context.Context, userID int64) (*models.Profile, error) {
	var prof models.Profile
	err := p.db.QueryRow(ctx,
		`SELECT u.id, u.full_name, u.email, u.phone, u.national_id, u.date_of_birth,
                COALESCE((
                    SELECT array_agg(r.name ORDER BY r.name)
                    FROM users_roles ur JOIN roles r ON r.id = ur.role_id
                    WHERE ur.user_id = u.id
                ), '{}'::text[]),
                o.department_id, d.name, o.nick_name, o.id
         FROM users u
         LEFT JOIN officers o ON o.user_id = u.id
         LEFT JOIN departments d ON d.id = o.department_id
         WHERE u.id = $1`,
		userID,
	).Scan(&prof.ID, &prof.FullName, &prof.Email, &prof.Phone, &prof.NationalID, &prof.DateOfBirth,
		&prof.Roles, &prof.DepartmentID, &prof.DepartmentName, &prof.NickName, &prof.OfficerID)
	if err != nil {
		return nil, mapError(err)
	}
	return &prof, nil
}

// UpdateProfile applies the edits to the user row and, for nick names, the
// officer row in one transaction. A blank full name is ignored; other blank
// values clear their column.
func (p *Profiles) UpdateProfile(ctx context.Context, userID int64, upd models.ProfileUpdate) error {
	// The filter doubles as an assignment list for the UPDATE.
	set := NewFilter()
	add := func(column string, value any) {
		set.Where(column+` = ?`, value)
	}

	if upd.FullName != nil && strings.TrimSpace(*upd.FullName) != "" {
		add("full_name", strings.TrimSpace(*upd.FullName))
	}
	if upd.Phone != nil {
		add("phone", blankToNil(*upd.Phone))
	}
	if upd.DateOfBirth != nil {
		dob, err := timeutil.ParseOptionalDate(*upd.DateOfBirth)
		if err != nil {
			return err
		}
		add("date_of_birth", dob)
	}

	return mapError(WithTx(ctx, p.db, func(tx pgx.Tx) error {
		if !set.Empty() {
			args := append(set.Args(), userID)
			query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, set.Join(", "), len(args))
			tag, err := tx.Exec(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("update user: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return models.ErrNotFound
			}
		}

		if upd.NickName != nil {
			if _, err := tx.Exec(ctx,
				`UPDATE officers SET nick_name = $1 WHERE user_id = $2`,
				blankToNil(*upd.NickName), userID,
			); err != nil {
				return fmt.Errorf("update officer: %w", err)
			}
		}
		return nil
	}))
}

func blankToNil(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
