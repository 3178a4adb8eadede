package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eportal/backend/models"
)

// Catalog reads departments and the services they offer.
type Catalog struct {
	db Querier
}

// NewCatalog constructs a catalog over db.
func NewCatalog(db Querier) *Catalog {
	return &Catalog{db: db}
}

const serviceSelect = `
    SELECT s.id, s.department_id, d.name, s.name, COALESCE(s.description, ''), s.is_active
    FROM services s
    JOIN departments d ON d.id = s.department_id`

// ActiveServices lists the services citizens can apply for.
func (c *Catalog) ActiveServices(ctx context.Context) ([]models.Service, error) {
	return c.services(ctx, serviceSelect+` WHERE s.is_active = TRUE ORDER BY d.name, s.name`)
}

// ActiveService returns one service open for applications, or
// models.ErrNotFound when it is unknown or inactive.
func (c *Catalog) ActiveService(ctx context.Context, serviceID int64) (*models.Service, error) {
	var s models.Service
	err := c.db.QueryRow(ctx, serviceSelect+` WHERE s.id = $1 AND s.is_active = TRUE`, serviceID).
		Scan(&s.ID, &s.DepartmentID, &s.DepartmentName, &s.Name, &s.Description, &s.IsActive)
	if err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}

// DepartmentServices lists the services of one department.
func (c *Catalog) DepartmentServices(ctx context.Context, departmentID int64) ([]models.Service, error) {
	return c.services(ctx, serviceSelect+` WHERE s.department_id = $1 ORDER BY s.name`, departmentID)
}

// AllServices lists every service.
func (c *Catalog) AllServices(ctx context.Context) ([]models.Service, error) {
	return c.services(ctx, serviceSelect+` ORDER BY s.name`)
}

func (c *Catalog) services(ctx context.Context, query string, args ...any) ([]models.Service, error) {
	rows, err := c.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	services, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Service, error) {
		var s models.Service
		err := row.Scan(&s.ID, &s.DepartmentID, &s.DepartmentName, &s.Name, &s.Description, &s.IsActive)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan service: %w", err)
	}
	return services, nil
}

// Departments lists departments by name.
func (c *Catalog) Departments(ctx context.Context) ([]models.Department, error) {
	rows, err := c.db.Query(ctx, `SELECT id, name FROM departments ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	depts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Department, error) {
		var d models.Department
		err := row.Scan(&d.ID, &d.Name)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan department: %w", err)
	}
	return depts, nil
}
