package sqlite

import (
	"context"

	"github.com/patientsportal/portal/internal/portal/domain"
)

type rolesRepo struct {
	db DBTX
}

func (r *rolesRepo) GetRoleByID(ctx context.Context, id string) (domain.Role, error) {
	var role domain.Role
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM roles WHERE id = ?`, id).Scan(&role.ID, &role.Name)
	return role, mapNotFound(err)
}

func (r *rolesRepo) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	var role domain.Role
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM roles WHERE name = ?`, name).Scan(&role.ID, &role.Name)
	return role, mapNotFound(err)
}

func (r *rolesRepo) ListAll(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}
