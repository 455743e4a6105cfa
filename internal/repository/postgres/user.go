package postgres

import (
	"context"
	"database/sql"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// UserRepository implements repository.UserDirectory using PostgreSQL.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// ManagerIDs lists the ids of the managers of a company.
func (r *UserRepository) ManagerIDs(ctx context.Context, companyID string) ([]string, error) {
	query := `SELECT id FROM users WHERE company_id = $1 AND role = $2 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, companyID, domain.RoleManager)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Ensure UserRepository implements repository.UserDirectory.
var _ repository.UserDirectory = (*UserRepository)(nil)
