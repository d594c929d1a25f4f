package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/pacific-edu/pacemis-api/internal/models"
)

// SystemUserRepository manages system-user profiles. No school scoping
// applies here; visibility is system-wide for system-level readers.
type SystemUserRepository struct {
	db *sqlx.DB
}

// NewSystemUserRepository constructs a SystemUserRepository.
func NewSystemUserRepository(db *sqlx.DB) *SystemUserRepository {
	return &SystemUserRepository{db: db}
}

const systemUserColumns = `su.id, su.user_id, su.organization, su.position_title,
        su.created_at, su.created_by, su.updated_at, su.updated_by,
        u.first_name, u.last_name, u.email`

// List returns system users filtered and paginated.
func (r *SystemUserRepository) List(ctx context.Context, filter models.SystemUserFilter) ([]models.SystemUserDetail, int, error) {
	base := `FROM system_user_profiles su JOIN users u ON u.id = su.user_id`
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.first_name) LIKE $%d OR LOWER(u.last_name) LIKE $%d OR LOWER(u.email) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Organization != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(su.organization) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Organization)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"last_name":    "u.last_name",
		"organization": "su.organization",
		"created_at":   "su.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "u.last_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s, su.id LIMIT %d OFFSET %d`,
		systemUserColumns, base, column, order, size, offset)

	var users []models.SystemUserDetail
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list system users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count system users: %w", err)
	}
	return users, total, nil
}

// FindByID fetches a system-user detail.
func (r *SystemUserRepository) FindByID(ctx context.Context, id string) (*models.SystemUserDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM system_user_profiles su JOIN users u ON u.id = su.user_id WHERE su.id = $1`, systemUserColumns)
	var detail models.SystemUserDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Update modifies a system-user profile.
func (r *SystemUserRepository) Update(ctx context.Context, profile *models.SystemUserProfile) error {
	const query = `UPDATE system_user_profiles SET organization = :organization, position_title = :position_title,
        updated_at = :updated_at, updated_by = :updated_by WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update system user: %w", err)
	}
	return nil
}
