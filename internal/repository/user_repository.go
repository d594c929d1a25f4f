package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pacific-edu/pacemis-api/internal/authz"
	"github.com/pacific-edu/pacemis-api/internal/models"
)

// UserRepository manages authentication identities, group memberships and
// the profile facts the permission context is built from.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail fetches a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT id, email, password_hash, first_name, last_name, superuser, active, last_login, created_at, updated_at
        FROM users WHERE LOWER(email) = LOWER($1)`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID fetches a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, email, password_hash, first_name, last_name, superuser, active, last_login, created_at, updated_at
        FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// GroupsOf returns the group names a user belongs to, unfiltered. Unknown
// tags are kept; the classifier decides what carries privilege.
func (r *UserRepository) GroupsOf(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT g.name FROM groups g
        JOIN user_groups ug ON ug.group_id = g.id
        WHERE ug.user_id = $1 ORDER BY g.name`
	var names []string
	if err := r.db.SelectContext(ctx, &names, query, userID); err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}
	return names, nil
}

// ProfileKind reports which profile, if any, is attached to the user. Staff
// wins when both exist; storage does not forbid the overlap but the roles
// are treated as alternatives.
func (r *UserRepository) ProfileKind(ctx context.Context, userID string) (authz.ProfileKind, error) {
	var kind string
	const query = `SELECT CASE
            WHEN EXISTS (SELECT 1 FROM staff_profiles WHERE user_id = $1) THEN 'staff'
            WHEN EXISTS (SELECT 1 FROM system_user_profiles WHERE user_id = $1) THEN 'system'
            ELSE 'none'
        END`
	if err := r.db.GetContext(ctx, &kind, query, userID); err != nil {
		return authz.ProfileNone, fmt.Errorf("resolve profile kind: %w", err)
	}
	switch kind {
	case "staff":
		return authz.ProfileStaff, nil
	case "system":
		return authz.ProfileSystemUser, nil
	}
	return authz.ProfileNone, nil
}

// UserSchools returns the IDs of schools where the user's staff profile has
// an open-ended assignment. Users without a staff profile get an empty
// slice regardless of role; admin bypass is the caller's concern.
func (r *UserRepository) UserSchools(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT DISTINCT a.school_id FROM school_assignments a
        JOIN staff_profiles sp ON sp.id = a.staff_id
        WHERE sp.user_id = $1 AND a.end_date IS NULL
        ORDER BY a.school_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("load user schools: %w", err)
	}
	return ids, nil
}

// PendingUsers lists active accounts that have neither profile yet. These
// are the registrations awaiting a staff or system-user assignment.
func (r *UserRepository) PendingUsers(ctx context.Context) ([]models.User, error) {
	const query = `SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.superuser, u.active, u.last_login, u.created_at, u.updated_at
        FROM users u
        WHERE u.active = true
          AND NOT EXISTS (SELECT 1 FROM staff_profiles WHERE user_id = u.id)
          AND NOT EXISTS (SELECT 1 FROM system_user_profiles WHERE user_id = u.id)
        ORDER BY u.created_at DESC`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list pending users: %w", err)
	}
	return users, nil
}

// ReplaceGroups swaps a user's group memberships for the given set in one
// transaction. The delete and re-insert either both commit or neither does.
func (r *UserRepository) ReplaceGroups(ctx context.Context, userID string, groups []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin group reassignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM user_groups WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear groups: %w", err)
	}
	if len(groups) > 0 {
		const insert = `INSERT INTO user_groups (user_id, group_id)
            SELECT $1, g.id FROM groups g WHERE g.name = ANY($2)`
		if _, err = tx.ExecContext(ctx, insert, userID, pq.Array(groups)); err != nil {
			return fmt.Errorf("assign groups: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit group reassignment: %w", err)
	}
	return nil
}

// AssignStaffProfile creates a staff profile and sets the user's groups in
// one transaction.
func (r *UserRepository) AssignStaffProfile(ctx context.Context, profile *models.StaffProfile, groups []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin staff assignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO staff_profiles (id, user_id, staff_type, created_at, created_by, updated_at, updated_by)
        VALUES (:id, :user_id, :staff_type, :created_at, :created_by, :updated_at, :updated_by)`
	if _, err = tx.NamedExecContext(ctx, insert, profile); err != nil {
		return fmt.Errorf("create staff profile: %w", err)
	}
	if err = replaceGroupsTx(ctx, tx, profile.UserID, groups); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit staff assignment: %w", err)
	}
	return nil
}

// AssignSystemUserProfile creates a system-user profile and sets the user's
// groups in one transaction.
func (r *UserRepository) AssignSystemUserProfile(ctx context.Context, profile *models.SystemUserProfile, groups []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin system-user assignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO system_user_profiles (id, user_id, organization, position_title, created_at, created_by, updated_at, updated_by)
        VALUES (:id, :user_id, :organization, :position_title, :created_at, :created_by, :updated_at, :updated_by)`
	if _, err = tx.NamedExecContext(ctx, insert, profile); err != nil {
		return fmt.Errorf("create system-user profile: %w", err)
	}
	if err = replaceGroupsTx(ctx, tx, profile.UserID, groups); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit system-user assignment: %w", err)
	}
	return nil
}

func replaceGroupsTx(ctx context.Context, tx *sqlx.Tx, userID string, groups []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_groups WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear groups: %w", err)
	}
	if len(groups) == 0 {
		return nil
	}
	const insert = `INSERT INTO user_groups (user_id, group_id)
        SELECT $1, g.id FROM groups g WHERE g.name = ANY($2)`
	if _, err := tx.ExecContext(ctx, insert, userID, pq.Array(groups)); err != nil {
		return fmt.Errorf("assign groups: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps a successful authentication.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, userID, at); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// Exists reports whether a user row exists.
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	if err := r.db.GetContext(ctx, &one, `SELECT 1 FROM users WHERE id = $1 LIMIT 1`, id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check user: %w", err)
	}
	return true, nil
}
