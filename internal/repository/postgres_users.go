package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"beidao-data/internal/domain"
)

const userColumns = `
	id,
	phone,
	password_hash,
	nickname,
	avatar_url,
	is_admin,
	is_active,
	last_login_at,
	created_at,
	updated_at`

type PostgresUsersRepo struct {
	db *sql.DB
}

func NewPostgresUsersRepo(db *sql.DB) *PostgresUsersRepo {
	return &PostgresUsersRepo{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID,
		&u.Phone,
		&u.PasswordHash,
		&u.Nickname,
		&u.AvatarURL,
		&u.IsAdmin,
		&u.IsActive,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUsersRepo) CreateUser(ctx context.Context, user *domain.User) (int64, error) {
	q := `
		INSERT INTO users (phone, password_hash, nickname, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, q,
		user.Phone,
		user.PasswordHash,
		user.Nickname,
		user.IsAdmin,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("phone %s already registered: %w", user.Phone, domain.ErrConflict)
		}
		return 0, err
	}
	return id, nil
}

func (r *PostgresUsersRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return u, err
}

func (r *PostgresUsersRepo) GetUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, phone))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", phone, domain.ErrNotFound)
	}
	return u, err
}

func (r *PostgresUsersRepo) ListUsers(ctx context.Context, search string, page, size int) ([]*domain.User, int, error) {
	where := "TRUE"
	args := []any{}
	argN := 1
	if search != "" {
		where = fmt.Sprintf("(phone LIKE $%d OR nickname LIKE $%d)", argN, argN)
		args = append(args, "%"+search+"%")
		argN++
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	q := `SELECT ` + userColumns + `
		FROM users
		WHERE ` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $` + fmt.Sprintf("%d", argN) + ` OFFSET $` + fmt.Sprintf("%d", argN+1)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (r *PostgresUsersRepo) CountUserDevices(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM devices WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (r *PostgresUsersRepo) UpdateUser(ctx context.Context, id int64, upd UserUpdate) error {
	set := []string{"updated_at = NOW()"}
	args := []any{id}
	argN := 2
	add := func(col string, v any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argN))
		args = append(args, v)
		argN++
	}
	if upd.Nickname != nil {
		add("nickname", *upd.Nickname)
	}
	if upd.AvatarURL != nil {
		add("avatar_url", *upd.AvatarURL)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}

	q := "UPDATE users SET " + strings.Join(set, ", ") + " WHERE id = $1"
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return requireRowAffected(res, "user", id)
}

func (r *PostgresUsersRepo) UpdateLastLogin(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res, "user", id)
}

func (r *PostgresUsersRepo) DeleteUser(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 同事务清除该用户的设备绑定，避免悬挂 owner 引用
	if _, err := tx.ExecContext(ctx,
		`UPDATE devices SET user_id = NULL, updated_at = NOW() WHERE user_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if err := requireRowAffected(res, "user", id); err != nil {
		return err
	}

	return tx.Commit()
}
