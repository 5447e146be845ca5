package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"beidao-data/internal/domain"

	"github.com/lib/pq"
)

const deviceColumns = `
	id,
	mac_address,
	device_type,
	name,
	firmware_version,
	user_id,
	paired_device_id,
	is_online,
	last_seen_at,
	created_at,
	updated_at`

type PostgresDevicesRepo struct {
	db *sql.DB
}

func NewPostgresDevicesRepo(db *sql.DB) *PostgresDevicesRepo {
	return &PostgresDevicesRepo{db: db}
}

func scanDevice(row interface{ Scan(...any) error }) (*domain.Device, error) {
	var d domain.Device
	if err := row.Scan(
		&d.ID,
		&d.MACAddress,
		&d.DeviceType,
		&d.Name,
		&d.FirmwareVersion,
		&d.UserID,
		&d.PairedDeviceID,
		&d.IsOnline,
		&d.LastSeenAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// isUniqueViolation PostgreSQL 唯一约束冲突 (23505)
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *PostgresDevicesRepo) CreateDevice(ctx context.Context, device *domain.Device) (int64, error) {
	q := `
		INSERT INTO devices (mac_address, device_type, name, firmware_version)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, q,
		device.MACAddress,
		device.DeviceType,
		device.Name,
		device.FirmwareVersion,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("mac address %s already registered: %w", device.MACAddress, domain.ErrConflict)
		}
		return 0, err
	}
	return id, nil
}

func (r *PostgresDevicesRepo) GetDevice(ctx context.Context, id int64) (*domain.Device, error) {
	q := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`
	d, err := scanDevice(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("device %d: %w", id, domain.ErrNotFound)
	}
	return d, err
}

func (r *PostgresDevicesRepo) GetDeviceByMAC(ctx context.Context, mac string) (*domain.Device, error) {
	q := `SELECT ` + deviceColumns + ` FROM devices WHERE mac_address = $1`
	d, err := scanDevice(r.db.QueryRowContext(ctx, q, mac))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("device %s: %w", mac, domain.ErrNotFound)
	}
	return d, err
}

func (r *PostgresDevicesRepo) ListDevices(ctx context.Context, filters DeviceFilters, page, size int) ([]*domain.Device, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	argN := 1

	if filters.DeviceType != "" {
		where = append(where, fmt.Sprintf("device_type = $%d", argN))
		args = append(args, filters.DeviceType)
		argN++
	}
	if filters.UserID > 0 {
		where = append(where, fmt.Sprintf("user_id = $%d", argN))
		args = append(args, filters.UserID)
		argN++
	}
	if filters.SearchKeyword != "" {
		// 区分大小写的子串匹配（MAC 或名称）
		where = append(where, fmt.Sprintf("(mac_address LIKE $%d OR name LIKE $%d)", argN, argN))
		args = append(args, "%"+filters.SearchKeyword+"%")
		argN++
	}

	queryCount := `SELECT COUNT(*) FROM devices WHERE ` + strings.Join(where, " AND ")
	var total int
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	q := `SELECT ` + deviceColumns + `
		FROM devices
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, id DESC
		LIMIT $` + fmt.Sprintf("%d", argN) + ` OFFSET $` + fmt.Sprintf("%d", argN+1)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*domain.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (r *PostgresDevicesRepo) ListDevicesByUser(ctx context.Context, userID int64) ([]*domain.Device, error) {
	q := `SELECT ` + deviceColumns + `
		FROM devices
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresDevicesRepo) UpdateDevice(ctx context.Context, id int64, upd DeviceUpdate) error {
	set := []string{"updated_at = NOW()"}
	args := []any{id}
	argN := 2
	if upd.Name != nil {
		set = append(set, fmt.Sprintf("name = $%d", argN))
		args = append(args, *upd.Name)
		argN++
	}
	if upd.FirmwareVersion != nil {
		set = append(set, fmt.Sprintf("firmware_version = $%d", argN))
		args = append(args, *upd.FirmwareVersion)
		argN++
	}

	q := "UPDATE devices SET " + strings.Join(set, ", ") + " WHERE id = $1"
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return requireRowAffected(res, "device", id)
}

func (r *PostgresDevicesRepo) SetOnlineStatus(ctx context.Context, id int64, online bool) error {
	// 置为在线即视为设备确认在线，刷新 last_seen_at（心跳语义）；置为离线不动
	q := `
		UPDATE devices
		SET is_online = $2,
		    last_seen_at = CASE WHEN $2 THEN NOW() ELSE last_seen_at END,
		    updated_at = NOW()
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, online)
	if err != nil {
		return err
	}
	return requireRowAffected(res, "device", id)
}

func (r *PostgresDevicesRepo) BindUser(ctx context.Context, deviceID, userID int64, name string) error {
	q := `
		UPDATE devices
		SET user_id = $2,
		    name = COALESCE(NULLIF($3, ''), name),
		    updated_at = NOW()
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, deviceID, userID, name)
	if err != nil {
		return err
	}
	return requireRowAffected(res, "device", deviceID)
}

func (r *PostgresDevicesRepo) UnbindUser(ctx context.Context, deviceID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET user_id = NULL, updated_at = NOW() WHERE id = $1`, deviceID)
	if err != nil {
		return err
	}
	return requireRowAffected(res, "device", deviceID)
}

func (r *PostgresDevicesRepo) ClearUserBindings(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE devices SET user_id = NULL, updated_at = NOW() WHERE user_id = $1`, userID)
	return err
}

func (r *PostgresDevicesRepo) PairDevices(ctx context.Context, detectorID, feedbackerID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. 清除双方旧配对设备的反向引用（避免悬挂的单向链接）
	if _, err := tx.ExecContext(ctx, `
		UPDATE devices SET paired_device_id = NULL, updated_at = NOW()
		WHERE paired_device_id IN ($1, $2) AND id NOT IN ($1, $2)`,
		detectorID, feedbackerID); err != nil {
		return err
	}

	// 2. 双向互指
	res, err := tx.ExecContext(ctx, `
		UPDATE devices SET paired_device_id = $2, updated_at = NOW() WHERE id = $1`,
		detectorID, feedbackerID)
	if err != nil {
		return err
	}
	if err := requireRowAffected(res, "device", detectorID); err != nil {
		return err
	}
	res, err = tx.ExecContext(ctx, `
		UPDATE devices SET paired_device_id = $2, updated_at = NOW() WHERE id = $1`,
		feedbackerID, detectorID)
	if err != nil {
		return err
	}
	if err := requireRowAffected(res, "device", feedbackerID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PostgresDevicesRepo) DeleteDevice(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 清除配对方指向本设备的引用，再删除
	if _, err := tx.ExecContext(ctx, `
		UPDATE devices SET paired_device_id = NULL, updated_at = NOW()
		WHERE paired_device_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if err := requireRowAffected(res, "device", id); err != nil {
		return err
	}

	return tx.Commit()
}

func requireRowAffected(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}
