package database

import (
	"database/sql"
	"fmt"

	"beidao-data/internal/config"

	_ "github.com/lib/pq"
)

// NewPostgresDB 创建PostgreSQL数据库连接
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 连接池参数
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Bootstrap 建表（幂等）
func Bootstrap(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Close 关闭数据库连接
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		phone         VARCHAR(20) NOT NULL UNIQUE,
		password_hash VARCHAR(100) NOT NULL,
		nickname      VARCHAR(50) NOT NULL DEFAULT '',
		avatar_url    VARCHAR(255),
		is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		last_login_at TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS devices (
		id               BIGSERIAL PRIMARY KEY,
		mac_address      VARCHAR(17) NOT NULL UNIQUE,
		device_type      VARCHAR(20) NOT NULL,
		name             VARCHAR(50) NOT NULL DEFAULT '',
		firmware_version VARCHAR(20) NOT NULL DEFAULT '1.0.0',
		user_id          BIGINT,
		paired_device_id BIGINT,
		is_online        BOOLEAN NOT NULL DEFAULT FALSE,
		last_seen_at     TIMESTAMPTZ,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_user_id ON devices (user_id)`,
	`CREATE TABLE IF NOT EXISTS posture_logs (
		id           BIGSERIAL PRIMARY KEY,
		device_id    BIGINT NOT NULL,
		user_id      BIGINT NOT NULL,
		posture_type VARCHAR(50) NOT NULL,
		duration     INTEGER NOT NULL CHECK (duration >= 0),
		is_correct   BOOLEAN NOT NULL DEFAULT FALSE,
		recorded_at  TIMESTAMPTZ NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posture_logs_user_recorded ON posture_logs (user_id, recorded_at)`,
}
