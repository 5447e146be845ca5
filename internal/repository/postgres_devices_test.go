package repository

import (
	"context"
	"testing"
	"time"

	"beidao-data/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func deviceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "mac_address", "device_type", "name", "firmware_version",
		"user_id", "paired_device_id", "is_online", "last_seen_at", "created_at", "updated_at",
	})
}

func TestPostgresDevicesRepo_CreateDevice(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresDevicesRepo(db)

	mock.ExpectQuery(`INSERT INTO devices`).
		WithArgs("AA:BB:CC:DD:EE:01", "detector", "my detector", "1.0.0").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := repo.CreateDevice(context.Background(), &domain.Device{
		MACAddress:      "AA:BB:CC:DD:EE:01",
		DeviceType:      domain.DeviceTypeDetector,
		Name:            "my detector",
		FirmwareVersion: "1.0.0",
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDevicesRepo_CreateDevice_DuplicateMAC(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresDevicesRepo(db)

	mock.ExpectQuery(`INSERT INTO devices`).
		WithArgs("AA:BB:CC:DD:EE:01", "detector", "", "1.0.0").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err = repo.CreateDevice(context.Background(), &domain.Device{
		MACAddress:      "AA:BB:CC:DD:EE:01",
		DeviceType:      domain.DeviceTypeDetector,
		FirmwareVersion: "1.0.0",
	})
	require.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDevicesRepo_GetDevice_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresDevicesRepo(db)

	mock.ExpectQuery(`SELECT`).WithArgs(int64(42)).WillReturnRows(deviceRows())

	_, err = repo.GetDevice(context.Background(), 42)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDevicesRepo_ListDevices_Filters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresDevicesRepo(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM devices`).
		WithArgs("detector", "%EE:01%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT\s+id`).
		WithArgs("detector", "%EE:01%", 20, 0).
		WillReturnRows(deviceRows().AddRow(
			int64(1), "AA:BB:CC:DD:EE:01", "detector", "", "1.0.0",
			nil, nil, false, nil, now, now,
		))

	items, total, err := repo.ListDevices(context.Background(), DeviceFilters{
		DeviceType:    domain.DeviceTypeDetector,
		SearchKeyword: "EE:01",
	}, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, items, 1)
	require.Equal(t, "AA:BB:CC:DD:EE:01", items[0].MACAddress)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDevicesRepo_PairDevices_Transactional(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresDevicesRepo(db)

	mock.ExpectBegin()
	// 清旧配对反向引用
	mock.ExpectExec(`UPDATE devices SET paired_device_id = NULL`).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE devices SET paired_device_id = \$2`).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE devices SET paired_device_id = \$2`).
		WithArgs(int64(2), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.PairDevices(context.Background(), 1, 2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDevicesRepo_DeleteDevice_ClearsPartnerRef(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresDevicesRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE devices SET paired_device_id = NULL`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM devices`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteDevice(context.Background(), 5))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDevicesRepo_SetOnlineStatus_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresDevicesRepo(db)

	mock.ExpectExec(`UPDATE devices`).
		WithArgs(int64(9), true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.SetOnlineStatus(context.Background(), 9, true)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
