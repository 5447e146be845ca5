package service

import (
	"context"
	"testing"

	"beidao-data/internal/domain"
	"beidao-data/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBindingService(t *testing.T) (BindingService, *repository.MemoryDevicesRepo) {
	t.Helper()
	repo := repository.NewMemoryDevicesRepo()
	return NewBindingService(repo, zap.NewNop()), repo
}

func TestBindDevice_CreatesUnknownMAC(t *testing.T) {
	svc, _ := newBindingService(t)

	device, err := svc.BindDevice(context.Background(), BindDeviceRequest{
		UserID:     1,
		MACAddress: "AA:BB:CC:DD:EE:01",
		DeviceType: domain.DeviceTypeDetector,
		Name:       "我的探测器",
	})
	require.NoError(t, err)
	require.True(t, device.UserID.Valid)
	require.Equal(t, int64(1), device.UserID.Int64)
	require.Equal(t, "我的探测器", device.Name)
}

func TestBindDevice_Idempotent(t *testing.T) {
	svc, _ := newBindingService(t)
	ctx := context.Background()

	first, err := svc.BindDevice(ctx, BindDeviceRequest{
		UserID:     1,
		MACAddress: "AA:BB:CC:DD:EE:01",
		DeviceType: domain.DeviceTypeDetector,
	})
	require.NoError(t, err)

	second, err := svc.BindDevice(ctx, BindDeviceRequest{
		UserID:     1,
		MACAddress: "AA:BB:CC:DD:EE:01",
		DeviceType: domain.DeviceTypeDetector,
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestBindDevice_ForeignOwnerConflict(t *testing.T) {
	svc, _ := newBindingService(t)
	ctx := context.Background()

	_, err := svc.BindDevice(ctx, BindDeviceRequest{
		UserID:     1,
		MACAddress: "AA:BB:CC:DD:EE:01",
		DeviceType: domain.DeviceTypeDetector,
	})
	require.NoError(t, err)

	_, err = svc.BindDevice(ctx, BindDeviceRequest{
		UserID:     2,
		MACAddress: "AA:BB:CC:DD:EE:01",
		DeviceType: domain.DeviceTypeDetector,
	})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestBindDevice_UnknownMACNeedsValidIdentity(t *testing.T) {
	svc, _ := newBindingService(t)

	_, err := svc.BindDevice(context.Background(), BindDeviceRequest{
		UserID:     1,
		MACAddress: "not-a-mac",
		DeviceType: domain.DeviceTypeDetector,
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestUnbindDevice_OnlyOwner(t *testing.T) {
	svc, _ := newBindingService(t)
	ctx := context.Background()

	device, err := svc.BindDevice(ctx, BindDeviceRequest{
		UserID:     1,
		MACAddress: "AA:BB:CC:DD:EE:01",
		DeviceType: domain.DeviceTypeDetector,
	})
	require.NoError(t, err)

	err = svc.UnbindDevice(ctx, device.ID, 2)
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	err = svc.UnbindDevice(ctx, device.ID, 1)
	require.NoError(t, err)

	devices, err := svc.ListUserDevices(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, devices)
}

func TestUnbindDevice_KeepsPairing(t *testing.T) {
	bindSvc, repo := newBindingService(t)
	pairSvc := NewPairingService(repo, zap.NewNop())
	ctx := context.Background()

	detector, err := bindSvc.BindDevice(ctx, BindDeviceRequest{
		UserID:     1,
		MACAddress: "AA:BB:CC:DD:EE:01",
		DeviceType: domain.DeviceTypeDetector,
	})
	require.NoError(t, err)
	feedbacker, err := bindSvc.BindDevice(ctx, BindDeviceRequest{
		UserID:     1,
		MACAddress: "AA:BB:CC:DD:EE:02",
		DeviceType: domain.DeviceTypeFeedbacker,
	})
	require.NoError(t, err)

	_, _, err = pairSvc.PairDevices(ctx, detector.ID, feedbacker.ID)
	require.NoError(t, err)

	// 解绑只影响归属，不影响配对
	require.NoError(t, bindSvc.UnbindDevice(ctx, detector.ID, 1))

	got, err := repo.GetDevice(ctx, detector.ID)
	require.NoError(t, err)
	require.False(t, got.UserID.Valid)
	require.True(t, got.PairedDeviceID.Valid)
	require.Equal(t, feedbacker.ID, got.PairedDeviceID.Int64)
}
