package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"beidao-data/internal/domain"
	"beidao-data/internal/repository"
	"beidao-data/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBroker(t *testing.T) (*DeviceBroker, *repository.MemoryDevicesRepo, *repository.MemoryPostureLogsRepo) {
	t.Helper()
	logger := zap.NewNop()
	devicesRepo := repository.NewMemoryDevicesRepo()
	logsRepo := repository.NewMemoryPostureLogsRepo()
	broker := NewDeviceBroker(
		service.NewDeviceService(devicesRepo, logger),
		service.NewPostureService(logsRepo, logger),
		logger,
	)
	return broker, devicesRepo, logsRepo
}

func TestHandleStatus(t *testing.T) {
	broker, devicesRepo, _ := newBroker(t)
	ctx := context.Background()

	id, err := devicesRepo.CreateDevice(ctx, &domain.Device{
		MACAddress:      "AA:BB:CC:DD:EE:01",
		DeviceType:      domain.DeviceTypeDetector,
		FirmwareVersion: "1.0.0",
	})
	require.NoError(t, err)

	payload, _ := json.Marshal(map[string]any{"online": true, "firmware_version": "1.2.0"})
	require.NoError(t, broker.HandleMessage("beidao/devices/AA:BB:CC:DD:EE:01/status", payload))

	device, err := devicesRepo.GetDevice(ctx, id)
	require.NoError(t, err)
	require.True(t, device.IsOnline)
	require.True(t, device.LastSeenAt.Valid)
	require.Equal(t, "1.2.0", device.FirmwareVersion)
}

func TestHandleStatus_UnknownDevice(t *testing.T) {
	broker, _, _ := newBroker(t)

	payload, _ := json.Marshal(map[string]any{"online": true})
	err := broker.HandleMessage("beidao/devices/AA:BB:CC:DD:EE:99/status", payload)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHandlePostures(t *testing.T) {
	broker, devicesRepo, logsRepo := newBroker(t)
	ctx := context.Background()

	id, err := devicesRepo.CreateDevice(ctx, &domain.Device{
		MACAddress: "AA:BB:CC:DD:EE:01",
		DeviceType: domain.DeviceTypeDetector,
	})
	require.NoError(t, err)
	require.NoError(t, devicesRepo.BindUser(ctx, id, 7, ""))

	now := time.Now()
	payload, _ := json.Marshal(map[string]any{
		"events": []map[string]any{
			{"posture_type": "upright", "duration": 60, "is_correct": true, "recorded_at": now.Format(time.RFC3339)},
			{"posture_type": "hunched", "duration": 30, "is_correct": false, "recorded_at": now.Format(time.RFC3339)},
		},
	})
	require.NoError(t, broker.HandleMessage("beidao/devices/AA:BB:CC:DD:EE:01/postures", payload))

	logs, err := logsRepo.ListByUserAndDateRange(ctx, 7, now, now)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, id, logs[0].DeviceID)
}

func TestHandlePostures_UnboundDeviceDropped(t *testing.T) {
	broker, devicesRepo, logsRepo := newBroker(t)
	ctx := context.Background()

	_, err := devicesRepo.CreateDevice(ctx, &domain.Device{
		MACAddress: "AA:BB:CC:DD:EE:01",
		DeviceType: domain.DeviceTypeDetector,
	})
	require.NoError(t, err)

	now := time.Now()
	payload, _ := json.Marshal(map[string]any{
		"events": []map[string]any{
			{"posture_type": "upright", "duration": 60, "recorded_at": now.Format(time.RFC3339)},
		},
	})
	// 未绑定设备的事件静默丢弃
	require.NoError(t, broker.HandleMessage("beidao/devices/AA:BB:CC:DD:EE:01/postures", payload))

	logs, err := logsRepo.ListByUserAndDateRange(ctx, 0, now, now)
	require.NoError(t, err)
	require.Empty(t, logs)
}

func TestParseTopic(t *testing.T) {
	mac, kind, err := parseTopic("beidao/devices/AA:BB:CC:DD:EE:01/status")
	require.NoError(t, err)
	require.Equal(t, "AA:BB:CC:DD:EE:01", mac)
	require.Equal(t, "status", kind)

	_, _, err = parseTopic("other/topic")
	require.Error(t, err)
}
