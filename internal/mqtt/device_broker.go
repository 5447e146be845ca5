package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"beidao-data/internal/service"

	"go.uber.org/zap"
)

// DeviceBroker 设备 MQTT 消息处理模块
// 主题约定：
//   beidao/devices/{mac}/status   设备状态（上线/离线/固件版本）
//   beidao/devices/{mac}/postures 姿态事件批量上报
type DeviceBroker struct {
	deviceService  service.DeviceService
	postureService service.PostureService
	logger         *zap.Logger
}

// NewDeviceBroker 创建设备 MQTT Broker
func NewDeviceBroker(
	deviceService service.DeviceService,
	postureService service.PostureService,
	logger *zap.Logger,
) *DeviceBroker {
	return &DeviceBroker{
		deviceService:  deviceService,
		postureService: postureService,
		logger:         logger,
	}
}

// statusMessage 设备状态消息
type statusMessage struct {
	Online          bool   `json:"online"`
	FirmwareVersion string `json:"firmware_version"`
}

// postureMessage 姿态事件消息
type postureMessage struct {
	Events []service.PostureEventInput `json:"events"`
}

// HandleMessage 处理 MQTT 消息，按主题后缀路由
func (b *DeviceBroker) HandleMessage(topic string, payload []byte) error {
	mac, kind, err := parseTopic(topic)
	if err != nil {
		return err
	}

	switch kind {
	case "status":
		return b.handleStatus(mac, payload)
	case "postures":
		return b.handlePostures(mac, payload)
	default:
		b.logger.Debug("unhandled topic", zap.String("topic", topic))
		return nil
	}
}

func (b *DeviceBroker) handleStatus(mac string, payload []byte) error {
	var msg statusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal status message: %w", err)
	}

	ctx := context.Background()
	device, err := b.deviceService.GetDeviceByMAC(ctx, mac)
	if err != nil {
		return fmt.Errorf("unknown device %s: %w", mac, err)
	}

	if _, err := b.deviceService.SetOnline(ctx, device.ID, msg.Online); err != nil {
		return fmt.Errorf("failed to update online status: %w", err)
	}

	// 固件版本随状态上报更新
	if msg.FirmwareVersion != "" && msg.FirmwareVersion != device.FirmwareVersion {
		if _, err := b.deviceService.UpdateDevice(ctx, service.UpdateDeviceRequest{
			ID:              device.ID,
			FirmwareVersion: &msg.FirmwareVersion,
		}); err != nil {
			return fmt.Errorf("failed to update firmware version: %w", err)
		}
	}

	b.logger.Debug("device status updated",
		zap.String("mac_address", mac),
		zap.Bool("online", msg.Online),
	)
	return nil
}

func (b *DeviceBroker) handlePostures(mac string, payload []byte) error {
	var msg postureMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal posture message: %w", err)
	}
	if len(msg.Events) == 0 {
		return nil
	}

	ctx := context.Background()
	device, err := b.deviceService.GetDeviceByMAC(ctx, mac)
	if err != nil {
		return fmt.Errorf("unknown device %s: %w", mac, err)
	}
	if !device.UserID.Valid {
		// 未绑定用户的设备事件无归属，丢弃
		b.logger.Warn("posture events from unbound device dropped",
			zap.String("mac_address", mac),
			zap.Int("count", len(msg.Events)),
		)
		return nil
	}

	// 设备上报不带 device_id，统一填充
	for i := range msg.Events {
		msg.Events[i].DeviceID = device.ID
	}

	n, err := b.postureService.AppendBatch(ctx, device.UserID.Int64, msg.Events)
	if err != nil {
		return fmt.Errorf("failed to append posture events: %w", err)
	}

	b.logger.Info("posture events ingested",
		zap.String("mac_address", mac),
		zap.Int("count", n),
	)
	return nil
}

// parseTopic 解析 beidao/devices/{mac}/{kind}
func parseTopic(topic string) (mac, kind string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "beidao" || parts[1] != "devices" {
		return "", "", fmt.Errorf("unexpected topic format: %s", topic)
	}
	return parts[2], parts[3], nil
}
