package httpapi

import (
	"net/http"
	"strings"

	"beidao-data/internal/domain"
	"beidao-data/internal/service"

	"go.uber.org/zap"
)

// DeviceHandler 设备管理 Handler（管理端）
type DeviceHandler struct {
	deviceService  service.DeviceService
	pairingService service.PairingService
	otaClient      *service.OTAClient // 可选，未配置时固件检查返回空
	logger         *zap.Logger
}

// NewDeviceHandler 创建设备管理 Handler
func NewDeviceHandler(deviceService service.DeviceService, pairingService service.PairingService, otaClient *service.OTAClient, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{
		deviceService:  deviceService,
		pairingService: pairingService,
		otaClient:      otaClient,
		logger:         logger,
	}
}

func devicesJSON(items []*domain.Device) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, d := range items {
		out[i] = d.ToJSON()
	}
	return out
}

type registerDeviceBody struct {
	MACAddress      string `json:"mac_address"`
	DeviceType      string `json:"device_type"`
	Name            string `json:"name"`
	FirmwareVersion string `json:"firmware_version"`
}

// RegisterDevice POST /api/v1/devices
func (h *DeviceHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var body registerDeviceBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	device, err := h.deviceService.RegisterDevice(r.Context(), service.RegisterDeviceRequest{
		MACAddress:      body.MACAddress,
		DeviceType:      body.DeviceType,
		Name:            body.Name,
		FirmwareVersion: body.FirmwareVersion,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(device.ToJSON()))
}

// ListDevices GET /api/v1/devices?device_type=&user_id=&search=&page=&size=
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.deviceService.ListDevices(r.Context(), service.ListDevicesRequest{
		DeviceType: q.Get("device_type"),
		UserID:     int64(parseInt(q.Get("user_id"), 0)),
		Search:     q.Get("search"),
		Page:       parseInt(q.Get("page"), 1),
		Size:       parseInt(q.Get("size"), 20),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": devicesJSON(resp.Items),
		"total": resp.Total,
	}))
}

// GetDevice GET /api/v1/devices/{id}
func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request, id int64) {
	device, err := h.deviceService.GetDevice(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(device.ToJSON()))
}

type updateDeviceBody struct {
	Name            *string `json:"name"`
	FirmwareVersion *string `json:"firmware_version"`
}

// UpdateDevice PUT /api/v1/devices/{id}
func (h *DeviceHandler) UpdateDevice(w http.ResponseWriter, r *http.Request, id int64) {
	var body updateDeviceBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	device, err := h.deviceService.UpdateDevice(r.Context(), service.UpdateDeviceRequest{
		ID:              id,
		Name:            body.Name,
		FirmwareVersion: body.FirmwareVersion,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(device.ToJSON()))
}

// DeleteDevice DELETE /api/v1/devices/{id}
func (h *DeviceHandler) DeleteDevice(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.deviceService.DeleteDevice(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

type pairBody struct {
	FeedbackerID int64 `json:"feedbacker_id"`
}

// PairDevice POST /api/v1/devices/{id}/pair（{id} 为探测器）
func (h *DeviceHandler) PairDevice(w http.ResponseWriter, r *http.Request, detectorID int64) {
	var body pairBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil || body.FeedbackerID <= 0 {
		writeJSON(w, http.StatusBadRequest, Fail("feedbacker_id is required"))
		return
	}

	detector, feedbacker, err := h.pairingService.PairDevices(r.Context(), detectorID, body.FeedbackerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"detector":   detector.ToJSON(),
		"feedbacker": feedbacker.ToJSON(),
	}))
}

type onlineBody struct {
	Online bool `json:"online"`
}

// SetOnline POST /api/v1/devices/{id}/online
func (h *DeviceHandler) SetOnline(w http.ResponseWriter, r *http.Request, id int64) {
	var body onlineBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	device, err := h.deviceService.SetOnline(r.Context(), id, body.Online)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(device.ToJSON()))
}

// CheckFirmware GET /api/v1/devices/{id}/firmware（查询 OTA 平台是否有新固件）
func (h *DeviceHandler) CheckFirmware(w http.ResponseWriter, r *http.Request, id int64) {
	device, err := h.deviceService.GetDevice(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.otaClient == nil {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"update_available": false}))
		return
	}

	release, err := h.otaClient.LatestRelease(device.DeviceType, device.FirmwareVersion)
	if err != nil {
		h.logger.Error("firmware check failed", zap.Int64("device_id", id), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, Fail("firmware service unavailable"))
		return
	}
	if release == nil {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"update_available": false}))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"update_available": true,
		"release":          release,
	}))
}

// deviceSubroute 解析 /api/v1/devices/{id}[/action]
func deviceSubroute(path string) (id int64, action string, ok bool) {
	rest := strings.TrimPrefix(path, "/api/v1/devices/")
	parts := strings.SplitN(rest, "/", 2)
	id, ok = parseID(parts[0])
	if !ok {
		return 0, "", false
	}
	if len(parts) == 2 {
		action = parts[1]
	}
	return id, action, true
}
