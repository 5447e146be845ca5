package httpapi

import (
	"net/http"

	"beidao-data/internal/domain"
	"beidao-data/internal/service"

	"go.uber.org/zap"
)

// UserHandler 用户资料 + 本人设备 + 管理端用户 Handler
type UserHandler struct {
	userService    service.UserService
	bindingService service.BindingService
	logger         *zap.Logger
}

// NewUserHandler 创建用户 Handler
func NewUserHandler(userService service.UserService, bindingService service.BindingService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService:    userService,
		bindingService: bindingService,
		logger:         logger,
	}
}

// GetMe GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	profile, err := h.userService.GetProfile(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"user":         profile.User.ToJSON(),
		"device_count": profile.DeviceCount,
	}))
}

// UpdateMe PUT /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var body service.UpdateProfileRequest
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), identity.UserID, &body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(user.ToJSON()))
}

type bindDeviceBody struct {
	MACAddress      string `json:"mac_address"`
	DeviceType      string `json:"device_type"`
	Name            string `json:"name"`
	FirmwareVersion string `json:"firmware_version"`
}

// ListMyDevices GET /api/v1/users/me/devices
func (h *UserHandler) ListMyDevices(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	devices, err := h.bindingService.ListUserDevices(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(devicesJSON(devices)))
}

// BindDevice POST /api/v1/users/me/devices
func (h *UserHandler) BindDevice(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var body bindDeviceBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	device, err := h.bindingService.BindDevice(r.Context(), service.BindDeviceRequest{
		UserID:          identity.UserID,
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

// UnbindDevice DELETE /api/v1/users/me/devices/{id}
func (h *UserHandler) UnbindDevice(w http.ResponseWriter, r *http.Request, deviceID int64) {
	identity := identityFromContext(r.Context())
	if err := h.bindingService.UnbindDevice(r.Context(), deviceID, identity.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func usersJSON(items []*domain.User) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, u := range items {
		out[i] = u.ToJSON()
	}
	return out
}

// ListUsers GET /api/v1/users?search=&page=&size=（管理端）
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.userService.ListUsers(r.Context(), &service.ListUsersRequest{
		SearchKeyword: q.Get("search"),
		Page:          parseInt(q.Get("page"), 1),
		PageSize:      parseInt(q.Get("size"), 20),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": usersJSON(resp.Items),
		"total": resp.Total,
	}))
}

// GetUser GET /api/v1/users/{id}（管理端）
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request, id int64) {
	user, err := h.userService.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(user.ToJSON()))
}

type setActiveBody struct {
	IsActive bool `json:"is_active"`
}

// SetUserActive PUT /api/v1/users/{id}/active（管理端）
func (h *UserHandler) SetUserActive(w http.ResponseWriter, r *http.Request, id int64) {
	var body setActiveBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	user, err := h.userService.SetUserActive(r.Context(), id, body.IsActive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(user.ToJSON()))
}

// DeleteUser DELETE /api/v1/users/{id}（管理端）
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request, id int64) {
	identity := identityFromContext(r.Context())
	if err := h.userService.DeleteUser(r.Context(), identity.UserID, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
