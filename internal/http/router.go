package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoute 健康检查
func (r *Router) RegisterHealthRoute() {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
}

// RegisterAuthRoutes 注册/登录/刷新（免认证）
func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	post := func(pattern string, fn http.HandlerFunc) {
		r.Handle(pattern, func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			fn(w, req)
		})
	}
	post("/api/v1/auth/register", h.Register)
	post("/api/v1/auth/login", h.Login)
	post("/api/v1/auth/admin/login", h.AdminLogin)
	post("/api/v1/auth/refresh", h.Refresh)
}

// RegisterDeviceRoutes 设备管理（管理端）
func (r *Router) RegisterDeviceRoutes(h *DeviceHandler, auth *AuthMiddleware) {
	r.Handle("/api/v1/devices", auth.RequireAdmin(func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.ListDevices(w, req)
		case http.MethodPost:
			h.RegisterDevice(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))

	r.Handle("/api/v1/devices/export", auth.RequireAdmin(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ExportDevices(w, req)
	}))

	r.Handle("/api/v1/devices/", auth.RequireAdmin(func(w http.ResponseWriter, req *http.Request) {
		id, action, ok := deviceSubroute(req.URL.Path)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch {
		case action == "" && req.Method == http.MethodGet:
			h.GetDevice(w, req, id)
		case action == "" && req.Method == http.MethodPut:
			h.UpdateDevice(w, req, id)
		case action == "" && req.Method == http.MethodDelete:
			h.DeleteDevice(w, req, id)
		case action == "pair" && req.Method == http.MethodPost:
			h.PairDevice(w, req, id)
		case action == "online" && req.Method == http.MethodPost:
			h.SetOnline(w, req, id)
		case action == "firmware" && req.Method == http.MethodGet:
			h.CheckFirmware(w, req, id)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// RegisterUserRoutes 个人资料/本人设备 + 管理端用户
func (r *Router) RegisterUserRoutes(h *UserHandler, auth *AuthMiddleware) {
	r.Handle("/api/v1/users/me", auth.Require(func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.GetMe(w, req)
		case http.MethodPut:
			h.UpdateMe(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))

	r.Handle("/api/v1/users/me/devices", auth.Require(func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.ListMyDevices(w, req)
		case http.MethodPost:
			h.BindDevice(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))

	r.Handle("/api/v1/users/me/devices/", auth.Require(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id, ok := parseID(strings.TrimPrefix(req.URL.Path, "/api/v1/users/me/devices/"))
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.UnbindDevice(w, req, id)
	}))

	r.Handle("/api/v1/users", auth.RequireAdmin(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListUsers(w, req)
	}))

	r.Handle("/api/v1/users/", auth.RequireAdmin(func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/api/v1/users/")
		parts := strings.SplitN(rest, "/", 2)
		id, ok := parseID(parts[0])
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		action := ""
		if len(parts) == 2 {
			action = parts[1]
		}
		switch {
		case action == "" && req.Method == http.MethodGet:
			h.GetUser(w, req, id)
		case action == "" && req.Method == http.MethodDelete:
			h.DeleteUser(w, req, id)
		case action == "active" && req.Method == http.MethodPut:
			h.SetUserActive(w, req, id)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// RegisterPostureRoutes 姿态日志与统计
func (r *Router) RegisterPostureRoutes(h *PostureHandler, auth *AuthMiddleware) {
	r.Handle("/api/v1/postures/logs", auth.Require(func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.QueryLogs(w, req)
		case http.MethodPost:
			h.AppendLogs(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))

	get := func(pattern string, fn http.HandlerFunc) {
		r.Handle(pattern, auth.Require(func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			fn(w, req)
		}))
	}
	get("/api/v1/postures/stats/daily", h.DailyStats)
	get("/api/v1/postures/stats/weekly", h.WeeklyStats)
}
