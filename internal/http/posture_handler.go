package httpapi

import (
	"net/http"
	"time"

	"beidao-data/internal/domain"
	"beidao-data/internal/service"

	"go.uber.org/zap"
)

// PostureHandler 姿态日志与统计 Handler
type PostureHandler struct {
	postureService service.PostureService
	statsService   service.StatsService
	logger         *zap.Logger
}

// NewPostureHandler 创建姿态 Handler
func NewPostureHandler(postureService service.PostureService, statsService service.StatsService, logger *zap.Logger) *PostureHandler {
	return &PostureHandler{
		postureService: postureService,
		statsService:   statsService,
		logger:         logger,
	}
}

type appendLogsBody struct {
	Events []service.PostureEventInput `json:"events"`
}

// AppendLogs POST /api/v1/postures/logs
func (h *PostureHandler) AppendLogs(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var body appendLogsBody
	if err := readBodyJSON(r, 4<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	n, err := h.postureService.AppendBatch(r.Context(), identity.UserID, body.Events)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"inserted": n}))
}

// QueryLogs GET /api/v1/postures/logs?start_date=&end_date=
func (h *PostureHandler) QueryLogs(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	q := r.URL.Query()

	start, err := parseDate(q.Get("start_date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid start_date, expect YYYY-MM-DD"))
		return
	}
	end, err := parseDate(q.Get("end_date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid end_date, expect YYYY-MM-DD"))
		return
	}

	logs, err := h.postureService.QueryRange(r.Context(), identity.UserID, start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]map[string]any, len(logs))
	for i, l := range logs {
		items[i] = l.ToJSON()
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

// DailyStats GET /api/v1/postures/stats/daily?date=（默认今天）
func (h *PostureHandler) DailyStats(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	date := time.Now()
	if s := r.URL.Query().Get("date"); s != "" {
		var err error
		date, err = parseDate(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid date, expect YYYY-MM-DD"))
			return
		}
	}

	stats, err := h.statsService.DailyStats(r.Context(), identity.UserID, date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

// WeeklyStats GET /api/v1/postures/stats/weekly?week_start=（默认本周一）
func (h *PostureHandler) WeeklyStats(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var weekStart time.Time
	if s := r.URL.Query().Get("week_start"); s != "" {
		var err error
		weekStart, err = parseDate(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid week_start, expect YYYY-MM-DD"))
			return
		}
	}

	stats, err := h.statsService.WeeklyStats(r.Context(), identity.UserID, weekStart)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, domain.ErrValidation
	}
	return time.ParseInLocation("2006-01-02", s, time.Local)
}
