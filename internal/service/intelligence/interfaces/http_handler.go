package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"promo-intelligence/internal/pkg/logger"
	"promo-intelligence/internal/service/intelligence/application"
	"promo-intelligence/internal/service/intelligence/domain"
	"promo-intelligence/internal/service/intelligence/engine"
)

// IntelligenceAPI 是 HTTP 层依赖的用例集合，由 application.IntelligenceService 实现
type IntelligenceAPI interface {
	GetSuggestions(ctx context.Context, venueID string) (*application.SuggestionsResponse, error)
	GetPerformance(ctx context.Context, venueID string) (*application.PerformanceResponse, error)
	GetDemographics(ctx context.Context, venueID string) (*engine.DemographicProfile, error)
	ForecastRevenue(ctx context.Context, venueID string, daysAhead int) (*engine.RevenueForecast, error)
	PredictOptimalTiming(ctx context.Context, venueID string, promotionType domain.PromotionType, timeframe domain.Timeframe) (*engine.TimingPrediction, error)
	GenerateAutomationSuggestions(ctx context.Context, venueID string) ([]domain.Suggestion, error)
	RunAutomation(ctx context.Context, venueID string, threshold float64) (*application.AutoPostResult, error)
	AutoPost(ctx context.Context, venueID string, suggestions []domain.Suggestion, threshold float64) (*application.AutoPostResult, error)
	FindTargetUsers(ctx context.Context, venueID string, criteria engine.TargetCriteria) (*application.TargetUsersResponse, error)
	ForecastCLV(ctx context.Context, venueID, userID string) (*engine.CLVForecast, error)
}

// IntelligenceHandler 封装了 intelligence 服务的 HTTP 处理器
type IntelligenceHandler struct {
	service IntelligenceAPI
}

// NewIntelligenceHandler 创建一个新的 HTTP 处理器实例
func NewIntelligenceHandler(service IntelligenceAPI) *IntelligenceHandler {
	return &IntelligenceHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *IntelligenceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("GET /venues/{id}/suggestions", h.handleSuggestions)
	mux.HandleFunc("GET /venues/{id}/performance", h.handlePerformance)
	mux.HandleFunc("GET /venues/{id}/demographics", h.handleDemographics)
	mux.HandleFunc("GET /venues/{id}/forecast", h.handleForecast)
	mux.HandleFunc("GET /venues/{id}/timing", h.handleTiming)
	mux.HandleFunc("GET /venues/{id}/automation", h.handleAutomationPreview)
	mux.HandleFunc("POST /venues/{id}/automation", h.handleRunAutomation)
	mux.HandleFunc("POST /venues/{id}/autopost", h.handleAutoPost)
	mux.HandleFunc("POST /venues/{id}/audience", h.handleAudience)
	mux.HandleFunc("GET /venues/{id}/users/{uid}/clv", h.handleCLV)
}

// extract 从请求头中恢复上游的 trace 上下文
func extract(r *http.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func (h *IntelligenceHandler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetSuggestions(extract(r), r.PathValue("id"))
	h.respond(w, r, resp, err)
}

func (h *IntelligenceHandler) handlePerformance(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetPerformance(extract(r), r.PathValue("id"))
	h.respond(w, r, resp, err)
}

func (h *IntelligenceHandler) handleDemographics(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetDemographics(extract(r), r.PathValue("id"))
	h.respond(w, r, resp, err)
}

func (h *IntelligenceHandler) handleForecast(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "days must be a non-negative integer", http.StatusBadRequest)
			return
		}
		days = n
	}
	resp, err := h.service.ForecastRevenue(extract(r), r.PathValue("id"), days)
	h.respond(w, r, resp, err)
}

func (h *IntelligenceHandler) handleTiming(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var promotionType domain.PromotionType
	if raw := q.Get("type"); raw != "" {
		t, ok := domain.ParsePromotionType(raw)
		if !ok {
			http.Error(w, "unknown promotion type: "+raw, http.StatusBadRequest)
			return
		}
		promotionType = t
	}
	var timeframe domain.Timeframe
	if raw := q.Get("timeframe"); raw != "" {
		tf, ok := domain.ParseTimeframe(raw)
		if !ok {
			http.Error(w, "unknown timeframe: "+raw, http.StatusBadRequest)
			return
		}
		timeframe = tf
	}

	resp, err := h.service.PredictOptimalTiming(extract(r), r.PathValue("id"), promotionType, timeframe)
	h.respond(w, r, resp, err)
}

// handleAutomationPreview 只生成自动化建议，不发布
func (h *IntelligenceHandler) handleAutomationPreview(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GenerateAutomationSuggestions(extract(r), r.PathValue("id"))
	h.respond(w, r, resp, err)
}

func (h *IntelligenceHandler) handleRunAutomation(w http.ResponseWriter, r *http.Request) {
	threshold, ok := parseThreshold(w, r)
	if !ok {
		return
	}
	resp, err := h.service.RunAutomation(extract(r), r.PathValue("id"), threshold)
	h.respond(w, r, resp, err)
}

func (h *IntelligenceHandler) handleAutoPost(w http.ResponseWriter, r *http.Request) {
	var req application.AutoPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		http.Error(w, "threshold must be within [0, 1]", http.StatusBadRequest)
		return
	}
	resp, err := h.service.AutoPost(extract(r), r.PathValue("id"), req.Suggestions, req.Threshold)
	h.respond(w, r, resp, err)
}

func (h *IntelligenceHandler) handleAudience(w http.ResponseWriter, r *http.Request) {
	var criteria engine.TargetCriteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	resp, err := h.service.FindTargetUsers(extract(r), r.PathValue("id"), criteria)
	h.respond(w, r, resp, err)
}

func (h *IntelligenceHandler) handleCLV(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ForecastCLV(extract(r), r.PathValue("id"), r.PathValue("uid"))
	h.respond(w, r, resp, err)
}

// parseThreshold 读取 ?threshold=，缺省为 0（使用服务配置）
func parseThreshold(w http.ResponseWriter, r *http.Request) (float64, bool) {
	raw := r.URL.Query().Get("threshold")
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 1 {
		http.Error(w, "threshold must be a number within [0, 1]", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

func (h *IntelligenceHandler) respond(w http.ResponseWriter, r *http.Request, resp interface{}, err error) {
	if err != nil {
		status := statusOf(err)
		if status >= http.StatusInternalServerError {
			logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Msg("Failed to encode response")
	}
}

// statusOf 根据错误类型返回不同的 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrVenueNotFound), errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCriteria):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrLockNotAcquired):
		return http.StatusConflict // 同一场馆正在被另一个批次处理
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
