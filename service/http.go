// Package service 提供推荐服务的 HTTP API 层（chi 路由）。
package service

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/foodiecorner/cookrec/core"
	"github.com/foodiecorner/cookrec/recommender"
)

// DefaultLimit 是未指定 limit 时返回的推荐数量。
const DefaultLimit = 10

// MaxLimit 是单次请求允许的 limit 上限，超过即拒绝。
// 超大 limit 会绕过候选池缓存触发全量计算，必须在入口挡住。
const MaxLimit = 500

// InteractionWriter 是交互写路径接口（点赞 / 点踩 / 撤销）。
type InteractionWriter interface {
	Put(ctx context.Context, in core.Interaction) error
	Delete(ctx context.Context, userID, itemID string) error
}

// Server 是 HTTP API 层，把推荐读路径和交互写路径暴露为 REST 接口。
type Server struct {
	Recommender  *recommender.Recommender
	Interactions InteractionWriter
	Logger       *slog.Logger
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Router 构建路由：
//
//	GET    /v1/recommendations?user_id=&limit=
//	POST   /v1/interactions        {"user_id","item_id","state"}
//	DELETE /v1/interactions        {"user_id","item_id"}
//	GET    /healthz
//	GET    /metrics
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/v1/recommendations", s.handleRecommendations)
	r.Post("/v1/interactions", s.handlePutInteraction)
	r.Delete("/v1/interactions", s.handleDeleteInteraction)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// recommendationItem 是推荐结果的响应载荷。
type recommendationItem struct {
	ID       string             `json:"id"`
	Score    float64            `json:"score"`
	Meta     map[string]any     `json:"meta,omitempty"`
	Features map[string]float64 `json:"features,omitempty"`
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if s.Recommender == nil {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "recommender not configured")
		return
	}

	userID := r.URL.Query().Get("user_id")
	limit := DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, "limit must be an integer")
			return
		}
		limit = parsed
	}
	if limit > MaxLimit {
		writeError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput,
			"limit must not exceed "+strconv.Itoa(MaxLimit))
		return
	}

	items, err := s.Recommender.Recommend(r.Context(), userID, limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	// 空列表是合法结果（冷启动且无热门数据），返回 200 + 空数组
	payload := make([]recommendationItem, 0, len(items))
	for _, it := range items {
		payload = append(payload, recommendationItem{
			ID:       it.ID,
			Score:    it.Score,
			Meta:     it.Meta,
			Features: it.Features,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": payload})
}

// interactionRequest 是交互写路径的请求载荷。
type interactionRequest struct {
	UserID string `json:"user_id"`
	ItemID string `json:"item_id"`
	State  string `json:"state"`
}

func (s *Server) handlePutInteraction(w http.ResponseWriter, r *http.Request) {
	if s.Interactions == nil {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "interaction store not configured")
		return
	}

	var req interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, "invalid json body")
		return
	}
	if req.UserID == "" || req.ItemID == "" {
		writeError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, "user_id and item_id are required")
		return
	}
	state := core.State(req.State)
	if !state.Valid() {
		writeError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, `state must be "liked" or "disliked"`)
		return
	}

	err := s.Interactions.Put(r.Context(), core.Interaction{
		UserID: req.UserID,
		ItemID: req.ItemID,
		State:  state,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteInteraction(w http.ResponseWriter, r *http.Request) {
	if s.Interactions == nil {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "interaction store not configured")
		return
	}

	var req interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, "invalid json body")
		return
	}
	if req.UserID == "" || req.ItemID == "" {
		writeError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, "user_id and item_id are required")
		return
	}

	if err := s.Interactions.Delete(r.Context(), req.UserID, req.ItemID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// writeDomainError 把领域错误映射为 HTTP 状态码：
// 参数错误 -> 400，基础设施故障 -> 502，其余 -> 500。
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	if domainErr := core.GetDomainError(err); domainErr != nil {
		switch domainErr.Code {
		case core.ErrorCodeInvalidInput:
			writeError(w, http.StatusBadRequest, domainErr.Code, domainErr.Message)
			return
		case core.ErrorCodeUnavailable:
			writeError(w, http.StatusBadGateway, domainErr.Code, domainErr.Message)
			return
		}
	}
	s.logger().Error("request failed", "err", err)
	writeError(w, http.StatusInternalServerError, core.ErrorCodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}
