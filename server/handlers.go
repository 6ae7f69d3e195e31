package server

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"AlbumShelf/cache"
	"AlbumShelf/core/auth"
	"AlbumShelf/core/catalog"
	"AlbumShelf/logger"
	"AlbumShelf/repository"

	"github.com/gorilla/mux"
)

// HealthFunc reports whether the backing stores are reachable.
type HealthFunc func(ctx context.Context) error

// APIHandler 处理所有请求
type APIHandler struct {
	catalog       *catalog.Service
	userRepo      repository.UserRepository
	tokens        *auth.TokenIssuer
	flash         cache.FlashStore
	renderer      *Renderer
	health        HealthFunc
	secureCookies bool
}

// NewAPIHandler 创建新的处理器
func NewAPIHandler(
	catalogSvc *catalog.Service,
	userRepo repository.UserRepository,
	tokens *auth.TokenIssuer,
	flash cache.FlashStore,
	renderer *Renderer,
	health HealthFunc,
	secureCookies bool,
) *APIHandler {
	return &APIHandler{
		catalog:       catalogSvc,
		userRepo:      userRepo,
		tokens:        tokens,
		flash:         flash,
		renderer:      renderer,
		health:        health,
		secureCookies: secureCookies,
	}
}

// render writes data as JSON when the client prefers it, otherwise as the named HTML page.
func (h *APIHandler) render(w http.ResponseWriter, r *http.Request, actor *auth.Actor, status int, name string, data any) {
	if prefersJSON(r) {
		writeJSON(w, status, data)
		return
	}

	flashes, err := h.flash.Pop(r.Context(), w, r)
	if err != nil {
		logger.Warn("[Render] 读取提示消息失败", logger.ErrorField(err))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.renderer.Render(w, name, page{Actor: actor, Flashes: flashes, Data: data}); err != nil {
		logger.Error("[Render] 模板渲染失败", logger.String("template", name), logger.ErrorField(err))
	}
}

// handleError maps gate, lookup and store errors to responses.
func (h *APIHandler) handleError(w http.ResponseWriter, r *http.Request, actor *auth.Actor, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		if isAsync(r) || prefersJSON(r) {
			writeJSON(w, http.StatusUnauthorized, newErrorView(http.StatusUnauthorized, "authentication required"))
			return
		}
		http.Redirect(w, r, loginURL(r), http.StatusFound)
	case errors.Is(err, auth.ErrForbidden):
		logger.Warn("[Auth] 权限不足",
			logger.String("path", r.URL.Path),
			logger.Int64("userId", actor.ID()))
		h.render(w, r, actor, http.StatusForbidden, "error",
			newErrorView(http.StatusForbidden, "You do not have permission to perform this action."))
	case errors.Is(err, repository.ErrNotFound):
		h.render(w, r, actor, http.StatusNotFound, "error",
			newErrorView(http.StatusNotFound, "The requested page does not exist."))
	default:
		logger.Error("[Handler] 请求处理失败",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("requestId", w.Header().Get(requestIDHeader)),
			logger.ErrorField(err))
		h.render(w, r, actor, http.StatusInternalServerError, "error",
			newErrorView(http.StatusInternalServerError, "Something went wrong. Please try again later."))
	}
}

// NotFound renders the 404 page for unmatched routes.
func (h *APIHandler) NotFound(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	h.handleError(w, r, actor, repository.ErrNotFound)
}

// Healthz 健康检查
func (h *APIHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			logger.Error("[Health] 健康检查失败", logger.ErrorField(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("[JSON] 响应编码失败", logger.ErrorField(err))
	}
}

// pathID parses the {pk} route variable. The route pattern already restricts
// it to digits; overflow is reported as not found.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["pk"], 10, 64)
	if err != nil {
		return 0, repository.ErrNotFound
	}
	return id, nil
}

// isAsync reports whether the request carries the asynchronous UI marker.
func isAsync(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

// prefersJSON reports whether the Accept header ranks application/json above text/html.
func prefersJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return false
	}
	jsonQ, htmlQ := -1.0, -1.0
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		q := 1.0
		if raw, ok := params["q"]; ok {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				q = v
			}
		}
		switch mediaType {
		case "application/json":
			jsonQ = max(jsonQ, q)
		case "text/html":
			htmlQ = max(htmlQ, q)
		}
	}
	return jsonQ > 0 && jsonQ > htmlQ
}

// loginURL builds the login redirect, remembering GET targets.
func loginURL(r *http.Request) string {
	if r.Method != http.MethodGet {
		return "/auth/login"
	}
	return "/auth/login?next=" + url.QueryEscape(r.URL.RequestURI())
}

// safeNext accepts only local absolute paths as a post-login target.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/albums/"
	}
	return next
}
