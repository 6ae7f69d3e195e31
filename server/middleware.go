package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"AlbumShelf/core/auth"
	"AlbumShelf/logger"
	"AlbumShelf/repository"

	"github.com/google/uuid"
)

const (
	// SessionCookie holds the signed session token of a logged-in browser.
	SessionCookie   = "albumshelf_session"
	requestIDHeader = "X-Request-ID"
)

// actorHandlerFunc is a handler that receives the resolved actor explicitly.
// A nil actor is an anonymous visitor.
type actorHandlerFunc func(w http.ResponseWriter, r *http.Request, actor *auth.Actor)

// withActor resolves the actor once per request and passes it on.
func (h *APIHandler) withActor(next actorHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next(w, r, h.resolveActor(r))
	}
}

// resolveActor reads the session token from the Authorization header or the
// session cookie. Staff status is read from the store so that promotions and
// demotions apply without a new login.
func (h *APIHandler) resolveActor(r *http.Request) *auth.Actor {
	token := bearerToken(r)
	if token == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return nil
	}

	claims, err := h.tokens.ParseToken(token)
	if err != nil {
		logger.Debug("[Auth] 无效的会话令牌", logger.ErrorField(err))
		return nil
	}

	user, err := h.userRepo.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Error("[Auth] 查询用户失败", logger.Int64("userId", claims.UserID), logger.ErrorField(err))
		}
		return nil
	}
	return &auth.Actor{UserID: user.ID, Username: user.Username, IsStaff: user.IsStaff}
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// requestLogger tags each request with an id and logs it once served.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		elapsed := time.Since(start)
		observeRequest(r, rec.status, elapsed)

		fields := []logger.Field{
			logger.String("requestId", id),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.status),
			logger.Int("bytes", rec.bytes),
			logger.Duration("duration", elapsed),
		}
		if rec.status >= http.StatusInternalServerError {
			logger.Warn("[HTTP] 请求完成", fields...)
			return
		}
		logger.Info("[HTTP] 请求完成", fields...)
	})
}

// recoverer turns a handler panic into a 500 response.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("[HTTP] 处理请求时发生panic",
					logger.String("path", r.URL.Path),
					logger.Any("panic", rec))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
