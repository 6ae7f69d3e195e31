package cache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"
)

// FlashCookie names the cookie holding pending flash messages (or their Redis key).
const FlashCookie = "albumshelf_flash"

// flashTTL bounds how long an unread message survives.
const flashTTL = 5 * time.Minute

// FlashStore keeps one-shot user messages between a redirect and the next page.
type FlashStore interface {
	Add(ctx context.Context, w http.ResponseWriter, r *http.Request, msg string) error
	Pop(ctx context.Context, w http.ResponseWriter, r *http.Request) ([]string, error)
}

// CookieFlashStore stores messages directly in a short-lived cookie.
// It is used when Redis is not configured.
type CookieFlashStore struct{}

// NewCookieFlashStore 创建基于 Cookie 的消息存储
func NewCookieFlashStore() *CookieFlashStore {
	return &CookieFlashStore{}
}

func (CookieFlashStore) Add(_ context.Context, w http.ResponseWriter, r *http.Request, msg string) error {
	msgs := readCookieMessages(r)
	msgs = append(msgs, msg)
	raw, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	setFlashCookie(w, base64.URLEncoding.EncodeToString(raw), flashTTL)
	return nil
}

func (CookieFlashStore) Pop(_ context.Context, w http.ResponseWriter, r *http.Request) ([]string, error) {
	msgs := readCookieMessages(r)
	if len(msgs) > 0 {
		clearFlashCookie(w)
	}
	return msgs, nil
}

func readCookieMessages(r *http.Request) []string {
	c, err := r.Cookie(FlashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	raw, err := base64.URLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var msgs []string
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil
	}
	return msgs
}

func setFlashCookie(w http.ResponseWriter, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearFlashCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
