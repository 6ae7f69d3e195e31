package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

// carry copies the cookies set on rec onto a fresh request, like a browser following a redirect.
func carry(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			continue
		}
		req.AddCookie(c)
	}
	return req
}

func TestCookieFlashStore(t *testing.T) {
	ctx := context.Background()
	store := NewCookieFlashStore()

	first := httptest.NewRecorder()
	if err := store.Add(ctx, first, httptest.NewRequest(http.MethodPost, "/", nil), "Album deleted."); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	second := httptest.NewRecorder()
	if err := store.Add(ctx, second, carry(first), "Another."); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	popRec := httptest.NewRecorder()
	msgs, err := store.Pop(ctx, popRec, carry(second))
	if err != nil {
		t.Fatalf("Pop failed: %v", err)
	}
	if len(msgs) != 2 || msgs[0] != "Album deleted." || msgs[1] != "Another." {
		t.Errorf("unexpected messages %v", msgs)
	}

	cleared := false
	for _, c := range popRec.Result().Cookies() {
		if c.Name == FlashCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected Pop to expire the flash cookie")
	}

	again, err := store.Pop(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || len(again) != 0 {
		t.Errorf("expected no messages without cookie, got %v (err %v)", again, err)
	}
}

func TestCookieFlashStoreIgnoresGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: FlashCookie, Value: "%%%not-base64"})
	msgs, err := NewCookieFlashStore().Pop(context.Background(), httptest.NewRecorder(), req)
	if err != nil || len(msgs) != 0 {
		t.Errorf("expected garbage cookie to be ignored, got %v (err %v)", msgs, err)
	}
}

func TestFlashID(t *testing.T) {
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: FlashCookie, Value: id})
	if got := flashID(req); got != id {
		t.Errorf("flashID() = %q, want %q", got, id)
	}

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.AddCookie(&http.Cookie{Name: FlashCookie, Value: "../../etc"})
	if got := flashID(bad); got != "" {
		t.Errorf("expected malformed id to be rejected, got %q", got)
	}
}
