package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"AlbumShelf/core/auth"
	"AlbumShelf/logger"
	"AlbumShelf/model"
	"AlbumShelf/repository"
)

const maxUsernameLen = 150

// credentials is the login/register payload, accepted as a form or as JSON.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Next     string `json:"next"`
}

// tokenResponse is returned to JSON clients after login or registration.
type tokenResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func isJSONBody(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func readCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			return c, err
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return c, err
		}
		c = credentials{
			Username: r.PostForm.Get("username"),
			Password: r.PostForm.Get("password"),
			Next:     r.PostForm.Get("next"),
		}
	}
	c.Username = strings.TrimSpace(c.Username)
	return c, nil
}

// LoginHandler shows the login form (GET) or starts a session (POST).
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	if r.Method != http.MethodPost {
		next := r.URL.Query().Get("next")
		if actor.Authenticated() {
			http.Redirect(w, r, safeNext(next), http.StatusFound)
			return
		}
		h.render(w, r, actor, http.StatusOK, "login", &AuthFormView{Next: next})
		return
	}

	creds, err := readCredentials(r)
	if err != nil {
		logger.Error("[Login] 解析请求体失败", logger.ErrorField(err))
		h.authFailed(w, r, http.StatusBadRequest, "login", &AuthFormView{Error: "Invalid request."})
		return
	}
	view := &AuthFormView{Username: creds.Username, Next: creds.Next}
	if creds.Username == "" || creds.Password == "" {
		view.Error = "Username and password are required."
		h.authFailed(w, r, http.StatusBadRequest, "login", view)
		return
	}

	user, err := h.userRepo.GetUserByUsername(r.Context(), creds.Username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.handleError(w, r, nil, err)
		return
	}
	if user != nil {
		err = auth.VerifyPassword(creds.Password, user.PasswordHash)
		if err != nil && !errors.Is(err, auth.ErrPasswordMismatch) {
			logger.Error("[Login] 用户密码哈希无效", logger.Int64("userId", user.ID), logger.ErrorField(err))
			h.handleError(w, r, nil, err)
			return
		}
	}
	if user == nil || err != nil {
		logger.Warn("[Login] 用户名或密码错误", logger.String("username", creds.Username))
		view.Error = "Please enter a correct username and password."
		h.authFailed(w, r, http.StatusUnauthorized, "login", view)
		return
	}

	logger.Info("[Login] 登录成功", logger.String("username", user.Username))
	h.startSession(w, r, user, safeNext(creds.Next))
}

// RegisterHandler shows the registration form (GET) or creates a regular user (POST).
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	if r.Method != http.MethodPost {
		h.render(w, r, actor, http.StatusOK, "register", &AuthFormView{})
		return
	}

	creds, err := readCredentials(r)
	if err != nil {
		h.authFailed(w, r, http.StatusBadRequest, "register", &AuthFormView{Error: "Invalid request."})
		return
	}
	view := &AuthFormView{Username: creds.Username}
	passwordErr := auth.ValidatePassword(creds.Password)
	switch {
	case creds.Username == "":
		view.Error = "A username is required."
	case utf8.RuneCountInString(creds.Username) > maxUsernameLen:
		view.Error = "That username is too long."
	case errors.Is(passwordErr, auth.ErrPasswordTooShort):
		view.Error = fmt.Sprintf("The password must contain at least %d characters.", auth.MinPasswordLength)
	case passwordErr != nil:
		view.Error = "That password is too long."
	}
	if view.Error != "" {
		h.authFailed(w, r, http.StatusBadRequest, "register", view)
		return
	}

	hashed, err := auth.HashPassword(creds.Password)
	if err != nil {
		h.handleError(w, r, nil, err)
		return
	}
	user := &model.User{Username: creds.Username, PasswordHash: hashed}
	if err := h.userRepo.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			logger.Warn("[Register] 用户名已存在", logger.String("username", creds.Username))
			view.Error = "A user with that username already exists."
			h.authFailed(w, r, http.StatusConflict, "register", view)
			return
		}
		h.handleError(w, r, nil, err)
		return
	}

	logger.Info("[Register] 注册成功", logger.String("username", user.Username))
	h.startSession(w, r, user, "/albums/")
}

// LogoutHandler ends the browser session.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

// startSession issues a token; browsers get it as a cookie and a redirect, JSON clients in the body.
func (h *APIHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User, next string) {
	token, err := h.tokens.GenerateToken(auth.Actor{UserID: user.ID, Username: user.Username, IsStaff: user.IsStaff})
	if err != nil {
		logger.Error("[Auth] 生成Token失败", logger.ErrorField(err))
		h.handleError(w, r, nil, err)
		return
	}

	if isJSONBody(r) {
		writeJSON(w, http.StatusOK, &tokenResponse{Token: token, User: user})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, next, http.StatusFound)
}

func (h *APIHandler) authFailed(w http.ResponseWriter, r *http.Request, status int, name string, view *AuthFormView) {
	if isJSONBody(r) {
		writeJSON(w, status, view)
		return
	}
	h.render(w, r, nil, status, name, view)
}

// ProfileHandler returns the signed-in user as JSON.
func (h *APIHandler) ProfileHandler(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	if err := auth.RequireAuthenticated(actor); err != nil {
		h.handleError(w, r, actor, err)
		return
	}
	user, err := h.userRepo.GetUserByID(r.Context(), actor.UserID)
	if err != nil {
		logger.Error("获取用户信息失败", logger.Int64("userID", actor.UserID), logger.ErrorField(err))
		h.handleError(w, r, actor, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*model.User{"user": user})
}
