package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"AlbumShelf/cache"
	"AlbumShelf/core/auth"
	"AlbumShelf/core/catalog"
	"AlbumShelf/db"
	"AlbumShelf/model"
	"AlbumShelf/repository"
	"AlbumShelf/web"
)

type testServer struct {
	router  http.Handler
	catalog *catalog.Service
	genres  repository.GenreRepository
	artists repository.ArtistRepository
	staff   *auth.Actor
	member  *auth.Actor
	tokens  map[string]string
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	gdb, err := db.OpenSQLite(":memory:", false)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close(gdb) })

	users := repository.NewGormUserRepository(gdb)
	albums := repository.NewGormAlbumRepository(gdb)
	artists := repository.NewGormArtistRepository(gdb)
	genres := repository.NewGormGenreRepository(gdb)
	svc := catalog.NewService(albums, artists, genres)

	renderer, err := NewRenderer(web.Templates())
	if err != nil {
		t.Fatalf("failed to parse templates: %v", err)
	}
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	health := func(ctx context.Context) error { return db.Ping(ctx, gdb) }
	h := NewAPIHandler(svc, users, tokens, cache.NewCookieFlashStore(), renderer, health, false)

	ts := &testServer{
		router:  NewRouter(h, NewStaticHandler(nil, web.Static())),
		catalog: svc,
		genres:  genres,
		artists: artists,
		tokens:  map[string]string{},
	}

	hash, err := auth.HashPassword("correct-horse")
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range []*model.User{
		{Username: "staff", PasswordHash: hash, IsStaff: true},
		{Username: "member", PasswordHash: hash},
	} {
		if err := users.CreateUser(context.Background(), u); err != nil {
			t.Fatalf("failed to seed user: %v", err)
		}
		actor := &auth.Actor{UserID: u.ID, Username: u.Username, IsStaff: u.IsStaff}
		token, err := tokens.GenerateToken(*actor)
		if err != nil {
			t.Fatal(err)
		}
		ts.tokens[u.Username] = token
		if u.IsStaff {
			ts.staff = actor
		} else {
			ts.member = actor
		}
	}
	return ts
}

type reqOpt func(*http.Request)

func as(token string) reqOpt {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	}
}

func header(key, value string) reqOpt {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func withCookies(cookies []*http.Cookie) reqOpt {
	return func(r *http.Request) {
		for _, c := range cookies {
			if c.MaxAge >= 0 {
				r.AddCookie(c)
			}
		}
	}
}

var asyncCall = header("X-Requested-With", "XMLHttpRequest")
var wantJSON = header("Accept", "application/json")

func (ts *testServer) do(t *testing.T, method, target string, form url.Values, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) album(t *testing.T, in catalog.AlbumInput) *model.Album {
	t.Helper()
	a, err := ts.catalog.CreateAlbum(context.Background(), ts.staff, in)
	if err != nil {
		t.Fatalf("failed to seed album: %v", err)
	}
	return a
}

func expectRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != location {
		t.Errorf("expected redirect to %q, got %q", location, got)
	}
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) (titles []string, sortField string) {
	t.Helper()
	var body struct {
		Items     []*model.Album `json:"items"`
		SortField string         `json:"sortField"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	for _, a := range body.Items {
		titles = append(titles, a.Title)
	}
	return titles, body.SortField
}

func TestHome(t *testing.T) {
	ts := setupServer(t)

	rec := ts.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "create an account") {
		t.Errorf("expected landing page, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("expected a request id header")
	}

	expectRedirect(t, ts.do(t, http.MethodGet, "/", nil, as(ts.tokens["member"])), "/albums/")
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	ts := setupServer(t)

	for _, target := range []string{"/albums/?sort=title", "/albums/1", "/genres/rock", "/search/?title=x", "/albums/new"} {
		rec := ts.do(t, http.MethodGet, target, nil)
		expectRedirect(t, rec, "/auth/login?next="+url.QueryEscape(target))
	}

	rec := ts.do(t, http.MethodGet, "/albums/", nil, as("forged-token"))
	expectRedirect(t, rec, "/auth/login?next=%2Falbums%2F")
}

func TestListAlbums(t *testing.T) {
	ts := setupServer(t)
	ts.album(t, catalog.AlbumInput{Title: "Zen Arcade"})
	ts.album(t, catalog.AlbumInput{Title: "Abbey Road"})

	t.Run("UnknownSortFallsBackToTitle", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/albums/?sort=password", nil, as(ts.tokens["member"]), wantJSON)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		titles, sortField := decodeList(t, rec)
		if sortField != "title" {
			t.Errorf("expected sortField title, got %q", sortField)
		}
		if len(titles) != 2 || titles[0] != "Abbey Road" {
			t.Errorf("unexpected order %v", titles)
		}
	})

	t.Run("HTML", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/albums/", nil, as(ts.tokens["member"]))
		body := rec.Body.String()
		if rec.Code != http.StatusOK || !strings.Contains(body, "Zen Arcade") {
			t.Errorf("expected album list, got %d", rec.Code)
		}
		if strings.Contains(body, `href="/albums/new"`) {
			t.Error("members must not see the add link")
		}
	})
}

func TestMemberCannotMutate(t *testing.T) {
	ts := setupServer(t)
	album := ts.album(t, catalog.AlbumInput{Title: "Untouchable"})
	member := as(ts.tokens["member"])
	id := album.ID

	cases := []struct {
		method, target string
		form           url.Values
	}{
		{http.MethodGet, "/albums/new", nil},
		{http.MethodPost, "/albums/new", url.Values{"title": {"Sneaky"}}},
		{http.MethodGet, albumURL(id) + "/edit", nil},
		{http.MethodPost, albumURL(id) + "/edit", url.Values{"title": {"Renamed"}}},
		{http.MethodGet, albumURL(id) + "/delete", nil},
		{http.MethodPost, albumURL(id) + "/delete", url.Values{}},
	}
	for _, c := range cases {
		if rec := ts.do(t, c.method, c.target, c.form, member); rec.Code != http.StatusForbidden {
			t.Errorf("%s %s: expected 403, got %d", c.method, c.target, rec.Code)
		}
	}

	stored, err := ts.catalog.AlbumByID(context.Background(), id)
	if err != nil || stored.Title != "Untouchable" {
		t.Errorf("album must be untouched, got %+v (err %v)", stored, err)
	}
	all, _ := ts.catalog.ListAlbums(context.Background(), ts.member, repository.SortByTitle)
	if len(all) != 1 {
		t.Errorf("expected exactly one album, got %d", len(all))
	}
}

func TestAddAndEditAlbum(t *testing.T) {
	ts := setupServer(t)
	staff := as(ts.tokens["staff"])
	ctx := context.Background()
	jazz := &model.Genre{Name: "Jazz"}
	if err := ts.genres.SaveGenre(ctx, jazz); err != nil {
		t.Fatal(err)
	}

	rec := ts.do(t, http.MethodGet, "/albums/new", nil, staff)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Jazz") {
		t.Fatalf("expected form with genre choices, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/albums/new", url.Values{"title": {""}, "artist_name": {"Miles Davis"}}, staff)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "This field is required.") {
		t.Errorf("expected redisplayed form with error, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `value="Miles Davis"`) {
		t.Error("submitted values must be redisplayed")
	}

	rec = ts.do(t, http.MethodPost, "/albums/new", url.Values{"title": {""}, "release_date": {"17/08/1959"}}, staff)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	for _, want := range []string{"This field is required.", "Enter a valid date (YYYY-MM-DD)."} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("expected every field error on the form, missing %q", want)
		}
	}

	rec = ts.do(t, http.MethodPost, "/albums/new", url.Values{
		"title":        {"Kind of Blue"},
		"artist_name":  {"Miles Davis"},
		"release_date": {"1959-08-17"},
		"genres":       {"1"},
	}, staff)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect after create, got %d: %s", rec.Code, rec.Body.String())
	}
	location := rec.Header().Get("Location")

	rec = ts.do(t, http.MethodGet, location, nil, staff, wantJSON)
	var detail struct {
		Album     model.Album `json:"album"`
		Favorited bool        `json:"favorited"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if detail.Album.Title != "Kind of Blue" || detail.Album.Artist == nil || len(detail.Album.Genres) != 1 {
		t.Errorf("unexpected album %+v", detail.Album)
	}

	rec = ts.do(t, http.MethodPost, location+"/edit", url.Values{"title": {"Kind of Blue (Legacy)"}}, staff)
	expectRedirect(t, rec, location)

	updated, err := ts.catalog.AlbumByID(ctx, detail.Album.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "Kind of Blue (Legacy)" || updated.ArtistID != nil || updated.ReleaseDate != nil || len(updated.Genres) != 0 {
		t.Errorf("edit must clear omitted fields, got %+v", updated)
	}

	if rec := ts.do(t, http.MethodGet, "/albums/999/edit", nil, staff); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown album, got %d", rec.Code)
	}
}

func TestFavorite(t *testing.T) {
	ts := setupServer(t)
	album := ts.album(t, catalog.AlbumInput{Title: "Pet Sounds"})
	other := ts.album(t, catalog.AlbumInput{Title: "Smile"})
	member := as(ts.tokens["member"])
	target := albumURL(album.ID) + "/favorite"

	favorited := func(rec *httptest.ResponseRecorder) bool {
		t.Helper()
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var body struct {
			Result    string `json:"result"`
			Favorited bool   `json:"favorited"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if body.Result != "ok" {
			t.Errorf("unexpected result %q", body.Result)
		}
		return body.Favorited
	}

	if !favorited(ts.do(t, http.MethodPost, target, url.Values{}, member, asyncCall)) {
		t.Error("POST should favorite")
	}
	if !favorited(ts.do(t, http.MethodPost, target, url.Values{}, member, asyncCall)) {
		t.Error("second POST should keep the favorite")
	}

	rec := ts.do(t, http.MethodGet, "/albums/", nil, member, wantJSON)
	var list struct {
		Items []*model.Album `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	for _, a := range list.Items {
		if want := a.ID == album.ID; a.FavoritedByViewer != want {
			t.Errorf("album %q: favoritedByViewer=%v, want %v", a.Title, a.FavoritedByViewer, want)
		}
	}

	if favorited(ts.do(t, http.MethodDelete, target, nil, member, asyncCall)) {
		t.Error("DELETE should remove the favorite")
	}
	if favorited(ts.do(t, http.MethodPost, albumURL(other.ID)+"/favorite", url.Values{"action": {"remove"}}, member, asyncCall)) {
		t.Error("removing a non-favorite is a no-op")
	}

	expectRedirect(t, ts.do(t, http.MethodPost, target, url.Values{}, member), albumURL(album.ID))

	if rec := ts.do(t, http.MethodPost, "/albums/424242/favorite", url.Values{}, member, asyncCall); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown album, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, target, url.Values{}, asyncCall); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for anonymous async call, got %d", rec.Code)
	}
}

func TestDeleteAlbum(t *testing.T) {
	ts := setupServer(t)
	album := ts.album(t, catalog.AlbumInput{Title: "Doomed"})
	staff := as(ts.tokens["staff"])
	target := albumURL(album.ID) + "/delete"

	rec := ts.do(t, http.MethodGet, target, nil, staff)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Are you sure") {
		t.Fatalf("expected confirmation page, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, target, url.Values{}, staff)
	expectRedirect(t, rec, "/albums/")

	rec = ts.do(t, http.MethodGet, "/albums/", nil, staff, withCookies(rec.Result().Cookies()))
	if !strings.Contains(rec.Body.String(), "Album deleted.") {
		t.Error("expected the deletion acknowledgment on the next page")
	}

	if rec := ts.do(t, http.MethodGet, albumURL(album.ID), nil, staff); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, target, url.Values{}, staff); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 when deleting twice, got %d", rec.Code)
	}
}

func TestSearchAndGenre(t *testing.T) {
	ts := setupServer(t)
	ctx := context.Background()
	member := as(ts.tokens["member"])
	rock := &model.Genre{Name: "Classic Rock"}
	if err := ts.genres.SaveGenre(ctx, rock); err != nil {
		t.Fatal(err)
	}
	ts.album(t, catalog.AlbumInput{Title: "The Dark Side of the Moon", GenreIDs: []int64{rock.ID}})
	ts.album(t, catalog.AlbumInput{Title: "Moondance"})
	ts.album(t, catalog.AlbumInput{Title: "Harvest"})

	expectRedirect(t, ts.do(t, http.MethodGet, "/search/?title=&artist=", nil, member), "/albums/")

	rec := ts.do(t, http.MethodGet, "/search/?title=MOON", nil, member, wantJSON)
	titles, _ := decodeList(t, rec)
	if len(titles) != 2 || titles[0] != "Moondance" || titles[1] != "The Dark Side of the Moon" {
		t.Errorf("unexpected search results %v", titles)
	}

	rec = ts.do(t, http.MethodGet, "/genres/classic-rock", nil, member)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "The Dark Side of the Moon") {
		t.Errorf("expected genre page, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/genres/polka", nil, member); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown genre, got %d", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ts := setupServer(t)

	t.Run("Register", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/auth/register", url.Values{"username": {"newbie"}, "password": {"long-enough"}})
		expectRedirect(t, rec, "/albums/")
		var session *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == SessionCookie {
				session = c
			}
		}
		if session == nil || session.Value == "" {
			t.Fatal("expected a session cookie")
		}
		if rec := ts.do(t, http.MethodGet, "/albums/", nil, as(session.Value)); rec.Code != http.StatusOK {
			t.Errorf("new user should see the list, got %d", rec.Code)
		}

		dup := ts.do(t, http.MethodPost, "/auth/register", url.Values{"username": {"newbie"}, "password": {"long-enough"}})
		if dup.Code != http.StatusConflict {
			t.Errorf("expected 409 for duplicate username, got %d", dup.Code)
		}
	})

	t.Run("LoginForm", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/auth/login", url.Values{
			"username": {"member"},
			"password": {"correct-horse"},
			"next":     {"/search/?title=x"},
		})
		expectRedirect(t, rec, "/search/?title=x")

		rec = ts.do(t, http.MethodPost, "/auth/login", url.Values{
			"username": {"member"},
			"password": {"correct-horse"},
			"next":     {"//evil.example.com"},
		})
		expectRedirect(t, rec, "/albums/")

		rec = ts.do(t, http.MethodPost, "/auth/login", url.Values{"username": {"member"}, "password": {"nope"}})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 for wrong password, got %d", rec.Code)
		}
	})

	t.Run("LoginJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"staff","password":"correct-horse"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body tokenResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body.Token == "" || body.User == nil || !body.User.IsStaff {
			t.Errorf("unexpected login response %+v", body)
		}
		if strings.Contains(rec.Body.String(), "$2a$") {
			t.Error("password hash must not be exposed")
		}

		rec = ts.do(t, http.MethodGet, "/albums/new", nil, header("Authorization", "Bearer "+body.Token))
		if rec.Code != http.StatusOK {
			t.Errorf("bearer token should authorize staff, got %d", rec.Code)
		}
	})

	t.Run("Profile", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/auth/me", nil, as(ts.tokens["member"]))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"username":"member"`) {
			t.Errorf("unexpected profile response %d %s", rec.Code, rec.Body.String())
		}
		if strings.Contains(rec.Body.String(), "$2a$") {
			t.Error("password hash must not be exposed")
		}

		rec = ts.do(t, http.MethodGet, "/auth/me", nil, wantJSON)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 for anonymous JSON caller, got %d", rec.Code)
		}
	})

	t.Run("Logout", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/auth/logout", nil, as(ts.tokens["member"]))
		expectRedirect(t, rec, "/")
		for _, c := range rec.Result().Cookies() {
			if c.Name == SessionCookie && c.MaxAge >= 0 {
				t.Error("expected session cookie to be expired")
			}
		}
	})
}

func TestHealthzAndStatic(t *testing.T) {
	ts := setupServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/static/css/style.css", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Type"), "text/css") {
		t.Errorf("expected stylesheet, got %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	if rec := ts.do(t, http.MethodGet, "/no/such/page", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
