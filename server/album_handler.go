package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"AlbumShelf/core/auth"
	"AlbumShelf/core/catalog"
	"AlbumShelf/logger"
	"AlbumShelf/model"
	"AlbumShelf/repository"

	"github.com/gorilla/mux"
)

func albumURL(id int64) string {
	return fmt.Sprintf("/albums/%d", id)
}

// Home redirects signed-in users to the album list and shows the landing page otherwise.
func (h *APIHandler) Home(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	if actor.Authenticated() {
		http.Redirect(w, r, "/albums/", http.StatusFound)
		return
	}
	h.render(w, r, actor, http.StatusOK, "home", nil)
}

// ListAlbums 专辑列表, ordered by ?sort=
func (h *APIHandler) ListAlbums(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	if err := auth.RequireAuthenticated(actor); err != nil {
		h.handleError(w, r, actor, err)
		return
	}

	sort := repository.ParseSortField(r.URL.Query().Get("sort"))
	albums, err := h.catalog.ListAlbums(r.Context(), actor, sort)
	if err != nil {
		h.handleError(w, r, actor, err)
		return
	}

	h.render(w, r, actor, http.StatusOK, "list_albums", &AlbumListView{
		Items:      albums,
		SortField:  sort,
		Heading:    "Albums",
		Sortable:   true,
		SortFields: repository.SortFields,
	})
}

// ListFavorites 当前用户收藏的专辑
func (h *APIHandler) ListFavorites(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	albums, err := h.catalog.FavoriteAlbums(r.Context(), actor)
	if err != nil {
		h.handleError(w, r, actor, err)
		return
	}
	h.render(w, r, actor, http.StatusOK, "list_albums", &AlbumListView{
		Items:     albums,
		SortField: repository.SortByTitle,
		Heading:   "Your favorites",
	})
}

// ShowAlbum 专辑详情
func (h *APIHandler) ShowAlbum(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	if err := auth.RequireAuthenticated(actor); err != nil {
		h.handleError(w, r, actor, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, actor, err)
		return
	}

	album, err := h.catalog.AlbumByID(r.Context(), id)
	if err != nil {
		h.handleError(w, r, actor, err)
		return
	}
	favorited, err := h.catalog.IsFavorited(r.Context(), actor, id)
	if err != nil {
		h.handleError(w, r, actor, err)
		return
	}
	album.FavoritedByViewer = favorited

	h.render(w, r, actor, http.StatusOK, "show_album", &AlbumDetailView{Album: album, Favorited: favorited})
}

// AddAlbum shows the empty form (GET) or creates the album (POST).
func (h *APIHandler) AddAlbum(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	if err := auth.RequireStaff(actor); err != nil {
		h.handleError(w, r, actor, err)
		return
	}

	view := &AlbumFormView{
		Action: "/albums/new",
		Form:   url.Values{"artist_type": {string(model.ArtistIndividual)}},
	}
	if r.Method != http.MethodPost {
		h.renderForm(w, r, actor, http.StatusOK, view)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderForm(w, r, actor, http.StatusBadRequest, view)
		return
	}
	view.Form = r.PostForm
	in := catalog.ParseAlbumForm(r.PostForm)

	album, err := h.catalog.CreateAlbum(r.Context(), actor, in)
	var invalid *catalog.ValidationError
	switch {
	case errors.As(err, &invalid):
		view.Errors = invalid.Fields
		h.renderForm(w, r, actor, http.StatusBadRequest, view)
	case err != nil:
		h.handleError(w, r, actor, err)
	default:
		http.Redirect(w, r, albumURL(album.ID), http.StatusFound)
	}
}

// EditAlbum shows the prefilled form (GET) or updates the album (POST).
func (h *APIHandler) EditAlbum(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	if err := auth.RequireStaff(actor); err != nil {
		h.handleError(w, r, actor, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, actor, err)
		return
	}
	album, err := h.catalog.AlbumByID(r.Context(), id)
	if err != nil {
		h.handleError(w, r, actor, err)
		return
	}

	view := &AlbumFormView{
		Album:  album,
		Action: albumURL(id) + "/edit",
		Form:   albumFormValues(album),
	}
	if r.Method != http.MethodPost {
		h.renderForm(w, r, actor, http.StatusOK, view)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderForm(w, r, actor, http.StatusBadRequest, view)
		return
	}
	view.Form = r.PostForm
	in := catalog.ParseAlbumForm(r.PostForm)

	updated, err := h.catalog.UpdateAlbum(r.Context(), actor, id, in)
	var invalid *catalog.ValidationError
	switch {
	case errors.As(err, &invalid):
		view.Errors = invalid.Fields
		h.renderForm(w, r, actor, http.StatusBadRequest, view)
	case err != nil:
		h.handleError(w, r, actor, err)
	default:
		http.Redirect(w, r, albumURL(updated.ID), http.StatusFound)
	}
}

func (h *APIHandler) renderForm(w http.ResponseWriter, r *http.Request, actor *auth.Actor, status int, view *AlbumFormView) {
	choices, err := h.catalog.FormChoices(r.Context())
	if err != nil {
		h.handleError(w, r, actor, err)
		return
	}
	view.Choices = choices
	h.render(w, r, actor, status, "album_form", view)
}

// DeleteAlbum asks for confirmation (GET) or deletes the album (POST).
func (h *APIHandler) DeleteAlbum(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	if err := auth.RequireStaff(actor); err != nil {
		h.handleError(w, r, actor, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, actor, err)
		return
	}

	if r.Method != http.MethodPost {
		album, err := h.catalog.AlbumByID(r.Context(), id)
		if err != nil {
			h.handleError(w, r, actor, err)
			return
		}
		h.render(w, r, actor, http.StatusOK, "delete_album", &DeleteView{Album: album})
		return
	}

	if err := h.catalog.DeleteAlbum(r.Context(), actor, id); err != nil {
		h.handleError(w, r, actor, err)
		return
	}
	if err := h.flash.Add(r.Context(), w, r, "Album deleted."); err != nil {
		logger.Warn("[Album] 保存提示消息失败", logger.ErrorField(err))
	}
	http.Redirect(w, r, "/albums/", http.StatusFound)
}

// Favorite adds (POST) or removes (DELETE, or POST with action=remove) the
// album from the actor's favorites. Asynchronous callers get JSON.
func (h *APIHandler) Favorite(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	if err := auth.RequireAuthenticated(actor); err != nil {
		h.handleError(w, r, actor, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.handleError(w, r, actor, err)
		return
	}

	desired := r.Method != http.MethodDelete && r.FormValue("action") != "remove"
	favorited, err := h.catalog.SetFavorite(r.Context(), actor, id, desired)
	if err != nil {
		h.handleError(w, r, actor, err)
		return
	}

	if isAsync(r) {
		writeJSON(w, http.StatusOK, map[string]any{"result": "ok", "favorited": favorited})
		return
	}
	http.Redirect(w, r, albumURL(id), http.StatusFound)
}

// ShowGenre 某流派下的专辑
func (h *APIHandler) ShowGenre(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	if err := auth.RequireAuthenticated(actor); err != nil {
		h.handleError(w, r, actor, err)
		return
	}

	genre, albums, err := h.catalog.AlbumsByGenreSlug(r.Context(), actor, mux.Vars(r)["slug"])
	if err != nil {
		h.handleError(w, r, actor, err)
		return
	}
	h.render(w, r, actor, http.StatusOK, "show_genre", &AlbumListView{
		Items:     albums,
		SortField: repository.SortByTitle,
		Genre:     genre,
	})
}

// Search matches ?title= or, when it is blank, ?artist=. Without either term
// the user is sent back to the full list.
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	if err := auth.RequireAuthenticated(actor); err != nil {
		h.handleError(w, r, actor, err)
		return
	}

	q := r.URL.Query()
	albums, err := h.catalog.SearchAlbums(r.Context(), actor, q.Get("title"), q.Get("artist"))
	if errors.Is(err, repository.ErrNoCriteria) {
		http.Redirect(w, r, "/albums/", http.StatusFound)
		return
	}
	if err != nil {
		h.handleError(w, r, actor, err)
		return
	}

	h.render(w, r, actor, http.StatusOK, "list_albums", &AlbumListView{
		Items:     albums,
		SortField: repository.SortByTitle,
		Heading:   "Search results",
	})
}
