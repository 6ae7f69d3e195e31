package server

import (
	"net/http"
	"net/url"
	"strconv"

	"AlbumShelf/core/auth"
	"AlbumShelf/core/catalog"
	"AlbumShelf/model"
	"AlbumShelf/repository"
)

// page is the data handed to every HTML template.
type page struct {
	Actor   *auth.Actor
	Flashes []string
	Data    any
}

// IsStaff reports whether the viewer may see staff controls.
func (p page) IsStaff() bool {
	return p.Actor != nil && p.Actor.IsStaff
}

// AlbumListView is the view model of the list, search, favorites and genre pages.
type AlbumListView struct {
	Items     []*model.Album       `json:"items"`
	SortField repository.SortField `json:"sortField"`
	Genre     *model.Genre         `json:"genre,omitempty"`

	Heading    string                 `json:"-"`
	Sortable   bool                   `json:"-"`
	SortFields []repository.SortField `json:"-"`
}

// AlbumDetailView is the view model of the album page.
type AlbumDetailView struct {
	Album     *model.Album `json:"album"`
	Favorited bool         `json:"favorited"`
}

// AlbumFormView backs the add and edit forms. Form holds the submitted (or
// prefilled) raw values so an invalid submission is redisplayed unchanged.
type AlbumFormView struct {
	Album   *model.Album        `json:"album,omitempty"`
	Action  string              `json:"-"`
	Form    url.Values          `json:"-"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Choices *catalog.Choices    `json:"-"`
}

// Value returns the raw form value of a field.
func (v *AlbumFormView) Value(name string) string {
	return v.Form.Get(name)
}

// Selected reports whether id is among the submitted values of a choice field.
func (v *AlbumFormView) Selected(name string, id int64) bool {
	want := strconv.FormatInt(id, 10)
	for _, got := range v.Form[name] {
		if got == want {
			return true
		}
	}
	return false
}

// albumFormValues prefills the edit form from a stored album.
func albumFormValues(a *model.Album) url.Values {
	form := url.Values{}
	form.Set("title", a.Title)
	form.Set("artist_type", string(model.ArtistIndividual))
	if a.ArtistID != nil {
		form.Set("artist", strconv.FormatInt(*a.ArtistID, 10))
	}
	if a.ReleaseDate != nil {
		form.Set("release_date", a.ReleaseDate.Format(catalog.DateLayout))
	}
	for _, g := range a.Genres {
		form.Add("genres", strconv.FormatInt(g.ID, 10))
	}
	return form
}

// DeleteView is the confirmation page model.
type DeleteView struct {
	Album *model.Album `json:"album"`
}

// AuthFormView backs the login and register pages.
type AuthFormView struct {
	Username string `json:"-"`
	Next     string `json:"-"`
	Error    string `json:"error,omitempty"`
}

// ErrorView backs the error page.
type ErrorView struct {
	Status  int    `json:"status"`
	Text    string `json:"-"`
	Message string `json:"error"`
}

func newErrorView(status int, msg string) *ErrorView {
	return &ErrorView{Status: status, Text: http.StatusText(status), Message: msg}
}
