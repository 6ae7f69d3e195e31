package catalog

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"AlbumShelf/model"
)

// DateLayout is the accepted release date format.
const DateLayout = "2006-01-02"

const (
	maxTitleLen      = 255
	maxArtistNameLen = 255
)

// AlbumInput is the staff-supplied content of an album form.
type AlbumInput struct {
	Title       string
	ArtistID    *int64
	ArtistName  string
	ArtistType  model.ArtistType
	ReleaseDate *time.Time
	GenreIDs    []int64

	// formErrors holds the syntax errors found by ParseAlbumForm.
	formErrors *ValidationError
}

// FormErrors returns the fields ParseAlbumForm could not parse, or nil.
func (in AlbumInput) FormErrors() *ValidationError {
	return in.formErrors.orNil()
}

// ValidationError carries per-field messages for a rejected AlbumInput.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], " ")))
	}
	return "invalid album: " + strings.Join(parts, "; ")
}

// Add records a message for field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// merge appends the messages of other to e.
func (e *ValidationError) merge(other *ValidationError) {
	if other == nil {
		return
	}
	for field, msgs := range other.Fields {
		for _, msg := range msgs {
			e.Add(field, msg)
		}
	}
}

// orNil returns e when it holds messages, otherwise nil.
func (e *ValidationError) orNil() *ValidationError {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ParseAlbumForm reads the album form fields: title, artist (id), artist_name,
// artist_type, release_date and repeated genres. Blank optional fields are
// left empty so that an update clears them. Unparseable fields are recorded
// on the input and reported by the service together with its own checks.
func ParseAlbumForm(form url.Values) AlbumInput {
	verr := &ValidationError{}
	in := AlbumInput{
		Title:      strings.TrimSpace(form.Get("title")),
		ArtistName: strings.TrimSpace(form.Get("artist_name")),
		ArtistType: model.ArtistType(strings.ToUpper(strings.TrimSpace(form.Get("artist_type")))),
	}

	if raw := strings.TrimSpace(form.Get("artist")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			verr.Add("artist", "Select a valid choice.")
		} else {
			in.ArtistID = &id
		}
	}

	if raw := strings.TrimSpace(form.Get("release_date")); raw != "" {
		d, err := time.Parse(DateLayout, raw)
		if err != nil {
			verr.Add("release_date", "Enter a valid date (YYYY-MM-DD).")
		} else {
			in.ReleaseDate = &d
		}
	}

	for _, raw := range form["genres"] {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			verr.Add("genres", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", raw))
			continue
		}
		in.GenreIDs = append(in.GenreIDs, id)
	}

	in.formErrors = verr.orNil()
	return in
}
