package repository

import (
	"context"
	"testing"
	"time"

	"AlbumShelf/db"
	"AlbumShelf/model"

	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database with the schema migrated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.OpenSQLite(":memory:", false)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { db.Close(gdb) })
	return gdb
}

type fixture struct {
	albums  AlbumRepository
	artists ArtistRepository
	genres  GenreRepository
	users   UserRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := setupTestDB(t)
	return &fixture{
		albums:  NewGormAlbumRepository(gdb),
		artists: NewGormArtistRepository(gdb),
		genres:  NewGormGenreRepository(gdb),
		users:   NewGormUserRepository(gdb),
	}
}

func (f *fixture) artist(t *testing.T, name string, typ model.ArtistType) *model.Artist {
	t.Helper()
	a := &model.Artist{Name: name, Type: typ}
	if err := f.artists.CreateArtist(context.Background(), a); err != nil {
		t.Fatalf("failed to create artist %s: %v", name, err)
	}
	return a
}

func (f *fixture) genre(t *testing.T, name string) *model.Genre {
	t.Helper()
	g := &model.Genre{Name: name}
	if err := f.genres.SaveGenre(context.Background(), g); err != nil {
		t.Fatalf("failed to create genre %s: %v", name, err)
	}
	return g
}

func (f *fixture) user(t *testing.T, name string) *model.User {
	t.Helper()
	u := &model.User{Username: name, PasswordHash: "x"}
	if err := f.users.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return u
}

func (f *fixture) album(t *testing.T, title string, artist *model.Artist, genres ...*model.Genre) *model.Album {
	t.Helper()
	changes := AlbumChanges{Title: title}
	if artist != nil {
		changes.ArtistID = &artist.ID
	}
	for _, g := range genres {
		changes.GenreIDs = append(changes.GenreIDs, g.ID)
	}
	a, err := f.albums.CreateAlbum(context.Background(), changes)
	if err != nil {
		t.Fatalf("failed to create album %s: %v", title, err)
	}
	return a
}

func date(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad date %s: %v", s, err)
	}
	return &d
}

func titles(albums []*model.Album) []string {
	out := make([]string, len(albums))
	for i, a := range albums {
		out[i] = a.Title
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
