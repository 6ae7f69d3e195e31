package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ArtistType 艺人类型
type ArtistType string

const (
	ArtistIndividual ArtistType = "IND"
	ArtistGroup      ArtistType = "GRP"
)

// Valid reports whether t is one of the two known artist types.
func (t ArtistType) Valid() bool {
	return t == ArtistIndividual || t == ArtistGroup
}

// Label returns the human readable name of the type.
func (t ArtistType) Label() string {
	switch t {
	case ArtistIndividual:
		return "individual"
	case ArtistGroup:
		return "group"
	default:
		return string(t)
	}
}

// Artist 艺人
type Artist struct {
	ID        int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string     `json:"name" gorm:"size:255;not null;index"`
	Type      ArtistType `json:"type" gorm:"size:3;not null"`
	CreatedAt time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TableName 指定表名
func (Artist) TableName() string {
	return "artists"
}

// Genre 流派. Slug is derived from Name on every save.
type Genre struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"size:75;not null"`
	Slug      string    `json:"slug" gorm:"size:75;not null;uniqueIndex"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Genre) TableName() string {
	return "genres"
}

// ErrEmptySlug is returned when a genre name has no characters a slug can keep.
var ErrEmptySlug = errors.New("genre name produces an empty slug")

// BeforeSave keeps the slug in step with the name.
func (g *Genre) BeforeSave(tx *gorm.DB) error {
	g.Slug = Slugify(g.Name)
	if g.Slug == "" {
		return ErrEmptySlug
	}
	return nil
}

// Album 专辑
type Album struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string     `json:"title" gorm:"size:255;not null"`
	ArtistID    *int64     `json:"artistId" gorm:"index"`
	Artist      *Artist    `json:"artist,omitempty"`
	ReleaseDate *time.Time `json:"releaseDate,omitempty" gorm:"type:date"`
	Genres      []Genre    `json:"genres,omitempty" gorm:"many2many:album_genres;"`
	FavoritedBy []User     `json:"-" gorm:"many2many:album_favorites;"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// FavoritedByViewer is filled by queries that annotate the current viewer's favorite status.
	FavoritedByViewer bool `json:"favoritedByViewer" gorm:"->;-:migration"`
}

// TableName 指定表名
func (Album) TableName() string {
	return "albums"
}

// ArtistName returns the related artist's name, or "" when the album has none.
func (a *Album) ArtistName() string {
	if a.Artist == nil {
		return ""
	}
	return a.Artist.Name
}

// AlbumFavorite is the join row of the favorite relation (user → album).
type AlbumFavorite struct {
	AlbumID   int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (AlbumFavorite) TableName() string {
	return "album_favorites"
}
