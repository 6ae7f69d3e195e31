package repository

import "gorm.io/gorm"

// SortField is a whitelisted album ordering.
type SortField string

const (
	SortByTitle       SortField = "title"
	SortByReleaseDate SortField = "release_date"
	SortByArtist      SortField = "artist"
	SortByCreatedAt   SortField = "created_at"
	SortByUpdatedAt   SortField = "updated_at"
)

// SortFields lists the accepted values in display order.
var SortFields = []SortField{SortByTitle, SortByArtist, SortByReleaseDate, SortByCreatedAt, SortByUpdatedAt}

// ParseSortField maps a request value onto the whitelist. Unknown and empty
// values fall back to SortByTitle; the raw value never reaches SQL.
func ParseSortField(raw string) SortField {
	for _, f := range SortFields {
		if string(f) == raw {
			return f
		}
	}
	return SortByTitle
}

// apply adds the ORDER BY for the field, always ascending with id as tie-breaker.
func (f SortField) apply(q *gorm.DB) *gorm.DB {
	switch f {
	case SortByReleaseDate:
		q = q.Order("albums.release_date ASC")
	case SortByArtist:
		q = q.Joins("LEFT JOIN artists ON artists.id = albums.artist_id").Order("artists.name ASC")
	case SortByCreatedAt:
		q = q.Order("albums.created_at ASC")
	case SortByUpdatedAt:
		q = q.Order("albums.updated_at ASC")
	default:
		q = q.Order("albums.title ASC")
	}
	return q.Order("albums.id ASC")
}
