package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a primary key or slug matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrNoCriteria is returned by SearchAlbums when neither term is given.
	ErrNoCriteria = errors.New("no search criteria")
	// ErrDuplicateSlug is returned when a genre name maps onto an existing slug.
	ErrDuplicateSlug = errors.New("genre slug already exists")
	// ErrDuplicateUser is returned when the username is taken.
	ErrDuplicateUser = errors.New("username already exists")
	// ErrUnknownArtist is returned when an album write references a missing artist.
	ErrUnknownArtist = errors.New("artist does not exist")
)

const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
