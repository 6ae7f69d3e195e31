package catalog

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"AlbumShelf/core/auth"
	"AlbumShelf/logger"
	"AlbumShelf/model"
	"AlbumShelf/repository"
)

// Service 专辑目录业务逻辑. Reads take the viewer for the favorite annotation;
// every mutation runs the authorization gate first.
type Service struct {
	albums  repository.AlbumRepository
	artists repository.ArtistRepository
	genres  repository.GenreRepository
}

// NewService 创建目录服务
func NewService(albums repository.AlbumRepository, artists repository.ArtistRepository, genres repository.GenreRepository) *Service {
	return &Service{albums: albums, artists: artists, genres: genres}
}

// Choices are the options offered by the album form.
type Choices struct {
	Artists []*model.Artist
	Genres  []*model.Genre
}

// ListAlbums returns every album sorted by the whitelisted field.
func (s *Service) ListAlbums(ctx context.Context, viewer *auth.Actor, sort repository.SortField) ([]*model.Album, error) {
	return s.albums.ListAlbums(ctx, sort, viewer.ID())
}

// SearchAlbums returns albums matching the title term, or the artist term when the title term is blank.
func (s *Service) SearchAlbums(ctx context.Context, viewer *auth.Actor, titleTerm, artistTerm string) ([]*model.Album, error) {
	return s.albums.SearchAlbums(ctx, titleTerm, artistTerm, viewer.ID())
}

// AlbumByID returns the album with artist and genres.
func (s *Service) AlbumByID(ctx context.Context, id int64) (*model.Album, error) {
	return s.albums.GetAlbumByID(ctx, id)
}

// AlbumsByGenreSlug returns the genre and its albums sorted by title.
func (s *Service) AlbumsByGenreSlug(ctx context.Context, viewer *auth.Actor, slug string) (*model.Genre, []*model.Album, error) {
	return s.albums.AlbumsByGenreSlug(ctx, slug, viewer.ID())
}

// IsFavorited reports whether the viewer has favorited the album.
func (s *Service) IsFavorited(ctx context.Context, viewer *auth.Actor, albumID int64) (bool, error) {
	if !viewer.Authenticated() {
		return false, nil
	}
	return s.albums.IsFavorited(ctx, albumID, viewer.UserID)
}

// FavoriteAlbums lists the viewer's favorites.
func (s *Service) FavoriteAlbums(ctx context.Context, viewer *auth.Actor) ([]*model.Album, error) {
	if err := auth.RequireAuthenticated(viewer); err != nil {
		return nil, err
	}
	return s.albums.FavoriteAlbums(ctx, viewer.UserID)
}

// FormChoices loads the artists and genres offered by the album form.
func (s *Service) FormChoices(ctx context.Context) (*Choices, error) {
	artists, err := s.artists.ListArtists(ctx)
	if err != nil {
		return nil, err
	}
	genres, err := s.genres.ListGenres(ctx)
	if err != nil {
		return nil, err
	}
	return &Choices{Artists: artists, Genres: genres}, nil
}

// CreateAlbum 创建专辑
func (s *Service) CreateAlbum(ctx context.Context, actor *auth.Actor, in AlbumInput) (*model.Album, error) {
	if err := auth.RequireStaff(actor); err != nil {
		return nil, err
	}
	changes, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}

	album, err := s.albums.CreateAlbum(ctx, changes)
	if err != nil {
		return nil, artistGone(err)
	}
	logger.Info("[Catalog] 专辑已创建",
		logger.Int64("albumId", album.ID),
		logger.String("title", album.Title),
		logger.String("by", actor.Username))
	return album, nil
}

// UpdateAlbum 更新专辑. Optional fields missing from in are cleared.
func (s *Service) UpdateAlbum(ctx context.Context, actor *auth.Actor, id int64, in AlbumInput) (*model.Album, error) {
	if err := auth.RequireStaff(actor); err != nil {
		return nil, err
	}
	changes, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}

	album, err := s.albums.UpdateAlbum(ctx, id, changes)
	if err != nil {
		return nil, artistGone(err)
	}
	logger.Info("[Catalog] 专辑已更新",
		logger.Int64("albumId", album.ID),
		logger.String("by", actor.Username))
	return album, nil
}

// DeleteAlbum 删除专辑
func (s *Service) DeleteAlbum(ctx context.Context, actor *auth.Actor, id int64) error {
	if err := auth.RequireStaff(actor); err != nil {
		return err
	}
	if err := s.albums.DeleteAlbum(ctx, id); err != nil {
		return err
	}
	logger.Info("[Catalog] 专辑已删除",
		logger.Int64("albumId", id),
		logger.String("by", actor.Username))
	return nil
}

// SetFavorite adds or removes the album from the actor's favorites and
// returns the resulting membership.
func (s *Service) SetFavorite(ctx context.Context, actor *auth.Actor, albumID int64, desired bool) (bool, error) {
	if err := auth.RequireAuthenticated(actor); err != nil {
		return false, err
	}
	if err := s.albums.SetFavorite(ctx, albumID, actor.UserID, desired); err != nil {
		return false, err
	}
	logger.Debug("[Catalog] 收藏状态已更新",
		logger.Int64("albumId", albumID),
		logger.Int64("userId", actor.UserID),
		logger.Bool("favorited", desired))
	return desired, nil
}

const invalidArtistChoice = "Select a valid choice. That choice is not one of the available choices."

// artistGone reports an artist deleted after validation as a field error.
func artistGone(err error) error {
	if errors.Is(err, repository.ErrUnknownArtist) {
		verr := &ValidationError{}
		verr.Add("artist", invalidArtistChoice)
		return verr
	}
	return err
}

// validate checks in against the schema and the store, and converts it to
// repository changes.
func (s *Service) validate(ctx context.Context, in AlbumInput) (repository.AlbumChanges, error) {
	verr := &ValidationError{}
	verr.merge(in.formErrors)

	switch {
	case in.Title == "":
		verr.Add("title", "This field is required.")
	case utf8.RuneCountInString(in.Title) > maxTitleLen:
		verr.Add("title", fmt.Sprintf("Ensure this value has at most %d characters.", maxTitleLen))
	}

	changes := repository.AlbumChanges{
		Title:       in.Title,
		ReleaseDate: in.ReleaseDate,
	}

	switch {
	case in.ArtistID != nil:
		if _, err := s.artists.GetArtistByID(ctx, *in.ArtistID); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return changes, err
			}
			verr.Add("artist", invalidArtistChoice)
		}
		changes.ArtistID = in.ArtistID
	case in.ArtistName != "":
		// The type only applies when no artist with this name exists yet.
		typ := in.ArtistType
		if typ != "" && !typ.Valid() {
			verr.Add("artist_type", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", typ))
		}
		if utf8.RuneCountInString(in.ArtistName) > maxArtistNameLen {
			verr.Add("artist_name", fmt.Sprintf("Ensure this value has at most %d characters.", maxArtistNameLen))
		}
		changes.NewArtist = &model.Artist{Name: in.ArtistName, Type: typ}
	}

	if len(in.GenreIDs) > 0 {
		unique := make(map[int64]bool, len(in.GenreIDs))
		for _, id := range in.GenreIDs {
			unique[id] = true
		}
		found, err := s.genres.GetGenresByIDs(ctx, in.GenreIDs)
		if err != nil {
			return changes, err
		}
		if len(found) != len(unique) {
			verr.Add("genres", "Select a valid choice. One or more genres are not available.")
		}
		changes.GenreIDs = in.GenreIDs
	}

	if v := verr.orNil(); v != nil {
		return changes, v
	}
	return changes, nil
}
