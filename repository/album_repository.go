package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"AlbumShelf/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// favoritedByViewer annotates each album row with the viewer's favorite status
// through a correlated EXISTS on the join table.
const favoritedByViewer = "albums.*, EXISTS (SELECT 1 FROM album_favorites af " +
	"WHERE af.album_id = albums.id AND af.user_id = ?) AS favorited_by_viewer"

// AlbumChanges 描述一次专辑写入. Nil/empty optional fields clear the stored value.
type AlbumChanges struct {
	Title       string
	ReleaseDate *time.Time
	ArtistID    *int64
	// NewArtist is found by name (case-insensitively) or created when ArtistID is nil.
	// An existing artist is reused unchanged; Type only applies on creation
	// and defaults to individual.
	NewArtist *model.Artist
	GenreIDs  []int64
}

// AlbumRepository 定义专辑相关的数据库操作接口
type AlbumRepository interface {
	// ListAlbums 获取全部专辑, annotated with the viewer's favorite status
	ListAlbums(ctx context.Context, sort SortField, viewerID int64) ([]*model.Album, error)

	// SearchAlbums matches the title term, or the artist term when the title term is blank
	SearchAlbums(ctx context.Context, titleTerm, artistTerm string, viewerID int64) ([]*model.Album, error)

	// GetAlbumByID 根据ID获取专辑信息 (artist and genres loaded)
	GetAlbumByID(ctx context.Context, id int64) (*model.Album, error)

	// AlbumsByGenreSlug 获取某个流派下的专辑
	AlbumsByGenreSlug(ctx context.Context, slug string, viewerID int64) (*model.Genre, []*model.Album, error)

	// CreateAlbum 创建新专辑及其流派关联
	CreateAlbum(ctx context.Context, changes AlbumChanges) (*model.Album, error)

	// UpdateAlbum 更新专辑信息, replacing its genre set
	UpdateAlbum(ctx context.Context, id int64, changes AlbumChanges) (*model.Album, error)

	// DeleteAlbum 删除专辑 with its genre and favorite rows
	DeleteAlbum(ctx context.Context, id int64) error

	// IsFavorited 判断用户是否收藏了专辑
	IsFavorited(ctx context.Context, albumID, userID int64) (bool, error)

	// SetFavorite adds or removes the favorite row; both directions are idempotent
	SetFavorite(ctx context.Context, albumID, userID int64, favorited bool) error

	// FavoriteAlbums 获取用户收藏的专辑
	FavoriteAlbums(ctx context.Context, userID int64) ([]*model.Album, error)
}

// albumGenre is the album_genres join row.
type albumGenre struct {
	AlbumID int64 `gorm:"primaryKey"`
	GenreID int64 `gorm:"primaryKey"`
}

func (albumGenre) TableName() string {
	return "album_genres"
}

// gormAlbumRepository GORM 实现
type gormAlbumRepository struct {
	db *gorm.DB
}

// NewGormAlbumRepository 创建 GORM 专辑仓库
func NewGormAlbumRepository(db *gorm.DB) AlbumRepository {
	return &gormAlbumRepository{db: db}
}

func (r *gormAlbumRepository) annotated(ctx context.Context, viewerID int64) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Album{}).
		Select(favoritedByViewer, viewerID).
		Preload("Artist")
}

// ListAlbums 获取全部专辑
func (r *gormAlbumRepository) ListAlbums(ctx context.Context, sort SortField, viewerID int64) ([]*model.Album, error) {
	var albums []*model.Album
	if err := sort.apply(r.annotated(ctx, viewerID)).Find(&albums).Error; err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	return albums, nil
}

// SearchAlbums 搜索专辑
func (r *gormAlbumRepository) SearchAlbums(ctx context.Context, titleTerm, artistTerm string, viewerID int64) ([]*model.Album, error) {
	titleTerm = strings.TrimSpace(titleTerm)
	artistTerm = strings.TrimSpace(artistTerm)

	q := r.annotated(ctx, viewerID)
	switch {
	case titleTerm != "":
		q = q.Where("LOWER(albums.title) LIKE ? ESCAPE '!'", containsPattern(titleTerm))
	case artistTerm != "":
		q = q.Joins("JOIN artists ON artists.id = albums.artist_id").
			Where("LOWER(artists.name) LIKE ? ESCAPE '!'", containsPattern(artistTerm))
	default:
		return nil, ErrNoCriteria
	}

	var albums []*model.Album
	if err := SortByTitle.apply(q).Find(&albums).Error; err != nil {
		return nil, fmt.Errorf("search albums: %w", err)
	}
	return albums, nil
}

// containsPattern builds a case-folded LIKE pattern with the wildcards of term escaped.
func containsPattern(term string) string {
	escaped := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(strings.ToLower(term))
	return "%" + escaped + "%"
}

// GetAlbumByID 根据ID获取专辑信息
func (r *gormAlbumRepository) GetAlbumByID(ctx context.Context, id int64) (*model.Album, error) {
	var album model.Album
	err := r.db.WithContext(ctx).
		Preload("Artist").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.name ASC") }).
		First(&album, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &album, nil
}

// AlbumsByGenreSlug 获取某个流派下的专辑
func (r *gormAlbumRepository) AlbumsByGenreSlug(ctx context.Context, slug string, viewerID int64) (*model.Genre, []*model.Album, error) {
	var genre model.Genre
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&genre).Error; err != nil {
		return nil, nil, notFound(err)
	}

	var albums []*model.Album
	q := r.annotated(ctx, viewerID).
		Joins("JOIN album_genres ag ON ag.album_id = albums.id").
		Where("ag.genre_id = ?", genre.ID)
	if err := SortByTitle.apply(q).Find(&albums).Error; err != nil {
		return nil, nil, fmt.Errorf("albums for genre %s: %w", slug, err)
	}
	return &genre, albums, nil
}

// CreateAlbum 创建新专辑
func (r *gormAlbumRepository) CreateAlbum(ctx context.Context, changes AlbumChanges) (*model.Album, error) {
	album := &model.Album{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applyChanges(tx, album, changes); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(album).Error; err != nil {
			return fmt.Errorf("insert album: %w", err)
		}
		return replaceGenres(tx, album.ID, changes.GenreIDs)
	})
	if err != nil {
		return nil, err
	}
	return r.GetAlbumByID(ctx, album.ID)
}

// UpdateAlbum 更新专辑信息
func (r *gormAlbumRepository) UpdateAlbum(ctx context.Context, id int64, changes AlbumChanges) (*model.Album, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var album model.Album
		if err := tx.First(&album, id).Error; err != nil {
			return notFound(err)
		}
		if err := applyChanges(tx, &album, changes); err != nil {
			return err
		}
		// Save writes zero values, so cleared optional fields become NULL.
		if err := tx.Omit(clause.Associations).Save(&album).Error; err != nil {
			return fmt.Errorf("update album %d: %w", id, err)
		}
		return replaceGenres(tx, album.ID, changes.GenreIDs)
	})
	if err != nil {
		return nil, err
	}
	return r.GetAlbumByID(ctx, id)
}

// applyChanges copies the scalar fields and resolves the artist reference.
func applyChanges(tx *gorm.DB, album *model.Album, changes AlbumChanges) error {
	album.Title = changes.Title
	album.ReleaseDate = changes.ReleaseDate
	album.ArtistID = changes.ArtistID
	album.Artist = nil

	if changes.ArtistID != nil {
		// Foreign keys are not migrated, so the reference is checked here.
		var count int64
		if err := tx.Model(&model.Artist{}).Where("id = ?", *changes.ArtistID).Count(&count).Error; err != nil {
			return fmt.Errorf("check artist %d: %w", *changes.ArtistID, err)
		}
		if count == 0 {
			return ErrUnknownArtist
		}
		return nil
	}
	if changes.NewArtist != nil {
		artist, err := findOrCreateArtist(tx, changes.NewArtist)
		if err != nil {
			return err
		}
		album.ArtistID = &artist.ID
	}
	return nil
}

func findOrCreateArtist(tx *gorm.DB, want *model.Artist) (*model.Artist, error) {
	var artist model.Artist
	err := tx.Where("LOWER(name) = ?", strings.ToLower(want.Name)).Order("id ASC").First(&artist).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		artist = model.Artist{Name: want.Name, Type: want.Type}
		if artist.Type == "" {
			artist.Type = model.ArtistIndividual
		}
		if err := tx.Create(&artist).Error; err != nil {
			return nil, fmt.Errorf("create artist %q: %w", want.Name, err)
		}
	case err != nil:
		return nil, fmt.Errorf("find artist %q: %w", want.Name, err)
	}
	return &artist, nil
}

// replaceGenres 重建专辑的流派关联
func replaceGenres(tx *gorm.DB, albumID int64, genreIDs []int64) error {
	if err := tx.Where("album_id = ?", albumID).Delete(&albumGenre{}).Error; err != nil {
		return fmt.Errorf("clear genres of album %d: %w", albumID, err)
	}

	seen := make(map[int64]bool, len(genreIDs))
	rows := make([]albumGenre, 0, len(genreIDs))
	for _, id := range genreIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, albumGenre{AlbumID: albumID, GenreID: id})
	}
	if len(rows) == 0 {
		return nil
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("link genres to album %d: %w", albumID, err)
	}
	return nil
}

// DeleteAlbum 删除专辑
func (r *gormAlbumRepository) DeleteAlbum(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&model.Album{}, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("album_id = ?", id).Delete(&albumGenre{}).Error; err != nil {
			return fmt.Errorf("delete genre links of album %d: %w", id, err)
		}
		if err := tx.Where("album_id = ?", id).Delete(&model.AlbumFavorite{}).Error; err != nil {
			return fmt.Errorf("delete favorites of album %d: %w", id, err)
		}
		if err := tx.Delete(&model.Album{}, id).Error; err != nil {
			return fmt.Errorf("delete album %d: %w", id, err)
		}
		return nil
	})
}

// IsFavorited 判断用户是否收藏了专辑
func (r *gormAlbumRepository) IsFavorited(ctx context.Context, albumID, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AlbumFavorite{}).
		Where("album_id = ? AND user_id = ?", albumID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return count > 0, nil
}

// SetFavorite 收藏或取消收藏
func (r *gormAlbumRepository) SetFavorite(ctx context.Context, albumID, userID int64, favorited bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&model.Album{}, albumID).Error; err != nil {
			return notFound(err)
		}
		if favorited {
			row := &model.AlbumFavorite{AlbumID: albumID, UserID: userID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
				return fmt.Errorf("add favorite: %w", err)
			}
			return nil
		}
		if err := tx.Where("album_id = ? AND user_id = ?", albumID, userID).Delete(&model.AlbumFavorite{}).Error; err != nil {
			return fmt.Errorf("remove favorite: %w", err)
		}
		return nil
	})
}

// FavoriteAlbums 获取用户收藏的专辑
func (r *gormAlbumRepository) FavoriteAlbums(ctx context.Context, userID int64) ([]*model.Album, error) {
	var albums []*model.Album
	q := r.annotated(ctx, userID).
		Joins("JOIN album_favorites fav ON fav.album_id = albums.id").
		Where("fav.user_id = ?", userID)
	if err := SortByTitle.apply(q).Find(&albums).Error; err != nil {
		return nil, fmt.Errorf("favorite albums of user %d: %w", userID, err)
	}
	return albums, nil
}
