package repository

import (
	"context"
	"fmt"

	"AlbumShelf/model"

	"gorm.io/gorm"
)

// ArtistRepository 艺人数据访问接口
type ArtistRepository interface {
	CreateArtist(ctx context.Context, artist *model.Artist) error
	GetArtistByID(ctx context.Context, id int64) (*model.Artist, error)
	ListArtists(ctx context.Context) ([]*model.Artist, error)
	// DeleteArtist removes the artist and detaches it from its albums; the albums stay.
	DeleteArtist(ctx context.Context, id int64) error
}

type gormArtistRepository struct {
	db *gorm.DB
}

// NewGormArtistRepository 创建 GORM 艺人仓库
func NewGormArtistRepository(db *gorm.DB) ArtistRepository {
	return &gormArtistRepository{db: db}
}

func (r *gormArtistRepository) CreateArtist(ctx context.Context, artist *model.Artist) error {
	if err := r.db.WithContext(ctx).Create(artist).Error; err != nil {
		return fmt.Errorf("create artist %q: %w", artist.Name, err)
	}
	return nil
}

func (r *gormArtistRepository) GetArtistByID(ctx context.Context, id int64) (*model.Artist, error) {
	var artist model.Artist
	if err := r.db.WithContext(ctx).First(&artist, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &artist, nil
}

func (r *gormArtistRepository) ListArtists(ctx context.Context) ([]*model.Artist, error) {
	var artists []*model.Artist
	if err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&artists).Error; err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}
	return artists, nil
}

func (r *gormArtistRepository) DeleteArtist(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model.Artist{}, id).Error; err != nil {
			return notFound(err)
		}
		// SET NULL semantics, independent of the dialect's FK support
		if err := tx.Model(&model.Album{}).Where("artist_id = ?", id).Update("artist_id", nil).Error; err != nil {
			return fmt.Errorf("detach artist %d from albums: %w", id, err)
		}
		if err := tx.Delete(&model.Artist{}, id).Error; err != nil {
			return fmt.Errorf("delete artist %d: %w", id, err)
		}
		return nil
	})
}
