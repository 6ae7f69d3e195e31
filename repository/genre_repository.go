package repository

import (
	"context"
	"fmt"

	"AlbumShelf/model"

	"gorm.io/gorm"
)

// GenreRepository 流派数据访问接口
type GenreRepository interface {
	// SaveGenre creates or updates the genre; the slug is recomputed from the name.
	SaveGenre(ctx context.Context, genre *model.Genre) error
	GetGenreBySlug(ctx context.Context, slug string) (*model.Genre, error)
	GetGenresByIDs(ctx context.Context, ids []int64) ([]*model.Genre, error)
	ListGenres(ctx context.Context) ([]*model.Genre, error)
	DeleteGenre(ctx context.Context, id int64) error
}

type gormGenreRepository struct {
	db *gorm.DB
}

// NewGormGenreRepository 创建 GORM 流派仓库
func NewGormGenreRepository(db *gorm.DB) GenreRepository {
	return &gormGenreRepository{db: db}
}

func (r *gormGenreRepository) SaveGenre(ctx context.Context, genre *model.Genre) error {
	if err := r.db.WithContext(ctx).Save(genre).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("save genre %q: %w", genre.Name, err)
	}
	return nil
}

func (r *gormGenreRepository) GetGenreBySlug(ctx context.Context, slug string) (*model.Genre, error) {
	var genre model.Genre
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&genre).Error; err != nil {
		return nil, notFound(err)
	}
	return &genre, nil
}

func (r *gormGenreRepository) GetGenresByIDs(ctx context.Context, ids []int64) ([]*model.Genre, error) {
	var genres []*model.Genre
	if len(ids) == 0 {
		return genres, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&genres).Error; err != nil {
		return nil, fmt.Errorf("genres by ids: %w", err)
	}
	return genres, nil
}

func (r *gormGenreRepository) ListGenres(ctx context.Context) ([]*model.Genre, error) {
	var genres []*model.Genre
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&genres).Error; err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return genres, nil
}

func (r *gormGenreRepository) DeleteGenre(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model.Genre{}, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("genre_id = ?", id).Delete(&albumGenre{}).Error; err != nil {
			return fmt.Errorf("unlink genre %d: %w", id, err)
		}
		if err := tx.Delete(&model.Genre{}, id).Error; err != nil {
			return fmt.Errorf("delete genre %d: %w", id, err)
		}
		return nil
	})
}
