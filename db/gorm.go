package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"AlbumShelf/config"
	"AlbumShelf/logger"
	"AlbumShelf/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ConnectGormDB 建立 GORM 数据库连接, using the driver named by cfg.DBDriver.
func ConnectGormDB(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "mysql", "":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
		gdb, err := open(mysql.Open(dsn), cfg.Debug)
		if err != nil {
			return nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		// 连接池参数
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
		logger.Info("Connected to MySQL", logger.String("host", cfg.DBHost), logger.String("db", cfg.DBName))
		return gdb, nil
	case "sqlite":
		gdb, err := OpenSQLite(cfg.SQLitePath, cfg.Debug)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to SQLite", logger.String("path", cfg.SQLitePath))
		return gdb, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// OpenSQLite opens a SQLite database. ":memory:" databases are pinned to a
// single connection so every query sees the same schema.
func OpenSQLite(path string, debug bool) (*gorm.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on"
	}
	gdb, err := open(sqlite.Open(dsn), debug)
	if err != nil {
		return nil, err
	}
	if strings.Contains(path, ":memory:") {
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return gdb, nil
}

func open(dialector gorm.Dialector, debug bool) (*gorm.DB, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(debug),
		// 禁用外键约束; artist removal nulls album references in the repository instead
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database with GORM: %w", err)
	}
	if err := gdb.SetupJoinTable(&model.Album{}, "FavoritedBy", &model.AlbumFavorite{}); err != nil {
		return nil, fmt.Errorf("failed to set up favorites join table: %w", err)
	}
	return gdb, nil
}

// Close 关闭 GORM 数据库连接
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database answers.
func Ping(ctx context.Context, gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Migrate 自动迁移所有模型
func Migrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&model.User{},
		&model.Artist{},
		&model.Genre{},
		&model.Album{},
		&model.AlbumFavorite{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	logger.Info("Models migrated successfully with GORM.")
	return nil
}
