package db

import (
	"context"
	"errors"
	"time"

	"AlbumShelf/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLogger routes gorm's SQL logging through zap.
type gormLogger struct {
	level gormlogger.LogLevel
}

// NewGormLogger returns a gorm logger writing to the application logger.
// In debug mode every statement is logged; otherwise only slow queries and errors.
func NewGormLogger(debug bool) gormlogger.Interface {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return &gormLogger{level: level}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLogger{level: level}
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		logger.L().Sugar().Infof(msg, args...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		logger.L().Sugar().Warnf(msg, args...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		logger.L().Sugar().Errorf(msg, args...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		logger.String("sql", sql),
		logger.Int64("rows", rows),
		logger.Duration("elapsed", elapsed),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		logger.L().Error("gorm query failed", append(fields, logger.ErrorField(err))...)
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		logger.L().Warn("gorm slow query", fields...)
	case l.level >= gormlogger.Info:
		logger.L().Debug("gorm query", fields...)
	}
}
