package server

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"AlbumShelf/logger"
	"AlbumShelf/storage"
)

// StaticHandler 处理静态文件请求. Objects in the MinIO bucket take precedence
// over the assets compiled into the binary.
type StaticHandler struct {
	bucket   *storage.Bucket
	embedded http.Handler
}

// NewStaticHandler 创建 StaticHandler 实例. bucket may be nil.
func NewStaticHandler(bucket *storage.Bucket, assets fs.FS) *StaticHandler {
	return &StaticHandler{
		bucket:   bucket,
		embedded: http.StripPrefix("/static/", http.FileServer(http.FS(assets))),
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/static/")
	if key == "" || strings.HasSuffix(key, "/") {
		http.NotFound(w, r)
		return
	}

	if h.bucket != nil && h.serveObject(w, r, key) {
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	h.embedded.ServeHTTP(w, r)
}

// serveObject copies the object to w and reports whether it was found.
func (h *StaticHandler) serveObject(w http.ResponseWriter, r *http.Request, key string) bool {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	object, info, err := h.bucket.GetObject(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			logger.Warn("[Static] 读取 MinIO 对象失败", logger.String("key", key), logger.ErrorField(err))
		}
		return false
	}
	defer object.Close()

	contentType := info.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.ContentType(key)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if info.ETag != "" {
		w.Header().Set("ETag", `"`+info.ETag+`"`)
	}

	if _, err := io.Copy(w, object); err != nil {
		logger.Error("Error serving file from MinIO", logger.ErrorField(err))
	}
	return true
}
