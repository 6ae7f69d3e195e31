package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"sort"
	"strings"
	"time"

	"AlbumShelf/config"
	"AlbumShelf/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectNotFound is returned when the bucket has no object under the key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// Bucket 封装了静态资源所在的 MinIO 存储桶
type Bucket struct {
	client *minio.Client
	name   string
	region string
}

// NewBucket 创建 MinIO 客户端
func NewBucket(cfg *config.Config) (*Bucket, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}
	return &Bucket{client: client, name: cfg.MinioBucket, region: cfg.MinioRegion}, nil
}

// Name returns the bucket name.
func (b *Bucket) Name() string {
	return b.name
}

// EnsureBucket 检查存储桶, creating it when missing.
func (b *Bucket) EnsureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.name)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if exists {
		logger.Debug("[MinIO] 存储桶已存在", logger.String("bucket", b.name))
		return nil
	}
	if err := b.client.MakeBucket(ctx, b.name, minio.MakeBucketOptions{Region: b.region}); err != nil {
		return fmt.Errorf("创建存储桶失败: %w", err)
	}
	logger.Info("[MinIO] 成功创建存储桶", logger.String("bucket", b.name))
	return nil
}

// GetObject opens the object. The caller closes the reader.
func (b *Bucket) GetObject(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	obj, err := b.client.GetObject(ctx, b.name, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("get object %s: %w", key, err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, fmt.Errorf("stat object %s: %w", key, err)
	}
	return obj, toObjectInfo(stat), nil
}

// PutObject uploads size bytes from r under key.
func (b *Bucket) PutObject(ctx context.Context, key string, r io.Reader, size int64) error {
	_, err := b.client.PutObject(ctx, b.name, key, r, size, minio.PutObjectOptions{
		ContentType: ContentType(key),
	})
	if err != nil {
		return fmt.Errorf("上传文件失败 %s: %w", key, err)
	}
	return nil
}

// ListObjects 列出前缀下的所有对象, sorted by key.
func (b *Bucket) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	for object := range b.client.ListObjects(ctx, b.name, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("列出对象失败: %w", object.Err)
		}
		objects = append(objects, *toObjectInfo(object))
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// SyncFS uploads every regular file of fsys to the bucket, keyed by its path.
// It returns the number of uploaded files.
func (b *Bucket) SyncFS(ctx context.Context, fsys fs.FS) (int, error) {
	uploaded := 0
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		f, err := fsys.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		if err := b.PutObject(ctx, p, f, info.Size()); err != nil {
			return err
		}
		uploaded++
		logger.Debug("[MinIO] 已上传", logger.String("key", p), logger.Int64("size", info.Size()))
		return nil
	})
	return uploaded, err
}

func toObjectInfo(o minio.ObjectInfo) *ObjectInfo {
	return &ObjectInfo{
		Key:          o.Key,
		Size:         o.Size,
		LastModified: o.LastModified,
		ContentType:  o.ContentType,
		ETag:         o.ETag,
	}
}

// ContentType 根据扩展名检测内容类型
func ContentType(key string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(key))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
