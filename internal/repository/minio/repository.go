package minio

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gfdmit/yatube/config"
	"github.com/gfdmit/yatube/internal/model"
	"github.com/gfdmit/yatube/internal/repository"
)

// imagePrefix is the key prefix every post image is stored under.
const imagePrefix = "posts/"

type minioRepository struct {
	cli        *minio.Client
	bucket     string
	linkExpiry time.Duration
}

var _ repository.Media = (*minioRepository)(nil)

// New connects to MinIO and makes sure the bucket exists.
func New(ctx context.Context, conf config.MinIO) (*minioRepository, error) {
	client, err := minio.New(fmt.Sprintf("%s:%s", conf.Host, conf.Port), &minio.Options{
		Creds:  credentials.NewStaticV4(conf.User, conf.Pass, ""),
		Secure: conf.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio.New: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, conf.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio.BucketExists: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, conf.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio.MakeBucket: %w", err)
		}
	}

	return &minioRepository{cli: client, bucket: conf.Bucket, linkExpiry: conf.LinkExpiry}, nil
}

// PutImage uploads the image and returns its object key.
func (mr *minioRepository) PutImage(ctx context.Context, upload model.ImageUpload) (string, error) {
	objectName := ObjectName(upload.Filename)

	_, err := mr.cli.PutObject(
		ctx,
		mr.bucket,
		objectName,
		upload.Body,
		upload.Size,
		minio.PutObjectOptions{ContentType: upload.ContentType},
	)
	if err != nil {
		return "", fmt.Errorf("minio.PutObject: %w", err)
	}
	return objectName, nil
}

func (mr *minioRepository) DeleteImage(ctx context.Context, key string) error {
	if err := mr.cli.RemoveObject(ctx, mr.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio.RemoveObject: %w", err)
	}
	return nil
}

// ImageURL presigns a download link for a stored image.
func (mr *minioRepository) ImageURL(ctx context.Context, key string) (string, error) {
	u, err := mr.cli.PresignedGetObject(ctx, mr.bucket, key, mr.linkExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("minio.PresignedGetObject: %w", err)
	}
	return u.String(), nil
}

// ObjectName builds a collision-free key that keeps the upload's extension.
func ObjectName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s%s%s", imagePrefix, uuid.New().String(), ext)
}
