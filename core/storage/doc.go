// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client so a generated patch can be published to an
// S3-compatible bucket, from which a mod launcher or another machine can
// fetch it.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (see core/storage/mocks).
//
// # Usage
//
//	client, err := storage.NewClient(cfg)
//	exists, err := client.BucketExists(ctx, cfg.Bucket)
//	_, err = client.PutObject(ctx, cfg.Bucket, cfg.ObjectName("patch.h5u"), f, size, minio.PutObjectOptions{})
package storage
