package objstore

import (
	"context"
	"net/url"
	"time"

	"github.com/apex/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// MinioLinkIssuer signs GET URLs against an S3-compatible bucket
// (Backblaze B2 in production).
type MinioLinkIssuer struct {
	client *minio.Client
	bucket string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func NewMinioLinkIssuer(cfg MinioConfig) (*MinioLinkIssuer, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create client for endpoint %s", cfg.Endpoint)
	}

	return &MinioLinkIssuer{client: client, bucket: cfg.Bucket}, nil
}

func (m *MinioLinkIssuer) PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	signed, err := m.client.PresignedGetObject(ctx, m.bucket, key, ClampExpiry(expiry), url.Values{})
	if err != nil {
		log.Errorf("presign failed for %s/%s: %s", m.bucket, key, err)
		return "", ErrFileUnavailable
	}

	return signed.String(), nil
}

// VerifyBucket checks the bucket is reachable at startup.
func (m *MinioLinkIssuer) VerifyBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return errors.Wrapf(err, "bucket check failed for %s", m.bucket)
	}

	if !exists {
		return errors.Errorf("bucket %s does not exist", m.bucket)
	}

	return nil
}
