package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"wsync-go/internal/config"
	"wsync-go/internal/ws"
)

// S3Store is an S3-backed implementation of the RemoteStore interface.
// Each user's latest snapshot lives at <prefix>/<userID>/snapshot.json;
// uploads overwrite it, so the bucket holds exactly one snapshot per user.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Store creates an S3 snapshot store from remote config. Credentials
// fall back to the ambient AWS credential chain when the config carries no
// static keys.
func NewS3Store(ctx context.Context, cfg config.RemoteConfig) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 remote requires s3_bucket to be set")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
	}, nil
}

func (s *S3Store) snapshotKey(userID string) string {
	return path.Join(s.prefix, userID, "snapshot.json")
}

// PutSnapshot uploads the snapshot for a user, replacing any previous one.
// The upload manager handles multipart for large snapshots; size is not
// needed for S3 but is kept for interface symmetry.
func (s *S3Store) PutSnapshot(ctx context.Context, userID string, r io.Reader, size int64) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.snapshotKey(userID)),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("uploading snapshot to s3: %w", err)
	}
	return nil
}

// GetLatestSnapshot downloads the latest snapshot for a user.
func (s *S3Store) GetLatestSnapshot(ctx context.Context, userID string, w io.Writer) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.snapshotKey(userID)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return ws.ErrNoSnapshot
		}
		return fmt.Errorf("fetching snapshot from s3: %w", err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading snapshot body: %w", err)
	}
	return nil
}

// Validate verifies the bucket is reachable with the configured credentials.
func (s *S3Store) Validate(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 bucket %q not accessible: %w", s.bucket, err)
	}
	return nil
}

// Compile-time check that S3Store implements the ws.RemoteStore interface
var _ ws.RemoteStore = (*S3Store)(nil)
