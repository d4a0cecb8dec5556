package revision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"acmsync/internal/config"
)

// S3Store keeps revisions in an S3 bucket under <prefix><ACM>/db<N>.zip.
// Credentials come from the usual AWS chain (environment, shared config,
// instance role).
type S3Store struct {
	svc    s3iface.S3API
	bucket string
	prefix string
}

var _ Store = (*S3Store)(nil)

// NewS3Store wraps an S3 client. prefix is prepended to every key so one
// bucket can hold several programs.
func NewS3Store(svc s3iface.S3API, bucket, prefix string) *S3Store {
	return &S3Store{svc: svc, bucket: bucket, prefix: prefix}
}

// NewS3StoreFromConfig creates a session from the storage config section.
func NewS3StoreFromConfig(cfg *config.Config) (*S3Store, error) {
	awsCfg := aws.NewConfig()
	if cfg.Storage.S3Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Storage.S3Region)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *awsCfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return NewS3Store(s3.New(sess), cfg.Storage.S3Bucket, cfg.Storage.S3Prefix), nil
}

func (s *S3Store) key(acm, name string) string {
	return s.prefix + acm + "/" + name
}

// List returns the revision filenames of acm in ascending order.
func (s *S3Store) List(ctx context.Context, acm string) ([]string, error) {
	dirPrefix := s.prefix + acm + "/"
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(dirPrefix),
	}
	var names []string
	err := s.svc.ListObjectsV2PagesWithContext(ctx, input,
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, item := range page.Contents {
				name := strings.TrimPrefix(aws.StringValue(item.Key), dirPrefix)
				if !strings.Contains(name, "/") {
					names = append(names, name)
				}
			}
			return !lastPage
		})
	if err != nil {
		return nil, fmt.Errorf("list s3://%s/%s: %w", s.bucket, dirPrefix, err)
	}
	return Sorted(names), nil
}

// Open streams the named revision from S3.
func (s *S3Store) Open(ctx context.Context, acm, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	out, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(acm, name)),
	})
	if isS3NotFound(err) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, acm, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.key(acm, name), err)
	}
	return out.Body, nil
}

// Put uploads a new revision. The body is spooled to a temp file first
// because PutObject needs a seekable body.
func (s *S3Store) Put(ctx context.Context, acm, name string, r io.Reader) error {
	if err := checkName(name); err != nil {
		return err
	}
	key := s.key(acm, name)
	_, err := s.svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return fmt.Errorf("%w: %s/%s", ErrExists, acm, name)
	}
	if !isS3NotFound(err) {
		return fmt.Errorf("head s3://%s/%s: %w", s.bucket, key, err)
	}

	spool, err := os.CreateTemp("", "acm-upload-*.zip")
	if err != nil {
		return fmt.Errorf("create upload spool: %w", err)
	}
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()
	if _, err := io.Copy(spool, r); err != nil {
		return fmt.Errorf("spool upload: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind upload spool: %w", err)
	}

	_, err = s.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        spool,
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Delete removes a revision. S3 does not report missing keys on delete.
func (s *S3Store) Delete(ctx context.Context, acm, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(acm, name)),
	})
	if err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", s.bucket, s.key(acm, name), err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.Code() {
	case s3.ErrCodeNoSuchKey, "NotFound":
		return true
	}
	return false
}
