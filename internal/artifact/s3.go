package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// ObjectGetter is the subset of the S3 client used to fetch artifacts.
type ObjectGetter interface {
	GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
}

// NewS3Client creates an S3 client for region using the default credential
// chain.
func NewS3Client(region string) (*s3.S3, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("artifact: aws session: %w", err)
	}
	return s3.New(sess), nil
}

// FetchS3 downloads the artifact stored under bucket/prefix into dir. The
// manifest is written last, so an interrupted download never looks complete.
func FetchS3(ctx context.Context, client ObjectGetter, bucket, prefix, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	for _, name := range []string{WeightsFile, ManifestFile} {
		if err := fetchObject(ctx, client, bucket, path.Join(prefix, name), filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func fetchObject(ctx context.Context, client ObjectGetter, bucket, key, dst string) error {
	out, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return fmt.Errorf("artifact: %w: s3://%s/%s", ErrModelNotFound, bucket, key)
		}
		return fmt.Errorf("artifact: get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	tmp := dst + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("artifact: download %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("artifact: %w", err)
	}
	return os.Rename(tmp, dst)
}
