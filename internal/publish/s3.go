package publish

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/specialistvlad/implgrid/internal/ctxlog"
	"github.com/specialistvlad/implgrid/internal/fragment"
	"github.com/specialistvlad/implgrid/internal/handoff"
	"github.com/specialistvlad/implgrid/internal/implreg"
)

// ObjectPutter is the subset of the S3 client the sink needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config describes the destination bucket.
type S3Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // optional, for S3-compatible stores
}

// S3Sink uploads fragments to an S3 bucket.
type S3Sink struct {
	client ObjectPutter
	bucket string
	prefix string
}

var _ handoff.Receiver = (*S3Sink)(nil)

// NewS3Sink returns a sink that writes through client.
func NewS3Sink(client ObjectPutter, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

// NewS3Client builds an S3 client for cfg. Credentials come from the SDK's
// default chain: environment variables, shared config and SSO profiles, then
// instance metadata.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Key returns the object key a registry's fragment is stored under.
func (s *S3Sink) Key(trait implreg.TraitRef) (string, error) {
	if !implreg.ValidFragmentPath(trait.Path) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, trait.Path)
	}
	key := path.Join(Prefix, path.Clean(trait.Path))
	if p := strings.Trim(s.prefix, "/"); p != "" {
		key = p + "/" + key
	}
	return key, nil
}

// Register renders reg and uploads it.
func (s *S3Sink) Register(ctx context.Context, reg *implreg.Registry) error {
	logger := ctxlog.FromContext(ctx).With("bucket", s.bucket)

	key, err := s.Key(reg.Trait())
	if err != nil {
		return err
	}
	body, err := fragment.Render(reg)
	if err != nil {
		return fmt.Errorf("failed to render fragment: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(fragment.ContentType),
		Metadata: map[string]string{
			"trait":     reg.Trait().Name,
			"libraries": fmt.Sprint(reg.Len()),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 upload of %s failed: %w", key, err)
	}

	logger.Info("Fragment uploaded.", "trait", reg.Trait().Name, "key", key, "bytes", len(body))
	return nil
}
