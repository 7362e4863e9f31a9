// Package export copies generated images to S3 and hands back a
// time-limited download link.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/fpang/gemini-stylist/internal/bundle"
	"github.com/fpang/gemini-stylist/internal/filehandler"
	"github.com/fpang/gemini-stylist/internal/metrics"
	"github.com/fpang/gemini-stylist/internal/stylist"
)

// DefaultURLExpiry is the lifetime of presigned download links.
const DefaultURLExpiry = 15 * time.Minute

// projectTag is the URL-encoded object tagging applied to every export.
const projectTag = "Project=gemini-stylist"

// ErrNotExportable is returned for results that have no output image.
var ErrNotExportable = errors.New("result has no image to export")

// ObjectPutter is the subset of *s3.Client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// URLPresigner is the subset of *s3.PresignClient used for links.
type URLPresigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Exported describes an uploaded result.
type Exported struct {
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Exporter uploads results to a single bucket.
type Exporter struct {
	client    ObjectPutter
	presigner URLPresigner
	bucket    string
	prefix    string
	expiry    time.Duration
	now       func() time.Time
}

// New loads the default AWS configuration and builds an Exporter for bucket.
func New(ctx context.Context, bucket, prefix string) (*Exporter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Str("bucket", bucket).Msg("AWS config loaded for export")
	client := s3.NewFromConfig(cfg)
	return NewWithClients(client, s3.NewPresignClient(client), bucket, prefix), nil
}

// NewWithClients builds an Exporter from explicit clients.
func NewWithClients(client ObjectPutter, presigner URLPresigner, bucket, prefix string) *Exporter {
	return &Exporter{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		prefix:    prefix,
		expiry:    DefaultURLExpiry,
		now:       time.Now,
	}
}

// Key returns the object key for a result:
// <prefix>/<yyyy-mm-dd>/<id>-<slug><ext>.
func (e *Exporter) Key(r stylist.GenerationResult) string {
	ext := filehandler.ExtensionFor(r.Output.MIMEType)
	name := fmt.Sprintf("%s/%s-%s%s", e.now().UTC().Format("2006-01-02"), r.ID, bundle.Slug(r.Label), ext)
	if e.prefix == "" {
		return name
	}
	return e.prefix + "/" + name
}

// Export uploads the result image and presigns a GET link to it.
func (e *Exporter) Export(ctx context.Context, r stylist.GenerationResult) (*Exported, error) {
	if r.State != stylist.StateSucceeded || r.Output == nil || len(r.Output.Data) == 0 {
		return nil, ErrNotExportable
	}

	start := time.Now()
	key := e.Key(r)
	contentType := r.Output.MIMEType
	if contentType == "" {
		contentType = "image/png"
	}

	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(r.Output.Data),
		ContentType: aws.String(contentType),
		Tagging:     aws.String(projectTag),
		Metadata: map[string]string{
			"label":     r.Label,
			"result-id": r.ID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("S3 PutObject: %w", err)
	}

	presigned, err := e.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = e.expiry
	})
	if err != nil {
		return nil, fmt.Errorf("presign GetObject: %w", err)
	}

	metrics.New(metrics.Namespace).
		Dimension("Operation", "export").
		Metric("ExportLatencyMs", float64(time.Since(start).Milliseconds()), metrics.UnitMilliseconds).
		Metric("ExportBytes", float64(len(r.Output.Data)), metrics.UnitBytes).
		Flush()

	log.Info().
		Str("id", r.ID).
		Str("bucket", e.bucket).
		Str("key", key).
		Int("bytes", len(r.Output.Data)).
		Msg("Result exported to S3")

	return &Exported{
		Bucket:    e.bucket,
		Key:       key,
		URL:       presigned.URL,
		ExpiresAt: e.now().Add(e.expiry),
	}, nil
}
