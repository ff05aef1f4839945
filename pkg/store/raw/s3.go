package raw

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/rs/zerolog"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Writer struct {
	client objectPutter
	bucket string
	now    func() time.Time
}

// NewS3Writer writes snapshots to an S3 bucket.
func NewS3Writer(cfg aws.Config, bucket string) Writer {
	return &s3Writer{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		now:    time.Now,
	}
}

func (w *s3Writer) WriteSnapshot(ctx context.Context, rc domain.RequestContext, connector string, records []map[string]any) (string, error) {
	at := w.now()
	env := buildEnvelope(rc, connector, records, at)
	data, err := encodeEnvelope(env)
	if err != nil {
		return "", err
	}

	key := snapshotPath(rc, connector, at)
	_, err = w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot %s: %w", key, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("bucket", w.bucket).
		Str("key", key).
		Str("connector", connector).
		Int("record_count", env.RecordCount).
		Msg("snapshot uploaded")
	return key, nil
}
