package raw

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/rs/zerolog"
)

type blobUploader interface {
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

type azureWriter struct {
	client    blobUploader
	container string
	now       func() time.Time
}

// NewAzureWriter writes snapshots to an Azure Blob Storage container.
func NewAzureWriter(accountURL, container string, cred azcore.TokenCredential) (Writer, error) {
	client, err := azblob.NewClient(accountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client for %s: %w", accountURL, err)
	}
	return &azureWriter{client: client, container: container, now: time.Now}, nil
}

func (w *azureWriter) WriteSnapshot(ctx context.Context, rc domain.RequestContext, connector string, records []map[string]any) (string, error) {
	at := w.now()
	env := buildEnvelope(rc, connector, records, at)
	data, err := encodeEnvelope(env)
	if err != nil {
		return "", err
	}

	blobName := snapshotPath(rc, connector, at)
	if _, err := w.client.UploadBuffer(ctx, w.container, blobName, data, nil); err != nil {
		return "", fmt.Errorf("failed to upload snapshot %s: %w", blobName, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("container", w.container).
		Str("blob", blobName).
		Str("connector", connector).
		Int("record_count", env.RecordCount).
		Msg("snapshot uploaded")
	return blobName, nil
}
