package raw

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/rs/zerolog"
)

type localWriter struct {
	root string
	now  func() time.Time
}

// NewLocalWriter writes snapshots under a root directory on the local
// filesystem. Intended for development and single-node deployments.
func NewLocalWriter(root string) Writer {
	return &localWriter{root: root, now: time.Now}
}

func (w *localWriter) WriteSnapshot(ctx context.Context, rc domain.RequestContext, connector string, records []map[string]any) (string, error) {
	at := w.now()
	env := buildEnvelope(rc, connector, records, at)
	data, err := encodeEnvelope(env)
	if err != nil {
		return "", err
	}

	rel := snapshotPath(rc, connector, at)
	full := filepath.Join(w.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot %s: %w", rel, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", full).
		Str("connector", connector).
		Int("record_count", env.RecordCount).
		Msg("snapshot written")
	return full, nil
}
