package model

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Bootstrap loads the registry described by the manifest at manifestPath. An
// empty path yields an empty registry, so every slot serves its default. A
// Cloud Storage client is opened only when the manifest references gs://
// artifacts; if it cannot be created those slots are left empty. The returned
// close function releases the client and is never nil.
func Bootstrap(ctx context.Context, manifestPath, gcsCredentials string, remoteTimeout time.Duration, logger *slog.Logger) (*Registry, func() error, error) {
	noop := func() error { return nil }
	if manifestPath == "" {
		logger.Warn("no model manifest configured, all slots use defaults")
		return NewRegistry(), noop, nil
	}

	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, noop, err
	}

	opener := SchemeOpener{Local: FileOpener{}}
	closeFn := noop
	if usesGCS(m) {
		gcs, err := NewGCSOpener(ctx, gcsCredentials)
		if err != nil {
			logger.Warn("object storage unavailable, gs:// slots stay empty", "error", err)
		} else {
			opener.GCS = gcs
			closeFn = gcs.Close
		}
	}

	reg, err := LoadRegistry(ctx, m, opener, remoteTimeout, logger)
	if err != nil {
		_ = closeFn()
		return nil, noop, err
	}
	return reg, closeFn, nil
}

func usesGCS(m Manifest) bool {
	for _, e := range m.Models {
		if strings.HasPrefix(e.Path, gcsScheme) {
			return true
		}
	}
	return false
}
