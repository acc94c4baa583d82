package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsScheme = "gs://"

// Opener reads a model artifact by location.
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// FileOpener reads artifacts from the local filesystem.
type FileOpener struct{}

// Open implements Opener.
func (FileOpener) Open(_ context.Context, location string) (io.ReadCloser, error) {
	f, err := os.Open(location)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, location)
	}
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", location, err)
	}
	return f, nil
}

// GCSOpener reads gs://bucket/object artifacts from Cloud Storage.
type GCSOpener struct {
	client *storage.Client
}

// NewGCSOpener creates a Cloud Storage client. An empty credentialsFile uses
// application default credentials.
func NewGCSOpener(ctx context.Context, credentialsFile string) (*GCSOpener, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err != nil {
			return nil, fmt.Errorf("service account key %s: %w", credentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS storage client: %w", err)
	}
	return &GCSOpener{client: client}, nil
}

// Open implements Opener.
func (o *GCSOpener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, object, err := parseGCSLocation(location)
	if err != nil {
		return nil, err
	}
	r, err := o.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, location)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return r, nil
}

// Close releases the storage client.
func (o *GCSOpener) Close() error {
	return o.client.Close()
}

func parseGCSLocation(location string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(location, gcsScheme)
	if !ok {
		return "", "", fmt.Errorf("not a %s location: %s", gcsScheme, location)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("malformed object location: %s", location)
	}
	return bucket, object, nil
}

// SchemeOpener routes gs:// locations to GCS and everything else to Local.
// A nil GCS opener makes gs:// artifacts unavailable.
type SchemeOpener struct {
	Local Opener
	GCS   Opener
}

// Open implements Opener.
func (o SchemeOpener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if strings.HasPrefix(location, gcsScheme) {
		if o.GCS == nil {
			return nil, fmt.Errorf("%w: no object storage configured for %s", ErrArtifactNotFound, location)
		}
		return o.GCS.Open(ctx, location)
	}
	local := o.Local
	if local == nil {
		local = FileOpener{}
	}
	return local.Open(ctx, location)
}
