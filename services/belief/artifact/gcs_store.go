// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSOptions configures a GCSStore.
type GCSOptions struct {
	// Bucket is the bucket name. Required.
	Bucket string

	// Prefix is prepended to object names.
	Prefix string

	// CredentialsFile is a service account key. Empty uses application
	// default credentials.
	CredentialsFile string
}

// GCSStore keeps artifacts in a Cloud Storage bucket:
//
//	gs://<bucket>/<prefix>/<name>/graph.blfg
//	gs://<bucket>/<prefix>/<name>/manifest.json
//
// The blob is uploaded first and the manifest last. The manifest pins the
// blob's object generation, so a reader racing a publish still gets the
// blob its manifest describes.
//
// Thread Safety:
//
//	Safe for concurrent use.
type GCSStore struct {
	client *storage.Client
	opts   GCSOptions
	logger *slog.Logger
}

// Compile-time interface verification.
var _ Store = (*GCSStore)(nil)

// NewGCSStore creates a Cloud Storage client and store.
func NewGCSStore(ctx context.Context, opts GCSOptions, logger *slog.Logger) (*GCSStore, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket must not be empty")
	}
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, &StorageError{Op: "gcs_client", Err: err}
	}
	return NewGCSStoreWithClient(client, opts, logger), nil
}

// NewGCSStoreWithClient wraps an existing client. Close closes it.
func NewGCSStoreWithClient(client *storage.Client, opts GCSOptions, logger *slog.Logger) *GCSStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &GCSStore{client: client, opts: opts, logger: logger}
}

// objectName returns the object name of file inside artifact name.
func (s *GCSStore) objectName(name, file string) string {
	return path.Join(s.opts.Prefix, name, file)
}

// Save uploads blob, then the manifest.
func (s *GCSStore) Save(ctx context.Context, name string, blob []byte, m *Manifest) error {
	if err := validateName(name); err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("manifest must not be nil")
	}
	bucket := s.client.Bucket(s.opts.Bucket)

	blobObj := s.objectName(name, BlobFileName)
	attrs, err := s.upload(ctx, bucket.Object(blobObj), blob, "application/octet-stream")
	if err != nil {
		return &StorageError{Op: "gcs_upload_blob", Err: err}
	}

	pinned := *m
	pinned.Generation = attrs.Generation
	data, err := marshalManifest(&pinned)
	if err != nil {
		return err
	}
	if _, err := s.upload(ctx, bucket.Object(s.objectName(name, ManifestFileName)), data, "application/json"); err != nil {
		return &StorageError{Op: "gcs_upload_manifest", Err: err}
	}

	s.logger.Info("artifact uploaded",
		slog.String("object", fmt.Sprintf("gs://%s/%s", s.opts.Bucket, blobObj)),
		slog.Int64("generation", attrs.Generation),
		slog.Int64("size_bytes", m.SizeBytes),
	)
	return nil
}

func (s *GCSStore) upload(ctx context.Context, obj *storage.ObjectHandle, data []byte, contentType string) (*storage.ObjectAttrs, error) {
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "no-cache, no-store, must-revalidate"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return w.Attrs(), nil
}

// Load downloads the manifest and the blob generation it pins.
func (s *GCSStore) Load(ctx context.Context, name string) ([]byte, *Manifest, error) {
	if err := validateName(name); err != nil {
		return nil, nil, err
	}
	bucket := s.client.Bucket(s.opts.Bucket)

	data, err := s.download(ctx, bucket.Object(s.objectName(name, ManifestFileName)))
	if err != nil {
		return nil, nil, err
	}
	m, err := unmarshalManifest(data)
	if err != nil {
		return nil, nil, err
	}

	obj := bucket.Object(s.objectName(name, BlobFileName))
	if m.Generation != 0 {
		obj = obj.Generation(m.Generation)
	}
	blob, err := s.download(ctx, obj)
	if errors.Is(err, ErrArtifactNotFound) {
		return nil, nil, fmt.Errorf("%w: blob generation %d missing", ErrArtifactCorrupted, m.Generation)
	}
	if err != nil {
		return nil, nil, err
	}
	return blob, m, nil
}

func (s *GCSStore) download(ctx context.Context, obj *storage.ObjectHandle) ([]byte, error) {
	r, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: gs://%s/%s", ErrArtifactNotFound, s.opts.Bucket, obj.ObjectName())
	}
	if err != nil {
		return nil, &StorageError{Op: "gcs_read", Err: err}
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &StorageError{Op: "gcs_read", Err: err}
	}
	return data, nil
}

// Close closes the client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
