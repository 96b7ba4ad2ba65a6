// Package gcs uploads rendered run summaries to Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/sitecat/internal/report"
	"github.com/JakeFAU/sitecat/internal/telemetry"
)

// Config captures the upload destination.
type Config struct {
	Bucket string
	Prefix string
}

// ObjectWriter opens a writer for bucket/object.
type ObjectWriter interface {
	NewWriter(ctx context.Context, bucket, object string) io.WriteCloser
}

type clientWriter struct {
	client *storage.Client
}

func (c clientWriter) NewWriter(ctx context.Context, bucket, object string) io.WriteCloser {
	w := c.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"
	return w
}

// Sink writes each summary to gs://bucket/prefix/<run-id>.txt.
type Sink struct {
	objects ObjectWriter
	bucket  string
	prefix  string
	last    string
}

// New creates a GCS-backed summary sink.
func New(client *storage.Client, cfg Config) (*Sink, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	return NewWithWriter(clientWriter{client: client}, cfg)
}

// NewWithWriter creates a sink over an arbitrary ObjectWriter.
func NewWithWriter(w ObjectWriter, cfg Config) (*Sink, error) {
	if w == nil {
		return nil, fmt.Errorf("object writer is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Sink{
		objects: w,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// ObjectName returns the object path used for runID.
func (s *Sink) ObjectName(runID string) string {
	if runID == "" {
		runID = "unknown"
	}
	return path.Join(s.prefix, runID+".txt")
}

// Report renders sum and uploads it.
func (s *Sink) Report(ctx context.Context, sum telemetry.Summary) error {
	var buf bytes.Buffer
	if err := report.Render(&buf, sum); err != nil {
		return err
	}
	object := s.ObjectName(sum.RunID)
	writer := s.objects.NewWriter(ctx, s.bucket, object)
	if _, err := io.Copy(writer, &buf); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("copy summary: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("copy summary: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	s.last = fmt.Sprintf("gs://%s/%s", s.bucket, object)
	return nil
}

// LastURI returns the gs:// URI of the most recent upload.
func (s *Sink) LastURI() string { return s.last }
