package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// SessionArchiver stores a finished session's report and executions in
// object storage and returns the key of the report object.
type SessionArchiver interface {
	ArchiveSession(ctx context.Context, rep SessionReport, execs []ExecutionRecord) (string, error)
}
