// Package storage persists shipping label images and returns the URL they
// are served from.
package storage

import (
	"context"
	"fmt"
)

// LabelStore saves a label image under key and returns its public URL.
type LabelStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Backend names accepted by LABEL_STORE.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// LabelKey is the object key a label for trackingNumber is stored under.
func LabelKey(trackingNumber string) string {
	return fmt.Sprintf("labels/label_%s.gif", trackingNumber)
}
