package storage

import (
	"context"

	awspkg "github.com/yashrajoria/ups-shipping-service/pkg/aws"
)

// S3LabelStore uploads labels to a bucket.
type S3LabelStore struct {
	client   awspkg.ObjectPutter
	bucket   string
	endpoint string
}

// NewS3LabelStore returns a store for bucket. endpoint is the custom
// (LocalStack) endpoint, or empty for AWS.
func NewS3LabelStore(client awspkg.ObjectPutter, bucket, endpoint string) *S3LabelStore {
	return &S3LabelStore{client: client, bucket: bucket, endpoint: endpoint}
}

func (s *S3LabelStore) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := awspkg.PutObject(ctx, s.client, s.bucket, key, data, contentType); err != nil {
		return "", err
	}
	return awspkg.ObjectURL(s.endpoint, s.bucket, key), nil
}
