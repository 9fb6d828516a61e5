package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetrack/api/internal/config"
)

func TestNewObjectStoreParsesEndpoint(t *testing.T) {
	store, err := NewObjectStore(config.StorageConfig{
		Endpoint:      "https://s3.example.test",
		AccessKey:     "key",
		SecretKey:     "secret",
		BucketReports: "reports",
		Region:        "us-east-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "s3.example.test", store.client.EndpointURL().Host)
	assert.Equal(t, "https", store.client.EndpointURL().Scheme)
}

func TestPresignTTL(t *testing.T) {
	tests := []struct {
		configured time.Duration
		want       time.Duration
	}{
		{0, 15 * time.Minute},
		{time.Hour, time.Hour},
		{30 * 24 * time.Hour, 7 * 24 * time.Hour},
	}
	for _, tt := range tests {
		s := &ObjectStore{cfg: config.StorageConfig{PresignTTL: tt.configured}}
		assert.Equal(t, tt.want, s.presignTTL())
	}
}
