// Package s3svc_test tests the s3svc package functionality
package s3svc_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgaunet/hcconsole/pkg/config"
	"github.com/sgaunet/hcconsole/pkg/s3svc"
)

// fakeS3 answers HeadBucket for path-style requests on known buckets.
func fakeS3(t *testing.T, buckets ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "AWS4-HMAC-SHA256") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		name := strings.Trim(r.URL.Path, "/")
		for _, b := range buckets {
			if b == name {
				w.WriteHeader(http.StatusOK)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestBucketFromPath(t *testing.T) {
	tests := map[string]string{
		"media":               "media",
		"/media/":             "media",
		"media/2024/invoices": "media",
		"":                    "",
		"/":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, s3svc.BucketFromPath(in), in)
	}
}

func TestCheckBucket(t *testing.T) {
	srv, hits := fakeS3(t, "media")
	svc := s3svc.NewS3Svc(config.S3Config{Endpoint: srv.URL, Region: "us-east-1"})

	t.Run("reachable", func(t *testing.T) {
		err := svc.CheckBucket(context.Background(), s3svc.Probe{
			Path:      "media/uploads",
			AccessKey: "AKIDEXAMPLE",
			SecretKey: "secret",
		})
		require.NoError(t, err)
	})

	t.Run("missing bucket", func(t *testing.T) {
		before := hits.Load()
		err := svc.CheckBucket(context.Background(), s3svc.Probe{
			Path:      "archive",
			AccessKey: "AKIDEXAMPLE",
			SecretKey: "secret",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, s3svc.ErrBucketUnreachable)
		assert.Equal(t, before+1, hits.Load(), "probe is not retried")
	})

	t.Run("empty path", func(t *testing.T) {
		err := svc.CheckBucket(context.Background(), s3svc.Probe{Path: "/"})
		assert.ErrorIs(t, err, s3svc.ErrMissingBucket)
	})
}

func TestGetAwsConfig_Region(t *testing.T) {
	svc := s3svc.NewS3Svc(config.S3Config{Region: "eu-west-3"})

	cfg, err := svc.GetAwsConfig(context.Background(), s3svc.Probe{AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-3", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", creds.AccessKeyID)

	cfg, err = svc.GetAwsConfig(context.Background(), s3svc.Probe{Region: "us-west-2", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", cfg.Region)
}
