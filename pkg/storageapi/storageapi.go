// Package storageapi is a typed client for the administrative endpoints
// of the backend storage service. Every call goes through the gateway, so
// credentials come from the session carried by the context.
package storageapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sgaunet/hcconsole/pkg/dto"
	"github.com/sgaunet/hcconsole/pkg/gateway"
)

// Client calls the backend storage API.
type Client struct {
	gw *gateway.Client
}

// New returns a Client issuing requests through gw.
func New(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

func escape(id string) string {
	return url.PathEscape(id)
}

// ListApps returns every registered app.
func (c *Client) ListApps(ctx context.Context) ([]dto.App, error) {
	var apps []dto.App
	if err := c.gw.Do(ctx, http.MethodGet, "/admin/apps", nil, &apps); err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}
	return apps, nil
}

// CreateApp registers a new app; the backend generates its credential pair.
func (c *Client) CreateApp(ctx context.Context, req dto.AppRequest) (dto.App, error) {
	var app dto.App
	if err := c.gw.Do(ctx, http.MethodPost, "/admin/apps", req, &app); err != nil {
		return app, fmt.Errorf("failed to create app: %w", err)
	}
	return app, nil
}

// UpdateApp replaces the mutable fields of app id.
func (c *Client) UpdateApp(ctx context.Context, id string, req dto.AppRequest) (dto.App, error) {
	var app dto.App
	if err := c.gw.Do(ctx, http.MethodPut, "/admin/apps/"+escape(id), req, &app); err != nil {
		return app, fmt.Errorf("failed to update app %s: %w", id, err)
	}
	return app, nil
}

// DeleteApp removes app id.
func (c *Client) DeleteApp(ctx context.Context, id string) error {
	if err := c.gw.Do(ctx, http.MethodDelete, "/admin/apps/"+escape(id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete app %s: %w", id, err)
	}
	return nil
}

// ListAllBuckets returns every bucket with its owning app.
func (c *Client) ListAllBuckets(ctx context.Context) ([]dto.Bucket, error) {
	var buckets []dto.Bucket
	if err := c.gw.Do(ctx, http.MethodGet, "/admin/buckets", nil, &buckets); err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	return buckets, nil
}

// GetBucket returns bucket id including the owning app's credential pair.
func (c *Client) GetBucket(ctx context.Context, id string) (dto.Bucket, error) {
	var bucket dto.Bucket
	if err := c.gw.Do(ctx, http.MethodGet, "/admin/buckets/"+escape(id), nil, &bucket); err != nil {
		return bucket, fmt.Errorf("failed to get bucket %s: %w", id, err)
	}
	return bucket, nil
}

// ListAppBuckets returns the buckets bound to app appID.
func (c *Client) ListAppBuckets(ctx context.Context, appID string) ([]dto.Bucket, error) {
	var buckets []dto.Bucket
	if err := c.gw.Do(ctx, http.MethodGet, "/admin/buckets/app/"+escape(appID), nil, &buckets); err != nil {
		return nil, fmt.Errorf("failed to list buckets of app %s: %w", appID, err)
	}
	return buckets, nil
}

// RegisterBucket binds a new bucket to an app.
func (c *Client) RegisterBucket(ctx context.Context, req dto.RegisterBucketRequest) (dto.Bucket, error) {
	var bucket dto.Bucket
	if err := c.gw.Do(ctx, http.MethodPost, "/admin/buckets", req, &bucket); err != nil {
		return bucket, fmt.Errorf("failed to register bucket: %w", err)
	}
	return bucket, nil
}

// ListBucketFiles returns the files of bucket id. The backend authorises
// this with the bucket owner's service credentials.
func (c *Client) ListBucketFiles(ctx context.Context, id string) ([]dto.File, error) {
	var files []dto.File
	if err := c.gw.Do(ctx, http.MethodGet, "/admin/buckets/"+escape(id)+"/files", nil, &files); err != nil {
		return nil, fmt.Errorf("failed to list files of bucket %s: %w", id, err)
	}
	return files, nil
}

// FileContent is the binary content of a file. Body must be closed.
type FileContent struct {
	ContentType   string
	ContentLength int64
	Body          io.ReadCloser
}

// GetFileContent fetches the raw content of file fileID.
func (c *Client) GetFileContent(ctx context.Context, fileID string) (*FileContent, error) {
	resp, err := c.gw.Stream(ctx, "/files/view/"+escape(fileID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch file %s: %w", fileID, err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &FileContent{
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}, nil
}

// ListRules returns every replication rule.
func (c *Client) ListRules(ctx context.Context) ([]dto.ReplicationRule, error) {
	var rules []dto.ReplicationRule
	if err := c.gw.Do(ctx, http.MethodGet, "/admin/replication", nil, &rules); err != nil {
		return nil, fmt.Errorf("failed to list replication rules: %w", err)
	}
	return rules, nil
}

// CreateRule creates a replication rule.
func (c *Client) CreateRule(ctx context.Context, req dto.ReplicationRuleRequest) (dto.ReplicationRule, error) {
	var rule dto.ReplicationRule
	if err := c.gw.Do(ctx, http.MethodPost, "/admin/replication", req, &rule); err != nil {
		return rule, fmt.Errorf("failed to create replication rule: %w", err)
	}
	return rule, nil
}

// DeleteRule removes replication rule id.
func (c *Client) DeleteRule(ctx context.Context, id string) error {
	if err := c.gw.Do(ctx, http.MethodDelete, "/admin/replication/"+escape(id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete replication rule %s: %w", id, err)
	}
	return nil
}

// ToggleRule pauses an active rule or enables a paused one.
func (c *Client) ToggleRule(ctx context.Context, id string) error {
	if err := c.gw.Do(ctx, http.MethodPatch, "/admin/replication/"+escape(id)+"/toggle", nil, nil); err != nil {
		return fmt.Errorf("failed to toggle replication rule %s: %w", id, err)
	}
	return nil
}
