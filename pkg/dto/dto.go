// Package dto provides the data transfer objects exchanged with the storage backend
package dto

import (
	"encoding/json"
	"path"
	"strings"
	"time"
)

// Storage providers understood by the backend.
const (
	ProviderLocal = "LOCAL"
	ProviderAWSS3 = "AWS_S3"
)

// App is a client application registered on the platform, owning an API credential pair.
type App struct {
	ID        string   `json:"id"`
	AppName   string   `json:"app_name"`
	APIKey    string   `json:"api_key"`
	APISecret string   `json:"api_secret"`
	IsActive  bool     `json:"is_active"`
	Buckets   []Bucket `json:"buckets,omitempty"`
}

// TotalSize sums the size of every bucket linked to the app.
func (a App) TotalSize() int64 {
	var total int64
	for _, b := range a.Buckets {
		total += b.TotalSize
	}
	return total
}

// AppRequest is the payload to create or update an app.
type AppRequest struct {
	AppName  string `json:"app_name"`
	IsActive bool   `json:"is_active"`
}

// Bucket is a storage bucket bound to an app.
type Bucket struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AppID        string `json:"app_id"`
	ProviderType string `json:"provider_type"`
	Config       string `json:"config"`
	IsDefault    bool   `json:"is_default"`
	Cipher       bool   `json:"cipher"`
	TotalSize    int64  `json:"total_size"`
	App          *App   `json:"app,omitempty"`
}

// AppName returns the owning app name, if the backend embedded it.
func (b Bucket) AppName() string {
	if b.App == nil {
		return ""
	}
	return b.App.AppName
}

// RegisterBucketRequest is the payload to register a bucket.
type RegisterBucketRequest struct {
	Name         string `json:"name"`
	AppID        string `json:"app_id"`
	ProviderType string `json:"provider_type"`
	Config       string `json:"config"`
	IsDefault    bool   `json:"is_default"`
	Cipher       bool   `json:"cipher"`
}

type pathConfig struct {
	Path string `json:"path"`
}

type wrappedConfig struct {
	Config string `json:"config"`
}

// EncodeBucketConfig builds the provider config string for a storage path.
// AWS_S3 buckets carry the path config nested as a string under "config".
func EncodeBucketConfig(providerType, storagePath string) (string, error) {
	inner, err := json.Marshal(pathConfig{Path: storagePath})
	if err != nil {
		return "", err
	}
	if providerType != ProviderAWSS3 {
		return string(inner), nil
	}
	outer, err := json.Marshal(wrappedConfig{Config: string(inner)})
	if err != nil {
		return "", err
	}
	return string(outer), nil
}

// File is a stored file inside a bucket.
type File struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	FileSize     int64     `json:"fileSize"`
	CreatedAt    time.Time `json:"createdAt"`
	IsCiphered   bool      `json:"is_ciphered"`
}

// File kinds used to choose a preview.
const (
	KindImage = "image"
	KindPDF   = "pdf"
	KindOther = "other"
)

// Kind classifies the file by extension.
func (f File) Kind() string {
	switch strings.ToLower(path.Ext(f.OriginalName)) {
	case ".jpg", ".jpeg", ".png", ".gif":
		return KindImage
	case ".pdf":
		return KindPDF
	default:
		return KindOther
	}
}

// MediaType is the content type the console serves the file under inline.
// It returns an empty string for kinds that are only ever downloaded.
func (f File) MediaType() string {
	switch strings.ToLower(path.Ext(f.OriginalName)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	default:
		return ""
	}
}

// Previewable reports whether the console may show the content. Ciphered
// files are never fetched.
func (f File) Previewable() bool {
	return !f.IsCiphered
}

// ReplicationRule replicates objects from a source bucket into a target bucket of the same app.
type ReplicationRule struct {
	ID               string  `json:"id"`
	SourceBucketID   string  `json:"sourceBucketId"`
	TargetBucketID   string  `json:"targetBucketId"`
	AppID            string  `json:"appId"`
	Active           bool    `json:"active"`
	SourceBucket     *Bucket `json:"sourceBucket,omitempty"`
	TargetBucket     *Bucket `json:"targetBucket,omitempty"`
	ReplicationOnApp *App    `json:"replicationOnApp,omitempty"`
}

// ReplicationRuleRequest is the payload to create a rule.
type ReplicationRuleRequest struct {
	SourceBucketID string `json:"sourceBucketId"`
	TargetBucketID string `json:"targetBucketId"`
	AppID          string `json:"appId"`
}

// FindBucket returns the bucket with id from buckets.
func FindBucket(buckets []Bucket, id string) (Bucket, bool) {
	for _, b := range buckets {
		if b.ID == id {
			return b, true
		}
	}
	return Bucket{}, false
}

// ReplicationTargets lists the buckets a source may replicate into:
// same app, different bucket.
func ReplicationTargets(buckets []Bucket, sourceID string) []Bucket {
	source, ok := FindBucket(buckets, sourceID)
	if !ok {
		return nil
	}
	targets := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		if b.AppID == source.AppID && b.ID != source.ID {
			targets = append(targets, b)
		}
	}
	return targets
}
