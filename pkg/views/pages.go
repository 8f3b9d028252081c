package views

import (
	"context"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/sgaunet/hcconsole/pkg/dto"
)

// Page carries the layout fields shared by every page.
type Page struct {
	Title    string
	Nav      string
	Operator string
	Flash    string
	Error    string
}

// ServiceStatus is one monitored dependency on the dashboard.
type ServiceStatus struct {
	Name      string
	Healthy   bool
	Message   string
	LastCheck time.Time
}

// DashboardData is the data used to render the dashboard.
type DashboardData struct {
	Page
	AppCount       int
	BucketCount    int
	TotalSize      int64
	StorageHealthy bool
	Services       []ServiceStatus
}

// BucketForm holds the values of the bucket registration form.
type BucketForm struct {
	Name         string
	AppID        string
	ProviderType string
	Path         string
	AccessKey    string
	SecretKey    string
	Verify       bool
	IsDefault    bool
	Cipher       bool
}

// BucketsData is the data used to render the bucket list.
type BucketsData struct {
	Page
	Buckets []dto.Bucket
	Apps    []dto.App
	// AppFilter restricts Buckets to one owning app when not empty.
	AppFilter string
	Form      BucketForm
	FormError string
}

// BucketFilesData is the data used to render a bucket's files.
type BucketFilesData struct {
	Page
	Bucket     dto.Bucket
	Files      []dto.File
	Pagination dto.PaginationInfo
}

// AppsData is the data used to render the application list.
type AppsData struct {
	Page
	Apps []dto.App
	// Created is the app created by the previous submission; its secret is shown once.
	Created *dto.App
	// Reveal is the ID of the app whose secret is shown in clear.
	Reveal    string
	FormError string
}

// ReplicationData is the data used to render replication rules.
type ReplicationData struct {
	Page
	Rules     []dto.ReplicationRule
	Buckets   []dto.Bucket
	SourceID  string
	Targets   []dto.Bucket
	FormError string
}

// ErrorData is the data used to render the error page.
type ErrorData struct {
	Page
	Status         int
	Message        string
	Reauthenticate bool
	LoginURL       string
}

// Dashboard renders the dashboard.
func (v *Views) Dashboard(data DashboardData) templ.Component {
	data.Title, data.Nav = "Dashboard", pageDashboard
	return v.page(pageDashboard, data)
}

// Buckets renders the bucket list and registration form.
func (v *Views) Buckets(data BucketsData) templ.Component {
	data.Title, data.Nav = "Buckets", pageBuckets
	if data.Form.ProviderType == "" {
		data.Form.ProviderType = dto.ProviderLocal
	}
	return v.page(pageBuckets, data)
}

// BucketFiles renders one page of a bucket's files.
func (v *Views) BucketFiles(data BucketFilesData) templ.Component {
	data.Title, data.Nav = data.Bucket.Name, pageBuckets
	return v.page(pageBucketFiles, data)
}

// Apps renders the application list.
func (v *Views) Apps(data AppsData) templ.Component {
	data.Title, data.Nav = "Applications", pageApps
	return v.page(pageApps, data)
}

// Replication renders the replication rules.
func (v *Views) Replication(data ReplicationData) templ.Component {
	data.Title, data.Nav = "Replication", pageReplication
	return v.page(pageReplication, data)
}

// Authenticating is the non-interactive placeholder shown while the
// browser is sent to the login page.
func (v *Views) Authenticating(loginURL string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return v.authenticating.ExecuteTemplate(w, "authenticating", struct{ LoginURL string }{loginURL})
	})
}
