package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/sgaunet/hcconsole/pkg/dto"
	"github.com/sgaunet/hcconsole/pkg/gateway"
	"github.com/sgaunet/hcconsole/pkg/s3svc"
	"github.com/sgaunet/hcconsole/pkg/session"
	"github.com/sgaunet/hcconsole/pkg/slogx"
	"github.com/sgaunet/hcconsole/pkg/views"
)

var (
	// ErrMissingCredentials is returned when a bucket's owning app carries no credential pair.
	ErrMissingCredentials = errors.New("bucket owner has no service credentials")
	// ErrFileNotFound is returned when a file is not listed in its bucket.
	ErrFileNotFound = errors.New("file not found in bucket")
	// ErrFileCiphered is returned when a ciphered file is requested for preview.
	ErrFileCiphered = errors.New("ciphered files cannot be previewed")
)

// BucketListingHandler lists every bucket with the registration form, or
// only the buckets of the app named by the app parameter.
func (s *App) BucketListingHandler(w http.ResponseWriter, r *http.Request) {
	s.renderBuckets(w, r, http.StatusOK, views.BucketsData{
		Page:      s.page(r),
		AppFilter: strings.TrimSpace(r.URL.Query().Get("app")),
	})
}

func (s *App) renderBuckets(w http.ResponseWriter, r *http.Request, status int, data views.BucketsData) {
	ctx := r.Context()
	var (
		buckets []dto.Bucket
		err     error
	)
	if data.AppFilter != "" {
		buckets, err = s.api.ListAppBuckets(ctx, data.AppFilter)
	} else {
		buckets, err = s.api.ListAllBuckets(ctx)
	}
	if err != nil {
		s.handleAPIError(w, r, err, "Failed to retrieve bucket list")
		return
	}
	apps, err := s.api.ListApps(ctx)
	if err != nil {
		s.handleAPIError(w, r, err, "Failed to retrieve applications")
		return
	}
	data.Buckets, data.Apps = buckets, apps
	s.render(w, r, status, s.views.Buckets(data))
}

func parseBucketForm(r *http.Request) (views.BucketForm, error) {
	if err := r.ParseForm(); err != nil {
		return views.BucketForm{}, fmt.Errorf("invalid form: %w", err)
	}
	return views.BucketForm{
		Name:         strings.TrimSpace(r.PostForm.Get("name")),
		AppID:        strings.TrimSpace(r.PostForm.Get("app_id")),
		ProviderType: strings.TrimSpace(r.PostForm.Get("provider_type")),
		Path:         strings.TrimSpace(r.PostForm.Get("path")),
		AccessKey:    strings.TrimSpace(r.PostForm.Get("access_key")),
		SecretKey:    r.PostForm.Get("secret_key"),
		Verify:       r.PostForm.Get("verify") != "",
		IsDefault:    r.PostForm.Get("is_default") != "",
		Cipher:       r.PostForm.Get("cipher") != "",
	}, nil
}

func validateBucketForm(f views.BucketForm) string {
	switch {
	case f.Name == "":
		return "A bucket name is required."
	case f.AppID == "":
		return "Select the application owning the bucket."
	case f.ProviderType != dto.ProviderLocal && f.ProviderType != dto.ProviderAWSS3:
		return "Unknown storage provider."
	case f.Path == "":
		return "A storage path is required."
	case f.ProviderType == dto.ProviderAWSS3 && f.Verify && (f.AccessKey == "" || f.SecretKey == ""):
		return "Access key and secret key are required to check the bucket."
	}
	return ""
}

// RegisterBucketHandler registers a bucket on the backend.
func (s *App) RegisterBucketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	form, err := parseBucketForm(r)
	if err != nil {
		s.views.HandlerError(w, r, http.StatusBadRequest, s.errorData(r, err.Error()))
		return
	}
	data := views.BucketsData{Page: s.page(r), Form: form}
	// the secret is never echoed back
	data.Form.SecretKey = ""

	if msg := validateBucketForm(form); msg != "" {
		data.FormError = msg
		s.renderBuckets(w, r, http.StatusBadRequest, data)
		return
	}

	if form.ProviderType == dto.ProviderAWSS3 && form.Verify {
		err := s.s3.CheckBucket(ctx, s3svc.Probe{
			Path:      form.Path,
			AccessKey: form.AccessKey,
			SecretKey: form.SecretKey,
		})
		if err != nil {
			log.Info("aws bucket check failed", slog.String("path", form.Path), slog.String("error", err.Error()))
			data.FormError = "AWS S3 check failed: " + err.Error()
			s.renderBuckets(w, r, http.StatusUnprocessableEntity, data)
			return
		}
	}

	cfg, err := dto.EncodeBucketConfig(form.ProviderType, form.Path)
	if err != nil {
		s.views.HandlerError(w, r, http.StatusInternalServerError, s.errorData(r, "Failed to encode bucket configuration."))
		return
	}

	bucket, err := s.api.RegisterBucket(ctx, dto.RegisterBucketRequest{
		Name:         form.Name,
		AppID:        form.AppID,
		ProviderType: form.ProviderType,
		Config:       cfg,
		IsDefault:    form.IsDefault,
		Cipher:       form.Cipher,
	})
	if err != nil {
		status := gateway.StatusCode(err)
		if status == 0 || status == http.StatusUnauthorized {
			s.handleAPIError(w, r, err, "Bucket registration failed")
			return
		}
		data.FormError = apiMessage(err, "Bucket registration failed")
		s.renderBuckets(w, r, status, data)
		return
	}

	log.Info("bucket registered", slog.String("bucket_id", bucket.ID), slog.String("app_id", form.AppID))
	redirectWithFlash(w, r, "/buckets", "bucket-registered")
}

// enterBucket loads bucketID and makes its owner's credential pair the
// active one. A pair belonging to another bucket is dropped before the
// bucket is loaded.
func (s *App) enterBucket(ctx context.Context, bucketID string) (dto.Bucket, error) {
	sess, err := session.FromContext(ctx)
	if err != nil {
		return dto.Bucket{}, err
	}
	creds, ok, err := sess.ServiceCredentials(ctx)
	if err != nil {
		return dto.Bucket{}, err
	}
	if ok && creds.BucketID != bucketID {
		if err := sess.ClearServiceCredentials(ctx); err != nil {
			return dto.Bucket{}, err
		}
	}

	bucket, err := s.api.GetBucket(ctx, bucketID)
	if err != nil {
		return bucket, err
	}
	if bucket.App == nil || bucket.App.APIKey == "" || bucket.App.APISecret == "" {
		return bucket, fmt.Errorf("%w: %s", ErrMissingCredentials, bucketID)
	}
	err = sess.SetServiceCredentials(ctx, session.Credentials{
		BucketID:  bucket.ID,
		APIKey:    bucket.App.APIKey,
		APISecret: bucket.App.APISecret,
	})
	return bucket, err
}

// BucketFilesHandler lists the files of a bucket, 50 per page. The file
// list is only requested once the bucket detail has set the credentials.
func (s *App) BucketFilesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketID := mux.Vars(r)["bucketID"]

	page, err := ParsePaginationParams(r)
	if err != nil {
		s.views.HandlerError(w, r, http.StatusBadRequest, s.errorData(r, err.Error()))
		return
	}

	bucket, err := s.enterBucket(ctx, bucketID)
	if err != nil {
		s.bucketError(w, r, err)
		return
	}

	files, err := s.api.ListBucketFiles(ctx, bucketID)
	if err != nil {
		s.handleAPIError(w, r, err, "Failed to list bucket files")
		return
	}

	info := dto.NewPaginationInfo(int64(len(files)), filesPerPage, page)
	if page != ValidatePageNumber(page, info.TotalPages) {
		http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
		return
	}
	pageFiles, info := dto.Paginate(files, filesPerPage, page)

	s.render(w, r, http.StatusOK, s.views.BucketFiles(views.BucketFilesData{
		Page:       s.page(r),
		Bucket:     bucket,
		Files:      pageFiles,
		Pagination: info,
	}))
}

func (s *App) bucketError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) || errors.Is(err, context.Canceled) {
		s.handleAPIError(w, r, err, "Failed to load bucket")
		return
	}
	slogx.FromContext(r.Context()).Error("failed to enter bucket", slog.String("error", err.Error()))
	status := http.StatusInternalServerError
	if errors.Is(err, ErrMissingCredentials) {
		status = http.StatusBadGateway
	}
	s.views.HandlerError(w, r, status, s.errorData(r, err.Error()))
}

// FilePreviewHandler streams a file's content with the bucket owner's credentials.
func (s *App) FilePreviewHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	vars := mux.Vars(r)
	bucketID, fileID := vars["bucketID"], vars["fileID"]

	sess, err := session.FromContext(ctx)
	if err != nil {
		s.bucketError(w, r, err)
		return
	}
	creds, ok, err := sess.ServiceCredentials(ctx)
	if err != nil {
		s.bucketError(w, r, err)
		return
	}
	if !ok || creds.BucketID != bucketID {
		if _, err := s.enterBucket(ctx, bucketID); err != nil {
			s.bucketError(w, r, err)
			return
		}
	}

	files, err := s.api.ListBucketFiles(ctx, bucketID)
	if err != nil {
		s.handleAPIError(w, r, err, "Failed to list bucket files")
		return
	}
	file, found := findFile(files, fileID)
	switch {
	case !found:
		s.views.HandlerError(w, r, http.StatusNotFound, s.errorData(r, ErrFileNotFound.Error()))
		return
	case !file.Previewable():
		s.views.HandlerError(w, r, http.StatusForbidden, s.errorData(r, ErrFileCiphered.Error()))
		return
	}

	content, err := s.api.GetFileContent(ctx, fileID)
	if err != nil {
		s.handleAPIError(w, r, err, "Failed to fetch file content")
		return
	}
	defer content.Body.Close() //nolint:errcheck

	contentType, disposition := previewType(file, content.ContentType)
	if disposition != "inline" && file.MediaType() != "" {
		log.Warn("upstream content type does not match file name",
			slog.String("file_id", fileID),
			slog.String("upstream_type", content.ContentType))
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": file.OriginalName}))
	w.Header().Set("Content-Security-Policy", "sandbox")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, no-store")
	if content.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(content.ContentLength, 10))
	}

	if _, err := io.Copy(w, content.Body); err != nil {
		log.Debug("file stream interrupted", slog.String("file_id", fileID), slog.String("error", err.Error()))
	}
}

// previewType picks the served content type from the file extension. The
// upstream type must agree with it, anything else is downloaded as opaque bytes.
func previewType(file dto.File, upstream string) (contentType, disposition string) {
	want := file.MediaType()
	if want == "" {
		return "application/octet-stream", "attachment"
	}
	got, _, err := mime.ParseMediaType(upstream)
	if err != nil || !strings.EqualFold(got, want) {
		return "application/octet-stream", "attachment"
	}
	return want, "inline"
}

func findFile(files []dto.File, id string) (dto.File, bool) {
	for _, f := range files {
		if f.ID == id {
			return f, true
		}
	}
	return dto.File{}, false
}
