package app

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/sgaunet/hcconsole/pkg/dto"
	"github.com/sgaunet/hcconsole/pkg/gateway"
	"github.com/sgaunet/hcconsole/pkg/slogx"
	"github.com/sgaunet/hcconsole/pkg/views"
)

var (
	// ErrUnknownSource is returned when the source bucket of a rule does not exist.
	ErrUnknownSource = errors.New("unknown source bucket")
	// ErrInvalidTarget is returned when a target is not another bucket of the source's app.
	ErrInvalidTarget = errors.New("target bucket must be another bucket of the same application")
)

// ReplicationHandler lists replication rules. The source query parameter
// preselects a source bucket and narrows the target list.
func (s *App) ReplicationHandler(w http.ResponseWriter, r *http.Request) {
	s.renderReplication(w, r, http.StatusOK, views.ReplicationData{
		Page:     s.page(r),
		SourceID: r.URL.Query().Get("source"),
	})
}

func (s *App) renderReplication(w http.ResponseWriter, r *http.Request, status int, data views.ReplicationData) {
	ctx := r.Context()
	rules, err := s.api.ListRules(ctx)
	if err != nil {
		s.handleAPIError(w, r, err, "Failed to retrieve replication rules")
		return
	}
	buckets, err := s.api.ListAllBuckets(ctx)
	if err != nil {
		s.handleAPIError(w, r, err, "Failed to retrieve bucket list")
		return
	}
	data.Rules, data.Buckets = rules, buckets
	if data.SourceID != "" {
		data.Targets = dto.ReplicationTargets(buckets, data.SourceID)
	}
	s.render(w, r, status, s.views.Replication(data))
}

// ruleRequest resolves the app of the source bucket and checks the target.
func ruleRequest(buckets []dto.Bucket, sourceID, targetID string) (dto.ReplicationRuleRequest, error) {
	source, ok := dto.FindBucket(buckets, sourceID)
	if !ok {
		return dto.ReplicationRuleRequest{}, ErrUnknownSource
	}
	if _, ok := dto.FindBucket(dto.ReplicationTargets(buckets, sourceID), targetID); !ok {
		return dto.ReplicationRuleRequest{}, ErrInvalidTarget
	}
	return dto.ReplicationRuleRequest{
		SourceBucketID: source.ID,
		TargetBucketID: targetID,
		AppID:          source.AppID,
	}, nil
}

// CreateRuleHandler creates a replication rule between two buckets of one app.
func (s *App) CreateRuleHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		s.views.HandlerError(w, r, http.StatusBadRequest, s.errorData(r, "Invalid form."))
		return
	}
	sourceID := strings.TrimSpace(r.PostForm.Get("source_bucket_id"))
	targetID := strings.TrimSpace(r.PostForm.Get("target_bucket_id"))
	data := views.ReplicationData{Page: s.page(r), SourceID: sourceID}

	if sourceID == "" || targetID == "" {
		data.FormError = "Select a source and a target bucket."
		s.renderReplication(w, r, http.StatusBadRequest, data)
		return
	}

	buckets, err := s.api.ListAllBuckets(ctx)
	if err != nil {
		s.handleAPIError(w, r, err, "Failed to retrieve bucket list")
		return
	}
	req, err := ruleRequest(buckets, sourceID, targetID)
	if err != nil {
		data.FormError = err.Error()
		s.renderReplication(w, r, http.StatusBadRequest, data)
		return
	}

	rule, err := s.api.CreateRule(ctx, req)
	if err != nil {
		status := gateway.StatusCode(err)
		if status == 0 || status == http.StatusUnauthorized || status >= http.StatusInternalServerError {
			s.handleAPIError(w, r, err, "Failed to create replication rule")
			return
		}
		data.FormError = apiMessage(err, "Failed to create replication rule")
		s.renderReplication(w, r, status, data)
		return
	}
	slogx.FromContext(ctx).Info("replication rule created",
		slog.String("rule_id", rule.ID),
		slog.String("source", req.SourceBucketID),
		slog.String("target", req.TargetBucketID))
	redirectWithFlash(w, r, "/replication", "rule-created")
}

// ToggleRuleHandler pauses or resumes a rule.
func (s *App) ToggleRuleHandler(w http.ResponseWriter, r *http.Request) {
	ruleID := mux.Vars(r)["ruleID"]
	if err := s.api.ToggleRule(r.Context(), ruleID); err != nil {
		s.handleAPIError(w, r, err, "Failed to update replication rule")
		return
	}
	redirectWithFlash(w, r, "/replication", "rule-toggled")
}

// DeleteRuleHandler deletes a rule.
func (s *App) DeleteRuleHandler(w http.ResponseWriter, r *http.Request) {
	ruleID := mux.Vars(r)["ruleID"]
	if err := s.api.DeleteRule(r.Context(), ruleID); err != nil {
		s.handleAPIError(w, r, err, "Failed to delete replication rule")
		return
	}
	slogx.FromContext(r.Context()).Info("replication rule deleted", slog.String("rule_id", ruleID))
	redirectWithFlash(w, r, "/replication", "rule-deleted")
}
