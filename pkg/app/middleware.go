package app

import (
	"log/slog"
	"net/http"

	"github.com/sgaunet/hcconsole/pkg/session"
	"github.com/sgaunet/hcconsole/pkg/slogx"
)

// leaveBucketScope drops the service credential pair when the operator
// opens a page outside a bucket.
func (s *App) leaveBucketScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := session.FromContext(r.Context())
		if err == nil {
			err = sess.ClearServiceCredentials(r.Context())
		}
		if err != nil {
			slogx.FromContext(r.Context()).Error("failed to clear service credentials", slog.String("error", err.Error()))
			s.views.HandlerError(w, r, http.StatusInternalServerError, s.errorData(r, "The console session could not be updated."))
			return
		}
		next.ServeHTTP(w, r)
	})
}
