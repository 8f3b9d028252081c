package health

import (
	"encoding/json"
	"net/http"
)

// Report is the body served by Handler.
type Report struct {
	Status   Status `json:"status"`
	Services []Info `json:"services"`
}

// Handler reports every monitor as JSON. It answers 503 when any monitor is unhealthy.
func Handler(monitors ...*Monitor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		report := Report{Status: StatusHealthy, Services: make([]Info, 0, len(monitors))}
		for _, m := range monitors {
			info := m.GetHealthInfo()
			if info.Status == StatusUnhealthy {
				report.Status = StatusUnhealthy
			}
			report.Services = append(report.Services, info)
		}

		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(report)
	})
}
