package views

import (
	"html/template"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

func funcMap() template.FuncMap {
	return template.FuncMap{
		"bytes":      formatBytes,
		"comma":      func(n int) string { return humanize.Comma(int64(n)) },
		"ago":        formatRelativeTime,
		"datetime":   formatDateTime,
		"kind":       fileTypeLabel,
		"mask":       maskSecret,
		"statusText": http.StatusText,
	}
}

// formatBytes renders a size in IEC units; negative sizes render as 0 B.
func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// formatDateTime formats a time.Time to a readable date and time string.
func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("Jan 2, 2006 15:04")
}

// fileTypeLabel returns the upper-cased extension of name, or "File".
func fileTypeLabel(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ext == "" {
		return "File"
	}
	return strings.ToUpper(ext)
}

const maskVisible = 6

// maskSecret keeps the first characters of a credential.
func maskSecret(s string) string {
	if len(s) <= maskVisible {
		return strings.Repeat("•", len(s))
	}
	return s[:maskVisible] + "…"
}
