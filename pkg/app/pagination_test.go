package app

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParsePaginationParams(t *testing.T) {
	tests := []struct {
		name     string
		queryURL string
		wantPage int
		wantErr  error
	}{
		{name: "Valid page 1", queryURL: "/?page=1", wantPage: 1},
		{name: "Valid page 5", queryURL: "/?page=5", wantPage: 5},
		{name: "Missing page parameter", queryURL: "/", wantPage: 1},
		{name: "Empty page parameter", queryURL: "/?page=", wantPage: 1},
		{name: "Other parameters ignored", queryURL: "/?sort=name&page=3", wantPage: 3},
		{name: "Page zero", queryURL: "/?page=0", wantErr: ErrInvalidPageValue},
		{name: "Negative page", queryURL: "/?page=-2", wantErr: ErrInvalidPageValue},
		{name: "Non numeric", queryURL: "/?page=abc", wantErr: ErrInvalidPageFormat},
		{name: "Float", queryURL: "/?page=1.5", wantErr: ErrInvalidPageFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.queryURL, nil)
			page, err := ParsePaginationParams(req)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParsePaginationParams() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePaginationParams() unexpected error: %v", err)
			}
			if page != tt.wantPage {
				t.Errorf("ParsePaginationParams() = %d, want %d", page, tt.wantPage)
			}
		})
	}
}

func TestValidatePageNumber(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		maxPages int
		want     int
	}{
		{"first page", 1, 10, 1},
		{"middle page", 5, 10, 5},
		{"last page", 10, 10, 10},
		{"beyond last page", 11, 10, 1},
		{"zero", 0, 10, 1},
		{"negative", -1, 10, 1},
		{"single page", 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidatePageNumber(tt.page, tt.maxPages); got != tt.want {
				t.Errorf("ValidatePageNumber(%d, %d) = %d, want %d", tt.page, tt.maxPages, got, tt.want)
			}
		})
	}
}
