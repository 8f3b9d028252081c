package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

const filesPerPage = 50

var (
	// ErrInvalidPageFormat is returned when the page parameter cannot be parsed as a number.
	ErrInvalidPageFormat = errors.New("invalid page parameter: must be a number")

	// ErrInvalidPageValue is returned when the page parameter is less than 1.
	ErrInvalidPageValue = errors.New("invalid page parameter: must be >= 1")
)

// ParsePaginationParams returns the 1-indexed page requested by the
// "page" query parameter. A missing or empty parameter means page 1.
func ParsePaginationParams(r *http.Request) (int, error) {
	pageStr := r.URL.Query().Get("page")
	if pageStr == "" {
		return 1, nil
	}

	page, err := strconv.Atoi(pageStr)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidPageFormat, err)
	}
	if page < 1 {
		return 0, ErrInvalidPageValue
	}
	return page, nil
}

// ValidatePageNumber returns page when it lies in [1, maxPages], 1 otherwise.
func ValidatePageNumber(page, maxPages int) int {
	if page < 1 || page > maxPages {
		return 1
	}
	return page
}
