package dto

// PaginationInfo holds pagination metadata for paginated results.
// Page numbers are 1-indexed; StartIndex and EndIndex are 0-indexed
// slice bounds (EndIndex exclusive).
type PaginationInfo struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
	PageSize    int   `json:"pageSize"`
	HasPrevious bool  `json:"hasPrevious"`
	HasNext     bool  `json:"hasNext"`
	StartIndex  int   `json:"startIndex"`
	EndIndex    int   `json:"endIndex"`
}

// NewPaginationInfo computes the pagination of totalItems split in pages of
// pageSize, clamping currentPage into range. Zero items still make one page.
func NewPaginationInfo(totalItems int64, pageSize, currentPage int) PaginationInfo {
	totalPages := 1
	if totalItems > 0 && pageSize > 0 {
		totalPages = int((totalItems + int64(pageSize) - 1) / int64(pageSize))
	}

	if currentPage < 1 {
		currentPage = 1
	}
	if currentPage > totalPages {
		currentPage = totalPages
	}

	startIndex := min((currentPage-1)*pageSize, int(totalItems))
	endIndex := min(startIndex+pageSize, int(totalItems))

	return PaginationInfo{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		TotalItems:  totalItems,
		PageSize:    pageSize,
		HasPrevious: currentPage > 1,
		HasNext:     currentPage < totalPages,
		StartIndex:  startIndex,
		EndIndex:    endIndex,
	}
}

// PreviousPage is the page before the current one (1 on the first page).
func (p PaginationInfo) PreviousPage() int {
	return max(p.CurrentPage-1, 1)
}

// NextPage is the page after the current one (the last page on the last page).
func (p PaginationInfo) NextPage() int {
	return min(p.CurrentPage+1, p.TotalPages)
}

// Paginate returns the slice of items shown on page and its metadata.
// The backend returns file lists in one piece, so pages are cut locally.
func Paginate[T any](items []T, pageSize, page int) ([]T, PaginationInfo) {
	info := NewPaginationInfo(int64(len(items)), pageSize, page)
	return items[info.StartIndex:info.EndIndex], info
}
