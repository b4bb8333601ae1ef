package store

import "math"

// PaginationParams contains parameters for paginated queries
type PaginationParams struct {
	Page     int // Current page number (1-indexed)
	PageSize int // Number of items per page
}

// PaginationResult contains pagination metadata
type PaginationResult struct {
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	PageSize    int   `json:"pageSize"`
	HasPrev     bool  `json:"hasPrev"`
	HasNext     bool  `json:"hasNext"`
}

// NewPaginationParams creates a new PaginationParams with default values
func NewPaginationParams(page, pageSize int) PaginationParams {
	// Default to page 1 if invalid
	if page < 1 {
		page = 1
	}

	// Default to 10 items per page, max 50
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 50 {
		pageSize = 50
	}

	return PaginationParams{
		Page:     page,
		PageSize: pageSize,
	}
}

// CalculatePagination calculates pagination metadata
func CalculatePagination(total int64, currentPage, pageSize int) PaginationResult {
	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))

	// Ensure current page is within bounds
	if currentPage < 1 {
		currentPage = 1
	}
	if currentPage > totalPages && totalPages > 0 {
		currentPage = totalPages
	}

	return PaginationResult{
		Total:       total,
		TotalPages:  totalPages,
		CurrentPage: currentPage,
		PageSize:    pageSize,
		HasPrev:     currentPage > 1,
		HasNext:     currentPage < totalPages,
	}
}
