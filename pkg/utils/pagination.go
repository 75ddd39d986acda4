package utils

import (
	"math"
	"net/http"
	"strconv"
)

type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// GetPaginationDetails reads page and pageSize (or limit) from the query,
// falling back to defaults for missing or out-of-range values and capping
// pageSize at maxSize.
func GetPaginationDetails(r *http.Request, defaultSize, maxSize int) Pagination {
	q := r.URL.Query()

	sizeStr := q.Get("pageSize")
	if sizeStr == "" {
		sizeStr = q.Get("limit")
	}
	size := defaultSize
	if val, err := strconv.Atoi(sizeStr); err == nil && val > 0 {
		size = val
	}
	if size > maxSize {
		size = maxSize
	}

	page := 1
	if val, err := strconv.Atoi(q.Get("page")); err == nil && val > 0 && val <= MaxPage(size) {
		page = val
	}

	return Pagination{Page: page, PageSize: size}
}

// MaxPage bounds page numbers so that Offset cannot overflow an int.
func MaxPage(pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return math.MaxInt / pageSize
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
