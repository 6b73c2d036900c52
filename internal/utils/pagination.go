// internal/utils/pagination.go
package utils

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	defaultSort     = "created_at"
)

// PaginationParams is a page request. A zero Limit means no paging, which
// internal callers use for bounded lookups.
type PaginationParams struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Sort   string `json:"sort"`
	Order  string `json:"order"`
	Search string `json:"search"`
}

type PaginationResult struct {
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
	HasNext    bool        `json:"has_next"`
	Data       interface{} `json:"data"`
}

// GetPaginationParams reads page, limit, sort, order and search from the
// query string. "sort=-price" is shorthand for sort=price&order=desc and
// "q" is accepted in place of "search".
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageSize)))

	params := PaginationParams{
		Page:   page,
		Limit:  limit,
		Sort:   strings.TrimSpace(c.DefaultQuery("sort", defaultSort)),
		Order:  strings.ToLower(c.DefaultQuery("order", "desc")),
		Search: strings.TrimSpace(c.Query("search")),
	}
	if params.Search == "" {
		params.Search = strings.TrimSpace(c.Query("q"))
	}
	if strings.HasPrefix(params.Sort, "-") {
		params.Sort = strings.TrimPrefix(params.Sort, "-")
		params.Order = "desc"
	}

	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 || params.Limit > MaxPageSize {
		params.Limit = DefaultPageSize
	}
	if params.Order != "asc" && params.Order != "desc" {
		params.Order = "desc"
	}
	return params
}

func (p PaginationParams) Descending() bool {
	return p.Order != "asc"
}

func (p PaginationParams) Offset() int {
	if p.Page < 1 || p.Limit <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Bounds returns the slice window of this page over total rows.
func (p PaginationParams) Bounds(total int) (int, int) {
	if p.Limit <= 0 {
		return 0, total
	}
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return start, end
}

// SortField returns Sort when it is one of allowed, created_at otherwise.
func (p PaginationParams) SortField(allowed ...string) string {
	for _, field := range allowed {
		if field == p.Sort {
			return field
		}
	}
	return defaultSort
}

// ApplyPagination orders by a whitelisted column and applies the page
// window. Sort never reaches SQL unless it is in allowed.
func ApplyPagination(db *gorm.DB, params PaginationParams, allowed ...string) *gorm.DB {
	db = db.Order(clause.OrderByColumn{
		Column: clause.Column{Name: params.SortField(allowed...)},
		Desc:   params.Descending(),
	})
	if params.Limit > 0 {
		db = db.Offset(params.Offset()).Limit(params.Limit)
	}
	return db
}

func CreatePaginationResult(data interface{}, total int64, params PaginationParams) PaginationResult {
	totalPages := 1
	if params.Limit > 0 && total > 0 {
		totalPages = int((total + int64(params.Limit) - 1) / int64(params.Limit))
	}

	return PaginationResult{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		Data:       data,
	}
}

func SetPaginationHeaders(c *gin.Context, result PaginationResult) {
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.Header("X-Total-Pages", strconv.Itoa(result.TotalPages))
}
