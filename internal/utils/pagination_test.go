package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func paramsFor(query string) PaginationParams {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/products?"+query, nil)
	return GetPaginationParams(c)
}

func TestGetPaginationParams(t *testing.T) {
	p := paramsFor("")
	assert.Equal(t, PaginationParams{Page: 1, Limit: DefaultPageSize, Sort: "created_at", Order: "desc"}, p)

	p = paramsFor("page=0&limit=500&order=sideways")
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.Limit)
	assert.Equal(t, "desc", p.Order)

	p = paramsFor("sort=-price&order=asc&q=serum")
	assert.Equal(t, "price", p.Sort)
	assert.True(t, p.Descending())
	assert.Equal(t, "serum", p.Search)
}

func TestPaginationBounds(t *testing.T) {
	p := PaginationParams{Page: 2, Limit: 10}
	start, end := p.Bounds(25)
	assert.Equal(t, 10, start)
	assert.Equal(t, 20, end)

	start, end = PaginationParams{Page: 4, Limit: 10}.Bounds(25)
	assert.Equal(t, 25, start)
	assert.Equal(t, 25, end)

	start, end = PaginationParams{}.Bounds(7)
	assert.Equal(t, 0, start)
	assert.Equal(t, 7, end)
}

func TestSortFieldWhitelist(t *testing.T) {
	assert.Equal(t, "price", PaginationParams{Sort: "price"}.SortField("price", "name"))
	assert.Equal(t, "created_at", PaginationParams{Sort: "price; DROP TABLE"}.SortField("price"))
}

func TestCreatePaginationResult(t *testing.T) {
	result := CreatePaginationResult([]int{}, 45, PaginationParams{Page: 2, Limit: 20})
	assert.Equal(t, 3, result.TotalPages)
	assert.True(t, result.HasNext)

	result = CreatePaginationResult([]int{}, 0, PaginationParams{Page: 1, Limit: 20})
	assert.Equal(t, 1, result.TotalPages)
	assert.False(t, result.HasNext)
}
