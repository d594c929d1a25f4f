package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pacific-edu/pacemis-api/internal/authz"
	"github.com/pacific-edu/pacemis-api/internal/middleware"
	"github.com/pacific-edu/pacemis-api/internal/models"
)

func subjectFromContext(c *gin.Context) *authz.Subject {
	return middleware.Subject(c)
}

func affiliationFromContext(c *gin.Context) authz.SchoolSet {
	return middleware.Affiliation(c)
}

func pageParams(c *gin.Context) (int, int) {
	page := 1
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && v > 0 {
		page = v
	}
	size := 20
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && v > 0 && v <= 100 {
		size = v
	}
	return page, size
}

func paginationFor(page, size, total int) *models.Pagination {
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

func trimmedQuery(c *gin.Context, key string) string {
	return strings.TrimSpace(c.Query(key))
}
