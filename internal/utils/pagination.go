package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskdeck/taskdeck-api/internal/constants"
)

// PaginationParams is the page window requested by the client.
type PaginationParams struct {
	Page  int
	Limit int
}

// GetPaginationParams reads page/limit from the query string, clamping both
// to the configured bounds.
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(constants.MinPageSize)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultPageSize)))

	if page < constants.MinPageSize {
		page = constants.MinPageSize
	}
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}

	return PaginationParams{
		Page:  page,
		Limit: limit,
	}
}
