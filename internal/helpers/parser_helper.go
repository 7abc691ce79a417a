package helpers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

// ParseUUIDParam reads a path parameter as a UUID. On failure it writes a
// 400 response and returns false.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s.", name))
		return uuid.Nil, false
	}
	return id, true
}

type Page struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePage reads the page and limit query parameters.
func ParsePage(c *gin.Context) (Page, error) {
	page, err := StringToInt(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return Page{}, fmt.Errorf("invalid page number")
	}
	limit, err := StringToInt(c.DefaultQuery("limit", strconv.Itoa(DefaultPageLimit)))
	if err != nil || limit < 1 || limit > MaxPageLimit {
		return Page{}, fmt.Errorf("limit must be between 1 and %d", MaxPageLimit)
	}
	return Page{Page: page, Limit: limit, Offset: (page - 1) * limit}, nil
}

func TotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

// ParseTime accepts RFC3339 timestamps.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
