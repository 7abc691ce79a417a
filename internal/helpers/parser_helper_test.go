package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextWithQuery(query string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/events?"+query, nil)
	return c
}

func TestParsePage(t *testing.T) {
	page, err := ParsePage(contextWithQuery(""))
	require.NoError(t, err)
	assert.Equal(t, Page{Page: 1, Limit: DefaultPageLimit, Offset: 0}, page)

	page, err = ParsePage(contextWithQuery("page=3&limit=20"))
	require.NoError(t, err)
	assert.Equal(t, Page{Page: 3, Limit: 20, Offset: 40}, page)

	for _, query := range []string{"page=0", "page=x", "limit=0", "limit=101"} {
		_, err := ParsePage(contextWithQuery(query))
		assert.Error(t, err, query)
	}
}

func TestTotalPages(t *testing.T) {
	assert.EqualValues(t, 0, TotalPages(0, 10))
	assert.EqualValues(t, 1, TotalPages(10, 10))
	assert.EqualValues(t, 2, TotalPages(11, 10))
	assert.EqualValues(t, 0, TotalPages(5, 0))
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	got, ok := ParseUUIDParam(c, "id")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	w := httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	_, ok = ParseUUIDParam(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid id.")
}

func TestParseTime(t *testing.T) {
	ts, err := ParseTime("2026-07-01T19:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 2026, ts.Year())

	_, err = ParseTime("July 1st")
	assert.Error(t, err)
}
