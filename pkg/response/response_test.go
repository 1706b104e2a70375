package response

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
)

func TestErrorUsesTypedStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.Clone(appErrors.ErrInvalidTransition, "mapping is confirmed"))

	assert.Equal(t, http.StatusConflict, w.Code)
	var body struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_TRANSITION", body.Error.Code)
	assert.Equal(t, "mapping is confirmed", body.Error.Message)
	assert.True(t, c.IsAborted())
}

func TestErrorWrapsUnknownAsInternal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, meta := Paginate(items, 2, 2)
	assert.Equal(t, []int{3, 4}, page)
	assert.Equal(t, 5, meta.TotalCount)

	page, _ = Paginate(items, 9, 2)
	assert.Empty(t, page)

	page, meta = Paginate(items, 0, 0)
	assert.Len(t, page, 5)
	assert.Equal(t, 1, meta.Page)
	assert.Equal(t, 50, meta.PageSize)
}

func TestPaginateHugePageReturnsEmpty(t *testing.T) {
	items := []int{1, 2, 3}

	page, meta := Paginate(items, math.MaxInt, 50)
	assert.Empty(t, page)
	assert.Equal(t, math.MaxInt, meta.Page)
	assert.Equal(t, 3, meta.TotalCount)

	page, _ = Paginate(items, math.MaxInt/50+2, 50)
	assert.Empty(t, page)
}
