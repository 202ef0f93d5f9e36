package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, header string, h gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", h)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("X-Request-ID", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestFailCarriesCodeAndRequestID(t *testing.T) {
	id := uuid.NewString()
	w, body := serve(t, id, func(c *gin.Context) {
		Fail(c, http.StatusConflict, ErrSessionActive)
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, ErrSessionActive, body.Error.Code)
	assert.Equal(t, GetMessage(ErrSessionActive), body.Error.Message)
	assert.Nil(t, body.Data)
	assert.Equal(t, id, body.Metadata.RequestID)
	assert.Equal(t, id, w.Header().Get("X-Request-ID"))
}

func TestRequestIDRejectsNonUUID(t *testing.T) {
	w, body := serve(t, "candidate-token-abc", func(c *gin.Context) {
		Success(c, http.StatusOK, "ok")
	})

	_, err := uuid.Parse(body.Metadata.RequestID)
	assert.NoError(t, err)
	assert.NotEqual(t, "candidate-token-abc", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "ok", body.Data)
}

func TestFailWithFieldsAndAbort(t *testing.T) {
	_, body := serve(t, "", func(c *gin.Context) {
		FailWithFields(c, http.StatusBadRequest, ErrValidation, map[string]string{"kind": "must be one of"})
	})
	require.NotNil(t, body.Error)
	assert.Equal(t, "must be one of", body.Error.Fields["kind"])

	w, body := serve(t, "", func(c *gin.Context) {
		AbortFail(c, http.StatusTooManyRequests, ErrRateLimitExceeded)
		assert.True(t, c.IsAborted())
	})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, ErrRateLimitExceeded, body.Error.Code)
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, &Pagination{Page: 3, PerPage: 20, TotalItems: 41, TotalPages: 3}, NewPagination(3, 20, 41))
	assert.Equal(t, 0, NewPagination(1, 20, 0).TotalPages)
	assert.Equal(t, 0, NewPagination(1, 0, 5).TotalPages)
}
