package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func TestSuccessWritesEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Set("request_id", "req-1")

	Success(c, http.StatusCreated, map[string]string{"id": "u1"}, "created", nil)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "req-1", body["request_id"])
	assert.Equal(t, "created", body["message"])
	assert.Equal(t, map[string]any{"id": "u1"}, body["data"])
	assert.NotContains(t, body, "error")
}

func TestErrorDefaultsToBadRequest(t *testing.T) {
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)

	resp := Error[any](c, 0, "invalid payload", map[string]string{"email": "email is required"})

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.NotContains(t, body, "data")
}

func TestAbortStopsChain(t *testing.T) {
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)

	Abort(c, http.StatusUnauthorized, "unauthorized", nil)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
