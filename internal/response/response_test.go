package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dan9191/recipe-service/internal/apperr"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, "created", map[string]string{"id": "1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(201), body["statusCode"])
	assert.Equal(t, "created", body["message"])
	assert.Equal(t, map[string]any{"id": "1"}, body["data"])
}

func TestError_AppError(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	rec := httptest.NewRecorder()
	Error(rec, log, apperr.ErrUserBlocked)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "This user is blocked!", body["message"])
	_, hasData := body["data"]
	assert.False(t, hasData)
	assert.Empty(t, hook.AllEntries())
}

func TestError_UnknownErrorIsHidden(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	rec := httptest.NewRecorder()
	Error(rec, log, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Something went wrong", body["message"])
	assert.NotContains(t, rec.Body.String(), "connection refused")

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}
