package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nameRequest struct {
	Name string `validate:"required,emotename"`
}

func TestValidate_EmoteName(t *testing.T) {
	for _, name := range []string{"blob", "Blob_Cat2", "x"} {
		assert.NoError(t, Validate(nameRequest{Name: name}), name)
	}

	for _, name := range []string{"", "blob cat", "blob:", "a23456789012345678901234567890123"} {
		err := Validate(nameRequest{Name: name})
		require.Error(t, err, name)
		assert.Contains(t, FormatValidationErrors(err), "name")
	}
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusNotFound, "Emote not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Emote not found", body.Error)
}

func TestURLParamInt64(t *testing.T) {
	req := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", value)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	id, ok := URLParamInt64(req("42"), "id")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, ok := URLParamInt64(req(bad), "id")
		assert.False(t, ok, bad)
	}
}

func TestGetQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=5&ordered=true&bad=x", nil)

	assert.Equal(t, 5, GetQueryInt(r, "limit", 10))
	assert.Equal(t, 10, GetQueryInt(r, "bad", 10))
	assert.True(t, GetQueryBool(r, "ordered", false))
	assert.False(t, GetQueryBool(r, "bad", false))
	assert.Equal(t, "mutual", GetQueryString(r, "source", "mutual"))
}
