package ctx_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/shashiranjanraj/kirana/pkg/ctx"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

type envelope struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Data    any               `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func run(t *testing.T, req *http.Request, h appctx.HandlerFunc) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	appctx.Wrap(h)(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestSuccessEnvelope(t *testing.T) {
	rec, env := run(t, httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Success(map[string]any{"ok": true})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 200, env.Status)
	assert.Equal(t, map[string]any{"ok": true}, env.Data)
}

func TestBindJSON(t *testing.T) {
	type input struct {
		Name string `json:"name" validate:"required"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Atta"}`))
	rec, _ := run(t, req, func(c *appctx.Context) {
		var in input
		require.True(t, c.BindJSON(&in))
		assert.Equal(t, "Atta", in.Name)
		c.Status(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))
	rec, env := run(t, req, func(c *appctx.Context) {
		var in input
		assert.False(t, c.BindJSON(&in))
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, env.Errors, "name")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	rec, _ = run(t, req, func(c *appctx.Context) {
		var in input
		assert.False(t, c.BindJSON(&in))
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type statusErr struct{ code int }

func (e statusErr) Error() string   { return "custom" }
func (e statusErr) HTTPStatus() int { return e.code }

type fieldErr struct{}

func (fieldErr) Error() string             { return "invalid address" }
func (fieldErr) Fields() map[string]string { return map[string]string{"zip": "required"} }

func TestFailMapsErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("wrapped: %w", statusErr{http.StatusConflict}), http.StatusConflict},
		{fmt.Errorf("orders: %w", store.ErrNotFound), http.StatusNotFound},
		{fieldErr{}, http.StatusUnprocessableEntity},
		{errors.New("db exploded"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec, env := run(t, httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
			c.Fail(tc.err)
		})
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
		assert.NotContains(t, env.Message, "exploded")
	}
}

func TestUserIDEmptyForGuests(t *testing.T) {
	run(t, httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		assert.Equal(t, "", c.UserID())
		c.Status(http.StatusOK)
	})
}
