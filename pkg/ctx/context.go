// Package ctx provides a request context for handlers.
//
// Instead of accepting (http.ResponseWriter, *http.Request), a handler
// receives a single *Context with helpers for params, binding and the
// response envelope:
//
//	func (c *OrderController) Show(x *ctx.Context) {
//	    order, err := c.orders.Get(x.Context(), x.UserID(), x.Param("id"))
//	    if err != nil {
//	        x.Fail(err)
//	        return
//	    }
//	    x.Success(order)
//	}
//
//	router.Get("/orders/{id}", "orders.show", ctx.Wrap(ctl.Show))
package ctx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shashiranjanraj/kirana/pkg/bind"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/middleware"
	"github.com/shashiranjanraj/kirana/pkg/response"
	"github.com/shashiranjanraj/kirana/pkg/store"
	"github.com/shashiranjanraj/kirana/pkg/validate"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// Wrap converts a HandlerFunc to a standard http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// Context wraps a request/response pair.
type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	status int // written status code (0 = not written yet)
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// StatusCoder is implemented by errors that choose their own HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// FieldErrors is implemented by errors that carry per-field messages.
type FieldErrors interface {
	Fields() map[string]string
}

// ─── Request helpers ──────────────────────────────────────────────────────────

// Param returns a URL path parameter (e.g. "/orders/{id}" → c.Param("id")).
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// IntParam parses a path parameter as an int.
func (c *Context) IntParam(key string) (int, error) {
	return strconv.Atoi(c.Param(key))
}

// Query returns a query-string value. Returns "" if not present.
func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

// DefaultQuery returns a query-string value, or def if it is empty.
func (c *Context) DefaultQuery(key, def string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return def
}

// Context returns the underlying request context.
func (c *Context) Context() context.Context { return c.R.Context() }

// UserID returns the authenticated user id, or "" for guests.
func (c *Context) UserID() string {
	id, _ := middleware.UserIDFromCtx(c.R)
	return id
}

// ─── Binding / Validation ─────────────────────────────────────────────────────

// BindJSON decodes the JSON body into dest and runs validation.
// On failure it writes the 400/422 response and returns false.
//
//	var in AddressInput
//	if !c.BindJSON(&in) {
//	    return
//	}
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if validate.HasErrors(errs) {
		c.ValidationError(errs)
		return false
	}
	return true
}

// ─── Response helpers ─────────────────────────────────────────────────────────

func (c *Context) write(code int, body response.Envelope) {
	c.status = code
	response.Write(c.W, code, body)
}

// Status writes just the HTTP status code with an empty body.
func (c *Context) Status(code int) {
	c.status = code
	c.W.WriteHeader(code)
}

// Success sends a 200 JSON envelope.
func (c *Context) Success(data any) {
	c.write(http.StatusOK, response.Envelope{Status: http.StatusOK, Data: data})
}

// Created sends a 201 JSON envelope.
func (c *Context) Created(data any) {
	c.write(http.StatusCreated, response.Envelope{Status: http.StatusCreated, Data: data})
}

// Accepted sends a 202 JSON envelope.
func (c *Context) Accepted(data any) {
	c.write(http.StatusAccepted, response.Envelope{Status: http.StatusAccepted, Data: data})
}

// Error sends a JSON error envelope with the given status and message.
func (c *Context) Error(code int, message string) {
	c.write(code, response.Envelope{Status: code, Message: message})
}

// ValidationError sends a 422 with field-level errors.
func (c *Context) ValidationError(errs map[string]string) {
	c.write(http.StatusUnprocessableEntity, response.Envelope{
		Status:  http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Errors:  errs,
	})
}

func (c *Context) Unauthorized() { c.Error(http.StatusUnauthorized, "Unauthorized") }

func (c *Context) NotFound(message string) { c.Error(http.StatusNotFound, message) }

// Fail maps a service error to its HTTP response. Errors that don't choose
// a status are logged and reported as 500 without their text.
func (c *Context) Fail(err error) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		c.write(http.StatusUnprocessableEntity, response.Envelope{
			Status:  http.StatusUnprocessableEntity,
			Message: err.Error(),
			Errors:  fe.Fields(),
		})
		return
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		c.Error(sc.HTTPStatus(), err.Error())
		return
	}

	if errors.Is(err, store.ErrNotFound) {
		c.NotFound("Not found")
		return
	}

	logger.WithCtx(c.Context()).Error("request failed", "path", c.R.URL.Path, "error", err)
	c.Error(http.StatusInternalServerError, "Internal Server Error")
}

// WrittenStatus returns the status written so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }
