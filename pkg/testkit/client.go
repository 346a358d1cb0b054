// Package testkit drives the storefront API in tests: an envelope-aware
// client for httptest servers and a stub transport for outgoing calls.
package testkit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Envelope mirrors the JSON body every API response carries.
type Envelope struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

// Response is a decoded API reply.
type Response struct {
	Code int
	Envelope
	Raw []byte
}

// Client calls one test server. It keeps cookies, so a guest keeps the
// same session (and cart) across calls.
type Client struct {
	t     *testing.T
	base  string
	http  *http.Client
	Token string
}

func NewClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &Client{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

// WithToken sets the bearer token sent on every call.
func (c *Client) WithToken(token string) *Client {
	c.Token = token
	return c
}

// Do sends body as JSON (nil sends none) and decodes the envelope.
func (c *Client) Do(method, path string, body any) Response {
	c.t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	out := Response{Code: resp.StatusCode}
	out.Raw, err = io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	if len(out.Raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(out.Raw, &out.Envelope), string(out.Raw))
	}
	return out
}

func (c *Client) Get(path string) Response { return c.Do(http.MethodGet, path, nil) }

func (c *Client) Post(path string, body any) Response { return c.Do(http.MethodPost, path, body) }

func (c *Client) Put(path string, body any) Response { return c.Do(http.MethodPut, path, body) }

func (c *Client) Delete(path string) Response { return c.Do(http.MethodDelete, path, nil) }

// WSURL is the websocket address of path on the server.
func (c *Client) WSURL(path string) string {
	return "ws" + strings.TrimPrefix(c.base, "http") + path
}

// Data decodes the envelope's data field.
func Data[T any](t *testing.T, r Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(r.Data, &out), string(r.Raw))
	return out
}
