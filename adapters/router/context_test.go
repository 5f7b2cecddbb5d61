package invoicerouter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"

	"github.com/goliatone/go-router"
)

// fakeRequest describes a request replayed through both transports.
type fakeRequest struct {
	method  string
	path    string
	body    string
	headers map[string]string
	query   map[string]string
}

func (f fakeRequest) httpRequest() *http.Request {
	req := httptest.NewRequest(f.method, f.path, bytes.NewBufferString(f.body))
	values := req.URL.Query()
	for k, v := range f.query {
		values.Set(k, v)
	}
	req.URL.RawQuery = values.Encode()
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	return req
}

// routeContext is a minimal router.Context that buffers through Send.
type routeContext struct {
	req           fakeRequest
	locals        map[any]any
	ctx           context.Context
	recorder      *httptest.ResponseRecorder
	statusWritten bool
	sendCalled    bool
}

func newRouteContext(req fakeRequest) *routeContext {
	if req.headers == nil {
		req.headers = map[string]string{}
	}
	if req.query == nil {
		req.query = map[string]string{}
	}
	return &routeContext{
		req:      req,
		locals:   map[any]any{},
		ctx:      context.Background(),
		recorder: httptest.NewRecorder(),
	}
}

func (c *routeContext) Bind(v any) error {
	if c.req.body == "" {
		return nil
	}
	return json.Unmarshal([]byte(c.req.body), v)
}

func (c *routeContext) Context() context.Context       { return c.ctx }
func (c *routeContext) SetContext(ctx context.Context) { c.ctx = ctx }
func (c *routeContext) Next() error                    { return nil }
func (c *routeContext) RouteName() string              { return "" }
func (c *routeContext) RouteParams() map[string]string { return map[string]string{} }
func (c *routeContext) Method() string                 { return c.req.method }
func (c *routeContext) Path() string                   { return c.req.path }

func (c *routeContext) Param(name string, defaultValue ...string) string {
	return first(defaultValue)
}

func (c *routeContext) ParamsInt(key string, defaultValue int) int { return defaultValue }

func (c *routeContext) Query(name string, defaultValue ...string) string {
	if val, ok := c.req.query[name]; ok {
		return val
	}
	return first(defaultValue)
}

func (c *routeContext) QueryValues(name string) []string {
	if val, ok := c.req.query[name]; ok {
		return []string{val}
	}
	return nil
}

func (c *routeContext) QueryInt(name string, defaultValue int) int {
	parsed, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (c *routeContext) Queries() map[string]string { return c.req.query }
func (c *routeContext) Body() []byte               { return []byte(c.req.body) }

func (c *routeContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		c.locals[key] = value[0]
		return value[0]
	}
	return c.locals[key]
}

func (c *routeContext) LocalsMerge(key any, value map[string]any) map[string]any {
	merged, _ := c.locals[key].(map[string]any)
	if merged == nil {
		merged = map[string]any{}
	}
	for k, v := range value {
		merged[k] = v
	}
	c.locals[key] = merged
	return merged
}

func (c *routeContext) Render(name string, bind any, layouts ...string) error { return nil }
func (c *routeContext) Cookie(cookie *router.Cookie)                          {}
func (c *routeContext) Cookies(key string, defaultValue ...string) string {
	return first(defaultValue)
}
func (c *routeContext) CookieParser(out any) error { return nil }

func (c *routeContext) Redirect(location string, status ...int) error {
	code := http.StatusFound
	if len(status) > 0 {
		code = status[0]
	}
	c.SetHeader("Location", location)
	c.writeHeader(code)
	return nil
}

func (c *routeContext) RedirectToRoute(routeName string, params router.ViewContext, status ...int) error {
	return nil
}

func (c *routeContext) RedirectBack(fallback string, status ...int) error { return nil }
func (c *routeContext) Header(name string) string                         { return c.req.headers[name] }
func (c *routeContext) Referer() string                                   { return "" }
func (c *routeContext) OriginalURL() string                               { return c.req.path }

func (c *routeContext) FormFile(key string) (*multipart.FileHeader, error) { return nil, nil }
func (c *routeContext) FormValue(key string, defaultValue ...string) string {
	return first(defaultValue)
}

func (c *routeContext) IP() string { return "127.0.0.1" }

func (c *routeContext) Status(code int) router.Context {
	c.writeHeader(code)
	return c
}

func (c *routeContext) Send(body []byte) error {
	c.sendCalled = true
	c.writeHeader(http.StatusOK)
	_, err := c.recorder.Write(body)
	return err
}

func (c *routeContext) SendString(body string) error { return c.Send([]byte(body)) }

func (c *routeContext) SendStatus(code int) error {
	c.writeHeader(code)
	return nil
}

func (c *routeContext) JSON(code int, v any) error {
	c.recorder.Header().Set("Content-Type", "application/json")
	c.writeHeader(code)
	return json.NewEncoder(c.recorder).Encode(v)
}

func (c *routeContext) SendStream(r io.Reader) error {
	c.writeHeader(http.StatusOK)
	_, err := io.Copy(c.recorder, r)
	return err
}

func (c *routeContext) NoContent(code int) error {
	c.writeHeader(code)
	return nil
}

func (c *routeContext) SetHeader(key, val string) router.Context {
	if val == "" {
		c.recorder.Header().Del(key)
		return c
	}
	c.recorder.Header().Set(key, val)
	return c
}

func (c *routeContext) Set(key string, value any) { c.locals[key] = value }

func (c *routeContext) Get(key string, def any) any {
	if val, ok := c.locals[key]; ok {
		return val
	}
	return def
}

func (c *routeContext) GetString(key string, def string) string {
	if val, ok := c.locals[key].(string); ok {
		return val
	}
	return def
}

func (c *routeContext) GetInt(key string, def int) int {
	if val, ok := c.locals[key].(int); ok {
		return val
	}
	return def
}

func (c *routeContext) GetBool(key string, def bool) bool {
	if val, ok := c.locals[key].(bool); ok {
		return val
	}
	return def
}

func (c *routeContext) writeHeader(code int) {
	if c.statusWritten {
		return
	}
	c.statusWritten = true
	c.recorder.WriteHeader(code)
}

// streamContext also exposes the net/http request and writer.
type streamContext struct {
	*routeContext
	httpReq *http.Request
}

func newStreamContext(req fakeRequest) *streamContext {
	base := newRouteContext(req)
	httpReq := req.httpRequest()
	base.ctx = httpReq.Context()
	return &streamContext{routeContext: base, httpReq: httpReq}
}

func (c *streamContext) Request() *http.Request        { return c.httpReq }
func (c *streamContext) Response() http.ResponseWriter { return c.recorder }

func first(values []string) string {
	if len(values) > 0 {
		return values[0]
	}
	return ""
}

var (
	_ router.Context     = (*routeContext)(nil)
	_ router.Context     = (*streamContext)(nil)
	_ router.HTTPContext = (*streamContext)(nil)
)
