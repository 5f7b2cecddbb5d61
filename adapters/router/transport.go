package invoicerouter

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/goliatone/go-invoices/adapters/dashapi"
	"github.com/goliatone/go-invoices/dashboard"
	"github.com/goliatone/go-router"
)

var (
	_ dashapi.Request          = routerRequest{}
	_ dashapi.Response         = routerResponse{}
	_ dashapi.DownloadStreamer = routerResponse{}
)

type routerRequest struct {
	ctx router.Context
}

func (req routerRequest) Context() context.Context {
	if req.ctx == nil {
		return context.Background()
	}
	return req.ctx.Context()
}

func (req routerRequest) Method() string {
	if req.ctx == nil {
		return ""
	}
	return req.ctx.Method()
}

func (req routerRequest) Path() string {
	if req.ctx == nil {
		return ""
	}
	return req.ctx.Path()
}

func (req routerRequest) Header(name string) string {
	if req.ctx == nil {
		return ""
	}
	return req.ctx.Header(name)
}

func (req routerRequest) Query(name string) string {
	if req.ctx == nil {
		return ""
	}
	return req.ctx.Query(name)
}

func (req routerRequest) Body() io.ReadCloser {
	if req.ctx == nil {
		return nil
	}
	return io.NopCloser(bytes.NewReader(req.ctx.Body()))
}

type routerResponse struct {
	ctx router.Context
}

func (res routerResponse) SetHeader(name, value string) {
	if res.ctx == nil {
		return
	}
	res.ctx.SetHeader(name, value)
}

func (res routerResponse) DelHeader(name string) {
	if res.ctx == nil {
		return
	}
	res.ctx.SetHeader(name, "")
}

func (res routerResponse) WriteHeader(status int) {
	if res.ctx == nil {
		return
	}
	res.ctx.Status(status)
}

func (res routerResponse) Write(data []byte) (int, error) {
	if res.ctx == nil {
		return 0, nil
	}
	if err := res.ctx.Send(data); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (res routerResponse) WriteJSON(status int, payload any) error {
	if res.ctx == nil {
		return nil
	}
	return res.ctx.JSON(status, payload)
}

func (res routerResponse) Writer() (io.Writer, bool) {
	if res.ctx == nil {
		return nil, false
	}
	httpCtx, ok := router.AsHTTPContext(res.ctx)
	if !ok || httpCtx.Response() == nil {
		return nil, false
	}
	return httpCtx.Response(), true
}

// StreamDownload hands an archived export to the go-router download
// responder. On fiber the body is streamed after the handler returns, so the
// archive is closed at EOF or when the server closes the stream.
func (res routerResponse) StreamDownload(dl dashboard.Download, body io.Closer) error {
	stream := &archiveBody{r: dl.Reader, c: body}
	if res.ctx == nil || dl.Reader == nil {
		return stream.Close()
	}
	// download headers are already set; passing no filename keeps them
	err := router.NewDownloadResponder(res.ctx).WriteStream(
		res.ctx.Context(),
		dl.ContentType,
		stream,
		router.WithContentLength(dl.Size),
	)
	if err != nil {
		_ = stream.Close()
	}
	return err
}

type archiveBody struct {
	r    io.Reader
	c    io.Closer
	once sync.Once
	err  error
}

func (b *archiveBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil {
		_ = b.Close()
	}
	return n, err
}

func (b *archiveBody) Close() error {
	b.once.Do(func() {
		if b.c != nil {
			b.err = b.c.Close()
		}
	})
	return b.err
}
