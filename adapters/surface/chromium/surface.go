package chromiumsurface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-invoices/invoice"
)

const (
	surfaceElementID     = "render-surface"
	defaultWindowWidth   = 1280
	defaultWindowHeight  = 1800
	defaultActionTimeout = 30 * time.Second
)

const shellDocument = `<!doctype html>
<html lang="ar" dir="rtl">
<head><meta charset="utf-8"><title>invoice surface</title>
<style>html, body { margin: 0; padding: 0; background: #ffffff; }</style>
</head>
<body>
<div id="` + surfaceElementID + `" style="position: absolute; left: -9999px; top: 0px; visibility: hidden; z-index: -1;"></div>
</body>
</html>`

// Surface is a single headless Chromium tab that keeps the printable invoice
// mounted off-screen. It is the render surface, its presenter and its
// capturer.
type Surface struct {
	BrowserPath string
	Headless    bool
	Timeout     time.Duration
	Args        []string
	// BlockExternalAssets stops the tab from fetching remote http(s) assets.
	BlockExternalAssets bool
	WindowWidth         int
	WindowHeight        int
	Template            *Template
	Logger              invoice.Logger
	Now                 func() time.Time

	initOnce      sync.Once
	initErr       error
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu        sync.RWMutex
	tabCtx    context.Context
	tabCancel context.CancelFunc
}

var (
	_ invoice.RenderSurface     = (*Surface)(nil)
	_ invoice.SurfaceRef        = (*Surface)(nil)
	_ invoice.Presenter         = (*Surface)(nil)
	_ invoice.ReadinessSignaler = (*Surface)(nil)
	_ invoice.Capturer          = (*Surface)(nil)
)

// Mount starts the browser if needed and loads the empty surface document.
func (s *Surface) Mount(ctx context.Context) error {
	if s == nil {
		return invoice.NewError(invoice.KindInternal, "chromium surface is nil", nil)
	}
	if err := s.ensureBrowser(); err != nil {
		return invoice.NewError(invoice.KindSurfaceUnavailable, "chromium surface init failed", err)
	}
	if s.Template == nil {
		tpl, err := DefaultTemplate()
		if err != nil {
			return err
		}
		s.Template = tpl
	}

	// The first Run on a chromedp context binds the tab to it, so allocate
	// on tabCtx itself before deriving per-call contexts.
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return invoice.NewError(invoice.KindSurfaceUnavailable, "open chromium tab", err)
	}
	actions := []chromedp.Action{}
	if s.BlockExternalAssets {
		actions = append(actions,
			network.Enable(),
			blockExternalAssets(),
		)
	}
	actions = append(actions,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, shellDocument).Do(ctx)
		}),
		chromedp.WaitReady("#"+surfaceElementID, chromedp.ByQuery),
	)

	if err := s.runIn(ctx, tabCtx, actions...); err != nil {
		tabCancel()
		return invoice.NewError(invoice.KindSurfaceUnavailable, "mount chromium surface", err)
	}

	s.mu.Lock()
	if s.tabCancel != nil {
		s.tabCancel()
	}
	s.tabCtx, s.tabCancel = tabCtx, tabCancel
	s.mu.Unlock()
	s.logger().Debugf("chromium surface mounted")
	return nil
}

// Unmount closes the tab. Current returns nil until the next Mount.
func (s *Surface) Unmount() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.tabCancel != nil {
		s.tabCancel()
	}
	s.tabCtx, s.tabCancel = nil, nil
	s.mu.Unlock()
}

// Close releases the tab and the browser.
func (s *Surface) Close() error {
	if s == nil {
		return nil
	}
	s.Unmount()
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	return nil
}

// Current returns the surface when a tab is mounted.
func (s *Surface) Current() invoice.RenderSurface {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	mounted := s.tabCtx != nil && s.tabCtx.Err() == nil
	s.mu.RUnlock()
	if !mounted {
		return nil
	}
	return s
}

// Present renders inv into the surface container.
func (s *Surface) Present(ctx context.Context, inv invoice.Invoice) error {
	markup, err := s.Template.Render(inv, s.now())
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(markup)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(`(() => {
  const el = document.getElementById(%q);
  if (!el) { return false; }
  el.innerHTML = %s;
  return true;
})()`, surfaceElementID, encoded)

	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return err
	}
	if !ok {
		return invoice.NewError(invoice.KindSurfaceUnavailable, "surface container is missing", nil)
	}
	return nil
}

// Attributes reads the container's inline layout attributes.
func (s *Surface) Attributes(ctx context.Context) (invoice.SurfaceAttributes, error) {
	script := fmt.Sprintf(`(() => {
  const el = document.getElementById(%q);
  if (!el) { return null; }
  const st = el.style;
  return {position: st.position, visibility: st.visibility, zIndex: st.zIndex, top: st.top, left: st.left};
})()`, surfaceElementID)

	var attrs *invoice.SurfaceAttributes
	if err := s.run(ctx, chromedp.Evaluate(script, &attrs)); err != nil {
		return invoice.SurfaceAttributes{}, err
	}
	if attrs == nil {
		return invoice.SurfaceAttributes{}, invoice.NewError(invoice.KindSurfaceUnavailable, "surface container is missing", nil)
	}
	return *attrs, nil
}

// ApplyAttributes writes the container's inline layout attributes.
func (s *Surface) ApplyAttributes(ctx context.Context, attrs invoice.SurfaceAttributes) error {
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(`(() => {
  const el = document.getElementById(%q);
  if (!el) { return false; }
  const a = %s;
  el.style.position = a.position;
  el.style.visibility = a.visibility;
  el.style.zIndex = a.zIndex;
  el.style.top = a.top;
  el.style.left = a.left;
  return true;
})()`, surfaceElementID, encoded)

	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return err
	}
	if !ok {
		return invoice.NewError(invoice.KindSurfaceUnavailable, "surface container is missing", nil)
	}
	return nil
}

const readinessScript = `(async () => {
  if (document.fonts && document.fonts.ready) { await document.fonts.ready; }
  const imgs = Array.from(document.querySelectorAll('#` + surfaceElementID + ` img'));
  await Promise.all(imgs.map((img) => img.complete ? null : new Promise((resolve) => {
    img.addEventListener('load', resolve, {once: true});
    img.addEventListener('error', resolve, {once: true});
  })));
  await new Promise((resolve) => requestAnimationFrame(() => requestAnimationFrame(resolve)));
  return true;
})()`

// WaitReady resolves once fonts and images have loaded and two animation
// frames have passed.
func (s *Surface) WaitReady(ctx context.Context) error {
	var ready bool
	return s.run(ctx, chromedp.Evaluate(readinessScript, &ready, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
}

func (s *Surface) ensureBrowser() error {
	s.initOnce.Do(func() {
		width, height := s.WindowWidth, s.WindowHeight
		if width <= 0 {
			width = defaultWindowWidth
		}
		if height <= 0 {
			height = defaultWindowHeight
		}
		options := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		if s.BrowserPath != "" {
			options = append(options, chromedp.ExecPath(s.BrowserPath))
		}
		options = append(options,
			chromedp.Flag("headless", s.Headless),
			chromedp.WindowSize(width, height),
		)
		options = append(options, allocatorOptionsFromArgs(s.Args)...)

		s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(context.Background(), options...)
		s.browserCtx, s.browserCancel = chromedp.NewContext(s.allocCtx)
		if err := chromedp.Run(s.browserCtx); err != nil {
			s.initErr = err
		}
	})
	if s.initErr != nil {
		return s.initErr
	}
	if s.allocCtx == nil || s.browserCtx == nil {
		return errors.New("chromium allocator unavailable")
	}
	return nil
}

// run executes actions on the mounted tab.
func (s *Surface) run(ctx context.Context, actions ...chromedp.Action) error {
	if s == nil {
		return invoice.NewError(invoice.KindInternal, "chromium surface is nil", nil)
	}
	s.mu.RLock()
	tabCtx := s.tabCtx
	s.mu.RUnlock()
	if tabCtx == nil {
		return invoice.NewError(invoice.KindSurfaceUnavailable, "chromium surface is not mounted", nil)
	}
	return s.runIn(ctx, tabCtx, actions...)
}

// runIn runs actions on tabCtx, bounded by the caller ctx and Timeout.
func (s *Surface) runIn(ctx context.Context, tabCtx context.Context, actions ...chromedp.Action) error {
	if ctx == nil {
		ctx = context.Background()
	}
	execCtx, cancelReq := context.WithCancel(tabCtx)
	defer cancelReq()
	go func() {
		select {
		case <-ctx.Done():
			cancelReq()
		case <-execCtx.Done():
		}
	}()

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}
	execCtx, cancelTimeout := context.WithTimeout(execCtx, timeout)
	defer cancelTimeout()

	if err := chromedp.Run(execCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", ctxErr, err)
		}
		return err
	}
	return nil
}

func (s *Surface) logger() invoice.Logger {
	if s.Logger == nil {
		return invoice.NopLogger{}
	}
	return s.Logger
}

func (s *Surface) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func allocatorOptionsFromArgs(args []string) []chromedp.ExecAllocatorOption {
	options := make([]chromedp.ExecAllocatorOption, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimPrefix(strings.TrimSpace(arg), "--")
		if arg == "" {
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			options = append(options, chromedp.Flag(name, value))
			continue
		}
		options = append(options, chromedp.Flag(arg, true))
	}
	return options
}
