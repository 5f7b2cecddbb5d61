package chromiumsurface

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"math"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-invoices/invoice"
)

const forceVisibleStyleID = "render-surface-force-visible"

type elementBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Capture screenshots the surface container at opts.Scale over an opaque
// background. Chromium screenshots are never tainted by cross-origin
// images, so AllowExternalAssets only controls whether further remote
// fetches are permitted while capturing.
func (s *Surface) Capture(ctx context.Context, surface invoice.RenderSurface, opts invoice.CaptureOptions) (invoice.Bitmap, error) {
	if s == nil {
		return invoice.Bitmap{}, invoice.NewError(invoice.KindInternal, "chromium surface is nil", nil)
	}
	if surface != nil && surface != invoice.RenderSurface(s) {
		return invoice.Bitmap{}, invoice.NewError(invoice.KindValidation, "chromium capturer can only capture its own surface", nil)
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	bg, err := parseHexColor(opts.Background)
	if err != nil {
		return invoice.Bitmap{}, err
	}

	var ignored bool
	actions := []chromedp.Action{}
	if !opts.AllowExternalAssets && !s.BlockExternalAssets {
		actions = append(actions,
			network.Enable(),
			blockExternalAssets(),
		)
	}
	if bg != nil {
		actions = append(actions, emulation.SetDefaultBackgroundColorOverride().WithColor(bg))
	}
	if opts.ForceVisible {
		actions = append(actions, chromedp.Evaluate(forceVisibleScript(true), &ignored))
	}

	var box elementBox
	var shot []byte
	actions = append(actions,
		chromedp.Evaluate(boundingBoxScript, &box),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if box.Width <= 0 || box.Height <= 0 {
				return fmt.Errorf("surface has no layout box (%vx%v)", box.Width, box.Height)
			}
			var err error
			shot, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithCaptureBeyondViewport(true).
				WithFromSurface(true).
				WithClip(&page.Viewport{
					X:      box.X,
					Y:      box.Y,
					Width:  math.Ceil(box.Width),
					Height: math.Ceil(box.Height),
					Scale:  scale,
				}).
				Do(ctx)
			return err
		}),
	)

	runErr := s.run(ctx, actions...)

	cleanup := []chromedp.Action{}
	if opts.ForceVisible {
		cleanup = append(cleanup, chromedp.Evaluate(forceVisibleScript(false), &ignored))
	}
	if bg != nil {
		cleanup = append(cleanup, emulation.SetDefaultBackgroundColorOverride())
	}
	if !opts.AllowExternalAssets && !s.BlockExternalAssets {
		cleanup = append(cleanup, network.SetBlockedURLs())
	}
	if len(cleanup) > 0 {
		if err := s.run(context.WithoutCancel(ctx), cleanup...); err != nil {
			s.logger().Errorf("chromium surface: capture cleanup: %v", err)
		}
	}

	if runErr != nil {
		return invoice.Bitmap{}, runErr
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(shot))
	if err != nil {
		return invoice.Bitmap{}, fmt.Errorf("decode screenshot: %w", err)
	}
	return invoice.Bitmap{PNG: shot, Width: cfg.Width, Height: cfg.Height}, nil
}

var boundingBoxScript = `(() => {
  const el = document.getElementById('` + surfaceElementID + `');
  if (!el) { return {x: 0, y: 0, width: 0, height: 0}; }
  const r = el.getBoundingClientRect();
  return {x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height};
})()`

// externalAssetPatterns are the request patterns refused while external
// assets are blocked.
var externalAssetPatterns = []string{"http://*:*/*", "https://*:*/*"}

func blockExternalAssets() *network.SetBlockedURLsParams {
	patterns := make([]*network.BlockPattern, 0, len(externalAssetPatterns))
	for _, p := range externalAssetPatterns {
		patterns = append(patterns, &network.BlockPattern{URLPattern: p, Block: true})
	}
	return network.SetBlockedURLs().WithURLPatterns(patterns)
}

func forceVisibleScript(enable bool) string {
	if !enable {
		return `(() => { const st = document.getElementById('` + forceVisibleStyleID + `'); if (st) { st.remove(); } return true; })()`
	}
	return `(() => {
  let st = document.getElementById('` + forceVisibleStyleID + `');
  if (!st) {
    st = document.createElement('style');
    st.id = '` + forceVisibleStyleID + `';
    st.textContent = '#` + surfaceElementID + ` * { visibility: visible !important; opacity: 1 !important; }';
    document.head.appendChild(st);
  }
  return true;
})()`
}

// parseHexColor accepts #rgb and #rrggbb. Empty means no override.
func parseHexColor(value string) (*cdp.RGBA, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	if value == "" {
		return nil, nil
	}
	if len(value) == 3 {
		value = strings.Repeat(value[0:1], 2) + strings.Repeat(value[1:2], 2) + strings.Repeat(value[2:3], 2)
	}
	if len(value) != 6 {
		return nil, invoice.NewError(invoice.KindValidation, fmt.Sprintf("invalid background color: %s", value), nil)
	}
	rgb, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return nil, invoice.NewError(invoice.KindValidation, fmt.Sprintf("invalid background color: %s", value), err)
	}
	return &cdp.RGBA{
		R: int64(rgb >> 16 & 0xff),
		G: int64(rgb >> 8 & 0xff),
		B: int64(rgb & 0xff),
		A: 1,
	}, nil
}
