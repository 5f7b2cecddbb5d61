// Package chromiumsurface hosts the printable invoice in a headless Chromium
// tab. The container sits off-screen until the export pipeline toggles it
// visible for a screenshot capture.
package chromiumsurface
