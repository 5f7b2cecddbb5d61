package invoice

import (
	"math"
	"testing"
)

func TestGeometryFitScalesToContentWidth(t *testing.T) {
	geom := DefaultGeometry()
	if geom.Width != 210 || geom.Height != 297 || geom.Margin != 10 {
		t.Fatalf("unexpected default geometry %+v", geom)
	}

	sizes := [][2]int{{1588, 2246}, {800, 600}, {1, 5000}, {3000, 10}}
	for _, size := range sizes {
		w, h := size[0], size[1]
		placement, err := geom.Fit(w, h)
		if err != nil {
			t.Fatalf("fit %dx%d: %v", w, h, err)
		}
		cw := geom.Width - 20
		if placement.Width != cw {
			t.Fatalf("expected content width %v, got %v", cw, placement.Width)
		}
		want := float64(h) * cw / float64(w)
		if math.Abs(placement.Height-want) > 1e-9 {
			t.Fatalf("expected height %v, got %v", want, placement.Height)
		}
		if placement.X != 10 || placement.Y != 10 {
			t.Fatalf("expected origin at margin, got %+v", placement)
		}
	}
}

func TestGeometryFitRejectsEmptyBitmap(t *testing.T) {
	if _, err := DefaultGeometry().Fit(0, 100); KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewGeometry(t *testing.T) {
	geom, err := NewGeometry("letter", "1in")
	if err != nil {
		t.Fatalf("new geometry: %v", err)
	}
	if geom.Size != "LETTER" || math.Abs(geom.Margin-25.4) > 1e-9 {
		t.Fatalf("unexpected geometry %+v", geom)
	}
	if _, err := NewGeometry("B9", ""); KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error for unknown size")
	}
	if _, err := NewGeometry("A4", "200mm"); KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error for oversized margin")
	}
}

func TestParseLengthMM(t *testing.T) {
	cases := map[string]float64{
		"10":    10,
		"10mm":  10,
		"1cm":   10,
		"1in":   25.4,
		"72pt":  25.4,
		"96 px": 25.4,
	}
	for input, want := range cases {
		got, err := ParseLengthMM(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("parse %q: expected %v, got %v", input, want, got)
		}
	}
	if _, err := ParseLengthMM("3 parsecs"); err == nil {
		t.Fatalf("expected unit error")
	}
}
