package invoice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Page sizes in millimeters, portrait.
var pageSizesMM = map[string]struct {
	width  float64
	height float64
}{
	"A3":     {width: 297, height: 420},
	"A4":     {width: 210, height: 297},
	"A5":     {width: 148, height: 210},
	"LETTER": {width: 215.9, height: 279.4},
	"LEGAL":  {width: 215.9, height: 355.6},
}

const (
	DefaultPageSize = "A4"
	DefaultMarginMM = 10.0
)

// PageGeometry is the fixed portrait page layout in millimeters.
type PageGeometry struct {
	Size   string
	Width  float64
	Height float64
	Margin float64
}

// Placement is where the captured image lands on the page.
type Placement struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// DefaultGeometry returns A4 portrait with a 10mm margin.
func DefaultGeometry() PageGeometry {
	geom, _ := NewGeometry(DefaultPageSize, "")
	return geom
}

// NewGeometry resolves a named page size and a margin expressed as a length
// ("10mm", "1cm", "0.5in"). An empty margin uses the default.
func NewGeometry(size, margin string) (PageGeometry, error) {
	size = strings.ToUpper(strings.TrimSpace(size))
	if size == "" {
		size = DefaultPageSize
	}
	dims, ok := pageSizesMM[size]
	if !ok {
		return PageGeometry{}, NewError(KindValidation, fmt.Sprintf("unsupported page size: %s", size), nil)
	}
	marginMM := DefaultMarginMM
	if strings.TrimSpace(margin) != "" {
		parsed, err := ParseLengthMM(margin)
		if err != nil {
			return PageGeometry{}, err
		}
		marginMM = parsed
	}
	geom := PageGeometry{Size: size, Width: dims.width, Height: dims.height, Margin: marginMM}
	if geom.ContentWidth() <= 0 {
		return PageGeometry{}, NewError(KindValidation, fmt.Sprintf("margin %s leaves no content width", margin), nil)
	}
	return geom, nil
}

// ContentWidth is the page width minus both side margins.
func (g PageGeometry) ContentWidth() float64 {
	return g.Width - 2*g.Margin
}

// Fit scales a bitmap to the content width and lets height follow the
// aspect ratio. Height may exceed the page; overflow is not paginated.
func (g PageGeometry) Fit(bitmapWidth, bitmapHeight int) (Placement, error) {
	if bitmapWidth <= 0 || bitmapHeight <= 0 {
		return Placement{}, NewError(KindValidation, fmt.Sprintf("invalid bitmap size %dx%d", bitmapWidth, bitmapHeight), nil)
	}
	cw := g.ContentWidth()
	return Placement{
		X:      g.Margin,
		Y:      g.Margin,
		Width:  cw,
		Height: float64(bitmapHeight) * cw / float64(bitmapWidth),
	}, nil
}

var lengthPattern = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]*)\s*$`)

// ParseLengthMM parses a length with an optional unit into millimeters.
// A bare number is millimeters.
func ParseLengthMM(value string) (float64, error) {
	matches := lengthPattern.FindStringSubmatch(value)
	if len(matches) != 3 {
		return 0, NewError(KindValidation, fmt.Sprintf("invalid length: %s", value), nil)
	}

	amount, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, NewError(KindValidation, fmt.Sprintf("invalid length: %s", value), err)
	}

	switch unit := strings.ToLower(matches[2]); unit {
	case "", "mm":
		return amount, nil
	case "cm":
		return amount * 10, nil
	case "in":
		return amount * 25.4, nil
	case "pt":
		return amount * 25.4 / 72.0, nil
	case "px":
		return amount * 25.4 / 96.0, nil
	default:
		return 0, NewError(KindValidation, fmt.Sprintf("unsupported length unit: %s", unit), nil)
	}
}
