package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// Format is an output format of the render command.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
	FormatJSON Format = "json"
)

// Encode produces o in the given format. PDF and PNG need rsvg-convert
// (librsvg) on PATH.
func Encode(ctx context.Context, o Output, f Format, scale float64) ([]byte, error) {
	switch f {
	case FormatSVG, "":
		return ToSVG(o), nil
	case FormatJSON:
		return MarshalOutput(o)
	case FormatPDF:
		return ToPDF(ctx, ToSVG(o))
	case FormatPNG:
		return ToPNG(ctx, ToSVG(o), scale)
	}
	return nil, fmt.Errorf("unsupported format %q", f)
}

// ToPDF converts SVG bytes to PDF.
func ToPDF(ctx context.Context, svg []byte) ([]byte, error) {
	return convert(ctx, svg, FormatPDF)
}

// ToPNG converts SVG bytes to PNG. A scale of 2 doubles the resolution.
func ToPNG(ctx context.Context, svg []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = 1
	}
	return convert(ctx, svg, FormatPNG, "-z", strconv.FormatFloat(scale, 'f', 2, 64))
}

func convert(ctx context.Context, svg []byte, f Format, extra ...string) ([]byte, error) {
	if _, err := exec.LookPath("rsvg-convert"); err != nil {
		return nil, fmt.Errorf("%s export requires librsvg. Install with:\n  macOS:  brew install librsvg\n  Linux:  apt install librsvg2-bin", f)
	}

	cmd := exec.CommandContext(ctx, "rsvg-convert", append([]string{"-f", string(f)}, extra...)...)
	cmd.Stdin = bytes.NewReader(svg)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("rsvg-convert: %v: %s", err, stderr.String())
	}
	return out.Bytes(), nil
}
