package reportcard

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const fontFamily = "Helvetica"

// Color is an RGB triple.
type Color struct {
	R, G, B int
}

var (
	colorBlack = Color{0, 0, 0}
	colorWhite = Color{255, 255, 255}
	colorNavy  = Color{31, 58, 95}
	colorGrey  = Color{235, 238, 242}
)

// ParseColor reads #RRGGBB or #RGB.
func ParseColor(hex string) (Color, bool) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return Color{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, false
	}
	return Color{R: int(v >> 16 & 0xff), G: int(v >> 8 & 0xff), B: int(v & 0xff)}, true
}

// Surface is the drawing API both layouts are composed on. Coordinates are millimetres.
type Surface interface {
	AddPage()
	PageSize() (width, height float64)
	SetFont(style string, size float64)
	SetTextColor(c Color)
	SetFillColor(c Color)
	SetDrawColor(c Color)
	Cell(x, y, w, h float64, text, align string, border, fill bool)
	Rect(x, y, w, h float64, fill, border bool)
	Line(x1, y1, x2, y2 float64)
	Image(name string, data []byte, imageType string, x, y, w, h float64)
	TextWidth(text string) float64
	Err() error
	Bytes() ([]byte, error)
}

// SurfaceFactory creates an empty surface with the requested orientation.
type SurfaceFactory func(landscape bool) Surface

// PDFSurface draws on an A4 gofpdf document.
type PDFSurface struct {
	pdf       *gofpdf.Fpdf
	translate func(string) string
}

// NewPDFSurface creates an A4 document, landscape when requested.
func NewPDFSurface(landscape bool) Surface {
	orientation := "P"
	if landscape {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(false, 10)
	pdf.SetFont(fontFamily, "", 10)
	return &PDFSurface{pdf: pdf, translate: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (s *PDFSurface) AddPage() { s.pdf.AddPage() }

func (s *PDFSurface) PageSize() (float64, float64) { return s.pdf.GetPageSize() }

func (s *PDFSurface) SetFont(style string, size float64) {
	s.pdf.SetFont(fontFamily, style, size)
}

func (s *PDFSurface) SetTextColor(c Color) { s.pdf.SetTextColor(c.R, c.G, c.B) }

func (s *PDFSurface) SetFillColor(c Color) { s.pdf.SetFillColor(c.R, c.G, c.B) }

func (s *PDFSurface) SetDrawColor(c Color) { s.pdf.SetDrawColor(c.R, c.G, c.B) }

func (s *PDFSurface) Cell(x, y, w, h float64, text, align string, border, fill bool) {
	borderStr := ""
	if border {
		borderStr = "1"
	}
	if align == "" {
		align = "L"
	}
	s.pdf.SetXY(x, y)
	s.pdf.CellFormat(w, h, s.translate(text), borderStr, 0, align+"M", fill, 0, "")
}

func (s *PDFSurface) Rect(x, y, w, h float64, fill, border bool) {
	style := "D"
	switch {
	case fill && border:
		style = "FD"
	case fill:
		style = "F"
	}
	s.pdf.Rect(x, y, w, h, style)
}

func (s *PDFSurface) Line(x1, y1, x2, y2 float64) { s.pdf.Line(x1, y1, x2, y2) }

func (s *PDFSurface) Image(name string, data []byte, imageType string, x, y, w, h float64) {
	opts := gofpdf.ImageOptions{ImageType: imageType}
	s.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	s.pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
}

func (s *PDFSurface) TextWidth(text string) float64 {
	return s.pdf.GetStringWidth(s.translate(text))
}

// Err returns the first drawing error recorded by gofpdf.
func (s *PDFSurface) Err() error {
	if s.pdf.Err() {
		return s.pdf.Error()
	}
	return nil
}

// Bytes serialises the document.
func (s *PDFSurface) Bytes() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := s.pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
