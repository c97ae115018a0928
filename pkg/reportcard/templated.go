package reportcard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/noah-isme/sma-result-engine/internal/models"
)

type box struct {
	x, y, w, h float64
}

func (r *Renderer) renderTemplate(ctx context.Context, tpl *models.ResultTemplate, data *models.RenderData) (out []byte, stageErr *TemplateRenderError) {
	current := ""
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			stageErr = &TemplateRenderError{TemplateID: tpl.ID, ElementID: current, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	fail := func(err error) *TemplateRenderError {
		return &TemplateRenderError{TemplateID: tpl.ID, ElementID: current, Err: err}
	}

	content, err := tpl.Content.Decode()
	if err != nil {
		return nil, fail(err)
	}
	canvas := content.Canvas
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return nil, fail(errors.New("canvas has no size"))
	}
	if len(content.Elements) == 0 {
		return nil, fail(errors.New("template has no elements"))
	}

	surface := r.newSurface(canvas.Landscape())
	pageW, pageH := surface.PageSize()
	sx, sy := pageW/canvas.Width, pageH/canvas.Height

	elements := content.Elements
	sort.SliceStable(elements, func(i, j int) bool { return pageOf(elements[i]) < pageOf(elements[j]) })

	page := 0
	for _, el := range elements {
		current = el.ID
		for page < pageOf(el) {
			surface.AddPage()
			page++
		}
		b := box{x: el.X * sx, y: el.Y * sy, w: el.Width * sx, h: el.Height * sy}
		if err := r.drawElement(ctx, surface, el, b, data); err != nil {
			return nil, fail(err)
		}
		if err := surface.Err(); err != nil {
			return nil, fail(err)
		}
	}
	current = ""

	doc, err := surface.Bytes()
	if err != nil {
		return nil, fail(err)
	}
	return doc, nil
}

func pageOf(el models.TemplateElement) int {
	if el.Page < 1 {
		return 1
	}
	return el.Page
}

func (r *Renderer) drawElement(ctx context.Context, s Surface, el models.TemplateElement, b box, data *models.RenderData) error {
	switch el.Type {
	case models.ElementText:
		text, err := ExpandText(data, el.Text)
		if err != nil {
			return err
		}
		drawStyledText(s, el.Style, b, text)
	case models.ElementField:
		if el.Field == "" {
			return errors.New("field element has no binding")
		}
		value, err := ResolveField(data, el.Field)
		if err != nil {
			return err
		}
		drawStyledText(s, el.Style, b, value)
	case models.ElementTable:
		if b.w <= 0 || b.h <= 0 {
			return errors.New("table element has no size")
		}
		fontSize := el.Style.FontSize
		if fontSize <= 0 {
			fontSize = 8
		}
		rowH := math.Min(7, b.h/float64(len(data.Subjects)+1))
		drawSubjectTable(s, data, b.x, b.y, b.w, rowH, fontSize, nil)
	case models.ElementImage:
		img, imageType, err := r.loadImage(ctx, data, el.Src)
		if err != nil {
			return fmt.Errorf("load image %q: %w", el.Src, err)
		}
		s.Image(el.ID+":"+el.Src, img, imageType, b.x, b.y, b.w, b.h)
	case models.ElementRect:
		fill := applyFill(s, el.Style.Fill)
		s.SetDrawColor(styleColor(el.Style.Color, colorBlack))
		s.Rect(b.x, b.y, b.w, b.h, fill, el.Style.Border || !fill)
	case models.ElementLine:
		s.SetDrawColor(styleColor(el.Style.Color, colorBlack))
		s.Line(b.x, b.y, b.x+b.w, b.y+b.h)
	default:
		return fmt.Errorf("unsupported element type %q", el.Type)
	}
	return nil
}

func drawStyledText(s Surface, style models.ElementStyle, b box, text string) {
	size := style.FontSize
	if size <= 0 {
		size = 10
	}
	fontStyle := ""
	if style.Bold {
		fontStyle += "B"
	}
	if style.Italic {
		fontStyle += "I"
	}
	s.SetFont(fontStyle, size)
	s.SetTextColor(styleColor(style.Color, colorBlack))
	fill := applyFill(s, style.Fill)

	w, h := b.w, b.h
	if w <= 0 {
		w = s.TextWidth(text) + 2
	}
	if h <= 0 {
		h = size * 0.5
	}
	s.Cell(b.x, b.y, w, h, text, cellAlign(style.Align), style.Border, fill)
}

func applyFill(s Surface, fill string) bool {
	if fill == "" {
		return false
	}
	c, ok := ParseColor(fill)
	if !ok {
		return false
	}
	s.SetFillColor(c)
	return true
}

func styleColor(raw string, fallback Color) Color {
	if c, ok := ParseColor(raw); ok {
		return c
	}
	return fallback
}

func cellAlign(align string) string {
	switch strings.ToLower(align) {
	case "center", "centre", "c":
		return "C"
	case "right", "r":
		return "R"
	default:
		return "L"
	}
}
