package reportcard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-result-engine/internal/models"
)

// Layout names the stage that produced a document.
type Layout string

const (
	LayoutTemplate Layout = "template"
	LayoutFallback Layout = "fallback"
)

const defaultFooter = "This report card is computer generated."

// MediaLoader fetches stored images. The returned type is a hint from the store;
// the renderer sniffs the bytes before drawing them.
type MediaLoader interface {
	Load(ctx context.Context, ref string) ([]byte, string, error)
}

// TemplateRenderError is the typed failure of the templated stage. It never
// leaves Render; it selects the generic layout instead.
type TemplateRenderError struct {
	TemplateID string
	ElementID  string
	Err        error
}

func (e *TemplateRenderError) Error() string {
	if e.ElementID != "" {
		return fmt.Sprintf("template %s element %s: %v", e.TemplateID, e.ElementID, e.Err)
	}
	return fmt.Sprintf("template %s: %v", e.TemplateID, e.Err)
}

func (e *TemplateRenderError) Unwrap() error { return e.Err }

// Document is a rendered report card.
type Document struct {
	Data   []byte
	Layout Layout
	// TemplateErr is set when a template was supplied but could not be drawn.
	TemplateErr *TemplateRenderError
}

// Options tunes the renderer.
type Options struct {
	FooterText string
	Surface    SurfaceFactory
}

// Renderer draws report cards, falling back to a generic layout when a
// school template cannot be rendered.
type Renderer struct {
	media      MediaLoader
	footer     string
	newSurface SurfaceFactory
	logger     *zap.Logger
}

// NewRenderer constructs a Renderer. media may be nil, in which case image
// elements fail the templated stage and the fallback omits the logo.
func NewRenderer(media MediaLoader, opts Options, logger *zap.Logger) *Renderer {
	if opts.Surface == nil {
		opts.Surface = NewPDFSurface
	}
	if opts.FooterText == "" {
		opts.FooterText = defaultFooter
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{media: media, footer: opts.FooterText, newSurface: opts.Surface, logger: logger}
}

// Render produces the report card for data. A nil template or one that fails to
// draw yields the generic layout; only a failure of the generic layout is returned.
func (r *Renderer) Render(ctx context.Context, tpl *models.ResultTemplate, data *models.RenderData) (*Document, error) {
	if data == nil {
		return nil, errors.New("render data required")
	}
	var stageErr *TemplateRenderError
	if tpl != nil {
		out, err := r.renderTemplate(ctx, tpl, data)
		if err == nil {
			return &Document{Data: out, Layout: LayoutTemplate}, nil
		}
		stageErr = err
		r.logger.Warn("report template failed, using generic layout",
			zap.String("template_id", err.TemplateID),
			zap.String("element_id", err.ElementID),
			zap.Error(err.Err))
	}

	out, err := r.renderFallback(ctx, data, true)
	if err != nil {
		r.logger.Warn("generic layout failed, retrying without images",
			zap.String("student_id", data.Student.ID), zap.Error(err))
		out, err = r.renderFallback(ctx, data, false)
	}
	if err != nil {
		return nil, fmt.Errorf("render generic report card: %w", err)
	}
	return &Document{Data: out, Layout: LayoutFallback, TemplateErr: stageErr}, nil
}

func (r *Renderer) loadImage(ctx context.Context, data *models.RenderData, src string) ([]byte, string, error) {
	ref := src
	switch src {
	case "school.logo":
		if data.School.LogoRef == nil {
			return nil, "", errors.New("school has no logo")
		}
		ref = *data.School.LogoRef
	case "student.photo":
		if data.Student.PhotoRef == nil {
			return nil, "", errors.New("student has no photo")
		}
		ref = *data.Student.PhotoRef
	}
	if ref == "" {
		return nil, "", errors.New("image source missing")
	}
	if r.media == nil {
		return nil, "", errors.New("no media store configured")
	}
	img, _, err := r.media.Load(ctx, ref)
	if err != nil {
		return nil, "", err
	}
	imageType, err := imageTypeOf(img)
	if err != nil {
		return nil, "", fmt.Errorf("image %s: %w", ref, err)
	}
	return img, imageType, nil
}

// imageTypeOf sniffs the encoded image and names it the way gofpdf expects.
// gofpdf stops drawing the whole document on a bad image, so bytes that do not
// decode are rejected here.
func imageTypeOf(img []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	switch format {
	case "png":
		return "PNG", nil
	case "jpeg":
		return "JPG", nil
	case "gif":
		return "GIF", nil
	}
	return "", fmt.Errorf("unsupported image format %q", format)
}
