package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Template element types produced by the report-card editor.
const (
	ElementText  = "text"
	ElementField = "field"
	ElementTable = "table"
	ElementImage = "image"
	ElementRect  = "rect"
	ElementLine  = "line"
)

// ResultTemplate is a school-authored report card layout.
type ResultTemplate struct {
	ID        string           `db:"id" json:"id"`
	SchoolID  string           `db:"school_id" json:"school_id"`
	Name      string           `db:"name" json:"name"`
	LevelID   *string          `db:"level_id" json:"level_id,omitempty"`
	PeriodID  *string          `db:"period_id" json:"period_id,omitempty"`
	IsDefault bool             `db:"is_default" json:"is_default"`
	Content   TemplateDocument `db:"content" json:"content"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// TemplateContent is the editor document: a canvas and its positioned elements.
type TemplateContent struct {
	Canvas   Canvas            `json:"canvas"`
	Elements []TemplateElement `json:"elements"`
}

// Canvas is the editor surface size in editor pixels.
type Canvas struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Landscape reports whether the canvas is wider than tall.
func (c Canvas) Landscape() bool {
	return c.Width > c.Height
}

// TemplateElement is one positioned box on the canvas.
type TemplateElement struct {
	ID     string       `json:"id"`
	Type   string       `json:"type"`
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Text   string       `json:"text,omitempty"`
	Field  string       `json:"field,omitempty"`
	Src    string       `json:"src,omitempty"`
	Page   int          `json:"page,omitempty"`
	Style  ElementStyle `json:"style"`
}

// ElementStyle carries the visual attributes of an element.
type ElementStyle struct {
	FontSize float64 `json:"fontSize,omitempty"`
	Bold     bool    `json:"bold,omitempty"`
	Italic   bool    `json:"italic,omitempty"`
	Align    string  `json:"align,omitempty"`
	Color    string  `json:"color,omitempty"`
	Fill     string  `json:"fill,omitempty"`
	Border   bool    `json:"border,omitempty"`
}

// TemplateDocument is the editor JSON exactly as stored. It is decoded only when
// rendering, so a malformed document degrades to the generic layout instead of
// failing the template lookup.
type TemplateDocument json.RawMessage

// NewTemplateDocument encodes content for persistence.
func NewTemplateDocument(content TemplateContent) (TemplateDocument, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("marshal template content: %w", err)
	}
	return data, nil
}

// Decode parses the stored document.
func (d TemplateDocument) Decode() (TemplateContent, error) {
	var out TemplateContent
	if len(d) == 0 {
		return out, fmt.Errorf("template content is empty")
	}
	if err := json.Unmarshal(d, &out); err != nil {
		return TemplateContent{}, fmt.Errorf("decode template content: %w", err)
	}
	return out, nil
}

// MarshalJSON writes the stored document through unchanged.
func (d TemplateDocument) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return json.RawMessage(d).MarshalJSON()
}

// UnmarshalJSON keeps the incoming document verbatim.
func (d *TemplateDocument) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = nil
		return nil
	}
	*d = append(TemplateDocument(nil), data...)
	return nil
}

// Value persists the raw document.
func (d TemplateDocument) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	return []byte(d), nil
}

// Scan copies the JSONB bytes without interpreting them.
func (d *TemplateDocument) Scan(value interface{}) error {
	data, err := jsonBytes(value, "TemplateDocument")
	if err != nil {
		return err
	}
	*d = append(TemplateDocument(nil), data...)
	return nil
}

// TemplateCriteria is one specificity tier used when looking up a template.
type TemplateCriteria struct {
	LevelID     *string
	PeriodID    *string
	DefaultOnly bool
}
