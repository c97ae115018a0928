package reportcard

import (
	"github.com/noah-isme/sma-result-engine/internal/models"
)

type tableColumn struct {
	title string
	width float64
	align string
	value func(models.RenderSubject) string
}

// subjectColumns lays out Subject | components... | Total | Grade | Remark [| Cum.] across width.
func subjectColumns(data *models.RenderData, width float64) []tableColumn {
	withCumulative := data.Cumulative.TermCount > 0
	fixed := []tableColumn{
		{title: "Total", width: 0.08, align: "C", value: func(s models.RenderSubject) string { return formatScore(s.Total) }},
		{title: "Grade", width: 0.07, align: "C", value: func(s models.RenderSubject) string { return s.Grade }},
		{title: "Remark", width: 0.15, align: "L", value: func(s models.RenderSubject) string { return s.Remark }},
	}
	if withCumulative {
		fixed = append(fixed, tableColumn{title: "Cum.", width: 0.08, align: "C", value: func(s models.RenderSubject) string { return formatScore(s.CumulativeAverage) }})
	}

	share := 1.0 - 0.25
	for _, c := range fixed {
		share -= c.width
	}
	columns := []tableColumn{{title: "Subject", width: 0.25 * width, align: "L", value: func(s models.RenderSubject) string { return s.SubjectName }}}
	if n := len(data.Components); n > 0 {
		each := share / float64(n) * width
		for _, component := range data.Components {
			name := component.Name
			columns = append(columns, tableColumn{title: name, width: each, align: "C", value: func(s models.RenderSubject) string {
				score, ok := s.Scores[name]
				if !ok {
					return "-"
				}
				return formatScore(score)
			}})
		}
	} else {
		columns[0].width += share * width
	}
	for _, c := range fixed {
		c.width *= width
		columns = append(columns, c)
	}
	return columns
}

// drawSubjectTable writes the subject score table starting at (x, y) and
// returns the y coordinate below it. When breakPage is non-nil it is called
// before a row would cross the bottom margin and must return the new top y.
func drawSubjectTable(s Surface, data *models.RenderData, x, y, width, rowH, fontSize float64, breakPage func(y float64) (float64, bool)) float64 {
	columns := subjectColumns(data, width)

	header := func(y float64) {
		s.SetFont("B", fontSize)
		s.SetFillColor(colorNavy)
		s.SetTextColor(colorWhite)
		s.SetDrawColor(colorBlack)
		cx := x
		for _, c := range columns {
			s.Cell(cx, y, c.width, rowH, c.title, "C", true, true)
			cx += c.width
		}
	}

	header(y)
	y += rowH
	for i, subject := range data.Subjects {
		if breakPage != nil {
			if top, broke := breakPage(y + rowH); broke {
				y = top
				header(y)
				y += rowH
			}
		}
		s.SetFont("", fontSize)
		s.SetTextColor(colorBlack)
		fill := i%2 == 1
		if fill {
			s.SetFillColor(colorGrey)
		}
		cx := x
		for _, c := range columns {
			s.Cell(cx, y, c.width, rowH, c.value(subject), c.align, true, fill)
			cx += c.width
		}
		y += rowH
	}
	return y
}
