package reportcard

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-result-engine/internal/models"
)

const (
	margin       = 10.0
	headerHeight = 32.0
	footerSpace  = 22.0
)

type fallbackPage struct {
	r       *Renderer
	s       Surface
	data    *models.RenderData
	width   float64
	height  float64
	content float64
	images  bool
}

// renderFallback draws the generic layout straight from data: header band,
// info panel, subject table, summary band and footer. Without images the
// header is drawn text only.
func (r *Renderer) renderFallback(ctx context.Context, data *models.RenderData, images bool) ([]byte, error) {
	s := r.newSurface(false)
	w, h := s.PageSize()
	p := &fallbackPage{r: r, s: s, data: data, width: w, height: h, content: w - 2*margin, images: images}

	p.newPage()
	y := p.header(ctx)
	y = p.infoPanel(y + 4)
	y = drawSubjectTable(s, data, margin, y+4, p.content, 7, 9, p.breakIfNeeded)
	y = p.summary(y + 4)
	y = p.traits(y + 4)
	y = p.comments(y + 4)
	p.gradingKey(y + 2)

	if err := s.Err(); err != nil {
		return nil, err
	}
	return s.Bytes()
}

func (p *fallbackPage) newPage() float64 {
	p.s.AddPage()
	p.footer()
	return margin + 5
}

func (p *fallbackPage) breakIfNeeded(bottom float64) (float64, bool) {
	if bottom <= p.height-footerSpace {
		return 0, false
	}
	return p.newPage(), true
}

func (p *fallbackPage) ensure(y, needed float64) float64 {
	if top, broke := p.breakIfNeeded(y + needed); broke {
		return top
	}
	return y
}

func (p *fallbackPage) header(ctx context.Context) float64 {
	s, school := p.s, p.data.School
	s.SetFillColor(styleColor(school.PrimaryColor, colorNavy))
	s.Rect(0, 0, p.width, headerHeight, true, false)

	textX := margin
	if p.images && school.LogoRef != nil {
		img, imageType, err := p.r.loadImage(ctx, p.data, "school.logo")
		if err == nil {
			s.Image("fallback:logo", img, imageType, margin, 5, 22, 22)
			textX = margin + 26
		} else {
			p.r.logger.Debug("school logo skipped", zap.String("school_id", school.ID), zap.Error(err))
		}
	}
	textW := p.width - textX - margin

	s.SetTextColor(colorWhite)
	s.SetFont("B", 16)
	s.Cell(textX, 4, textW, 8, strings.ToUpper(school.Name), "C", false, false)
	s.SetFont("", 9)
	s.Cell(textX, 12, textW, 5, school.Address, "C", false, false)
	if school.Motto != "" {
		s.SetFont("I", 9)
		s.Cell(textX, 17, textW, 5, school.Motto, "C", false, false)
	}
	s.SetFont("B", 11)
	title := "STUDENT REPORT CARD"
	if p.data.Period.Name != "" {
		title = fmt.Sprintf("%s - %s %s", title, strings.ToUpper(p.data.Period.Name), p.data.Session.Name)
	}
	s.Cell(textX, 23, textW, 6, title, "C", false, false)
	return headerHeight
}

func (p *fallbackPage) infoPanel(y float64) float64 {
	s, d := p.s, p.data
	rows := [][2][2]string{
		{{"Name", d.Student.FullName}, {"Session", d.Session.Name}},
		{{"Admission No", d.Student.AdmissionNo}, {"Period", d.Period.Name}},
		{{"Class", d.Class.ClassName}, {"Position", positionText(d.Summary)}},
		{{"Gender", d.Student.Gender}, {"Attendance", attendanceText(d.Attendance)}},
	}
	rowH := 6.0
	s.SetFillColor(colorGrey)
	s.Rect(margin, y, p.content, rowH*float64(len(rows))+2, true, false)
	s.SetTextColor(colorBlack)
	half := p.content / 2
	for i, row := range rows {
		ry := y + 1 + float64(i)*rowH
		for col, pair := range row {
			cx := margin + 2 + float64(col)*half
			s.SetFont("B", 9)
			s.Cell(cx, ry, 28, rowH, pair[0]+":", "L", false, false)
			s.SetFont("", 9)
			s.Cell(cx+28, ry, half-32, rowH, pair[1], "L", false, false)
		}
	}
	return y + rowH*float64(len(rows)) + 2
}

func (p *fallbackPage) summary(y float64) float64 {
	s, d := p.s, p.data
	height := 9.0
	if d.Cumulative.TermCount > 0 {
		height = 16
	}
	y = p.ensure(y, height)
	s.SetFillColor(colorGrey)
	s.SetDrawColor(colorNavy)
	s.Rect(margin, y, p.content, height, true, true)
	s.SetTextColor(colorBlack)
	s.SetFont("B", 10)
	grade := d.Summary.OverallGrade
	if d.Summary.OverallRemark != "" {
		grade = fmt.Sprintf("%s (%s)", grade, d.Summary.OverallRemark)
	}
	line := fmt.Sprintf("Total: %s    Average: %s    Grade: %s    Position: %s",
		formatScore(d.Summary.TotalScore), formatScore(d.Summary.Average), grade, positionText(d.Summary))
	s.Cell(margin+2, y+1, p.content-4, 7, line, "C", false, false)
	if d.Cumulative.TermCount > 0 {
		s.SetFont("", 9)
		cumulative := fmt.Sprintf("Cumulative over %d terms: previous total %s, cumulative average %s",
			d.Cumulative.TermCount, formatScore(d.Cumulative.PreviousTotal), formatScore(d.Cumulative.Average))
		s.Cell(margin+2, y+8, p.content-4, 7, cumulative, "C", false, false)
	}
	return y + height
}

func (p *fallbackPage) traits(y float64) float64 {
	groups := []struct {
		title  string
		values models.JSONMap
	}{
		{"Affective Domain", p.data.Affective},
		{"Psychomotor Skills", p.data.Psychomotor},
	}
	s := p.s
	half := p.content / 2
	tallest := y
	for col, group := range groups {
		if len(group.values) == 0 {
			continue
		}
		keys := make([]string, 0, len(group.values))
		for k := range group.values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		cy := p.ensure(y, 6*float64(len(keys)+1))
		if cy < y {
			// moved to a new page; start both columns there
			y, tallest = cy, cy
		}
		cx := margin + float64(col)*half
		s.SetFont("B", 9)
		s.SetTextColor(colorBlack)
		s.Cell(cx, cy, half-4, 6, group.title, "L", false, false)
		cy += 6
		s.SetFont("", 9)
		for _, k := range keys {
			s.Cell(cx, cy, half*0.6, 5, k, "L", true, false)
			s.Cell(cx+half*0.6, cy, half*0.4-4, 5, group.values[k], "C", true, false)
			cy += 5
		}
		if cy > tallest {
			tallest = cy
		}
	}
	return tallest
}

func (p *fallbackPage) comments(y float64) float64 {
	s, d := p.s, p.data
	entries := [][2]string{
		{"Class Teacher's Comment", d.Comments.Teacher},
		{"Principal's Comment", d.Comments.Principal},
	}
	for _, e := range entries {
		if e[1] == "" {
			continue
		}
		y = p.ensure(y, 12)
		s.SetFont("B", 9)
		s.SetTextColor(colorBlack)
		s.Cell(margin, y, p.content, 5, e[0]+":", "L", false, false)
		s.SetFont("I", 9)
		s.Cell(margin, y+5, p.content, 6, e[1], "L", false, false)
		s.Line(margin, y+11, margin+p.content, y+11)
		y += 13
	}
	return y
}

func (p *fallbackPage) gradingKey(y float64) {
	if len(p.data.GradingScale) == 0 {
		return
	}
	y = p.ensure(y, 6)
	p.s.SetFont("", 7)
	p.s.SetTextColor(colorBlack)
	p.s.Cell(margin, y, p.content, 5, "Grading key: "+gradingKey(p.data), "L", false, false)
}

func (p *fallbackPage) footer() {
	s := p.s
	y := p.height - 14
	s.SetDrawColor(colorNavy)
	s.Line(margin, y, p.width-margin, y)
	s.SetFont("I", 8)
	s.SetTextColor(colorBlack)
	s.Cell(margin, y+1, p.content, 5, p.r.footer, "C", false, false)
	if p.data.School.Name != "" {
		s.Cell(margin, y+6, p.content, 5, p.data.School.Name, "C", false, false)
	}
}

func positionText(summary models.ReportSummary) string {
	if summary.Position <= 0 {
		return "-"
	}
	return fmt.Sprintf("%s of %d", Ordinal(summary.Position), summary.StudentsInClass)
}

func attendanceText(a models.AttendanceSummary) string {
	if a.DaysOpened == 0 {
		return "-"
	}
	return fmt.Sprintf("%d of %d days", a.Present, a.DaysOpened)
}
