package models

import "sort"

// CumulativeMethod selects how period totals fold into a cumulative figure.
type CumulativeMethod string

const (
	CumulativeSimpleAverage      CumulativeMethod = "simple_average"
	CumulativeWeightedAverage    CumulativeMethod = "weighted_average"
	CumulativeProgressiveAverage CumulativeMethod = "progressive_average"
)

// Valid reports whether the method is one of the supported algorithms.
func (m CumulativeMethod) Valid() bool {
	switch m {
	case CumulativeSimpleAverage, CumulativeWeightedAverage, CumulativeProgressiveAverage:
		return true
	}
	return false
}

// ResultConfiguration holds per school+session result rules.
type ResultConfiguration struct {
	ID                 string                `db:"id" json:"id"`
	SchoolID           string                `db:"school_id" json:"school_id"`
	SessionID          string                `db:"session_id" json:"session_id"`
	CumulativeEnabled  bool                  `db:"cumulative_enabled" json:"cumulative_enabled"`
	CumulativeMethod   CumulativeMethod      `db:"cumulative_method" json:"cumulative_method"`
	ProgressiveWeights FloatList             `db:"progressive_weights" json:"progressive_weights,omitempty"`
	GradingScale       []GradingScaleEntry   `json:"grading_scale"`
	Components         []AssessmentComponent `json:"components"`
	Periods            []ResultPeriod        `json:"periods"`
}

// Period returns the configured period with the given id.
func (c *ResultConfiguration) Period(id string) (*ResultPeriod, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Periods {
		if c.Periods[i].ID == id {
			return &c.Periods[i], true
		}
	}
	return nil, false
}

// NormalizePeriods orders the periods into the session schedule and renumbers
// them 1..n. Positive sequences keep their relative order; periods stored without
// one (zero or negative) follow in load order.
func (c *ResultConfiguration) NormalizePeriods() {
	if c == nil {
		return
	}
	sort.SliceStable(c.Periods, func(i, j int) bool {
		a, b := c.Periods[i].Sequence, c.Periods[j].Sequence
		if (a > 0) != (b > 0) {
			return a > 0
		}
		return a > 0 && a < b
	})
	for i := range c.Periods {
		c.Periods[i].Sequence = i + 1
	}
}

// PeriodsBefore returns the periods scheduled ahead of the given one, in order.
func (c *ResultConfiguration) PeriodsBefore(id string) []ResultPeriod {
	current, ok := c.Period(id)
	if !ok {
		return nil
	}
	var prior []ResultPeriod
	for _, p := range c.Periods {
		if p.ID != id && p.Sequence < current.Sequence {
			prior = append(prior, p)
		}
	}
	return prior
}

// Component returns the configured assessment component with the given id.
func (c *ResultConfiguration) Component(id string) (*AssessmentComponent, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Components {
		if c.Components[i].ID == id {
			return &c.Components[i], true
		}
	}
	return nil, false
}

// GradingScaleEntry maps an inclusive score range onto a grade letter.
type GradingScaleEntry struct {
	ID              string  `db:"id" json:"id"`
	ConfigurationID string  `db:"configuration_id" json:"configuration_id"`
	MinScore        float64 `db:"min_score" json:"min_score"`
	MaxScore        float64 `db:"max_score" json:"max_score"`
	Grade           string  `db:"grade" json:"grade"`
	Remark          string  `db:"remark" json:"remark"`
	Position        int     `db:"position" json:"position"`
}

// AssessmentComponent is one graded input such as CA1 or Exam.
type AssessmentComponent struct {
	ID              string  `db:"id" json:"id"`
	ConfigurationID string  `db:"configuration_id" json:"configuration_id"`
	Name            string  `db:"name" json:"name"`
	MaxScore        float64 `db:"max_score" json:"max_score"`
	Position        int     `db:"position" json:"position"`
}

// ResultPeriod is a grading window (term) inside a session.
type ResultPeriod struct {
	ID              string   `db:"id" json:"id"`
	ConfigurationID string   `db:"configuration_id" json:"configuration_id"`
	Name            string   `db:"name" json:"name"`
	Sequence        int      `db:"sequence" json:"sequence"`
	Weight          *float64 `db:"weight" json:"weight,omitempty"`
}

// EffectiveWeight returns the period weight, defaulting to 1 when unset.
func (p ResultPeriod) EffectiveWeight() float64 {
	if p.Weight == nil {
		return 1
	}
	return *p.Weight
}
