// Package qconnect scrapes grade data out of the district's legacy
// student portal. The portal has no API: it is a server-rendered,
// AJAX-heavy app that actively blocks automation, opens extra windows
// during login, and renders its gradebook as visually-positioned
// tables with no semantic markup. Everything in here is therefore
// heuristic by necessity; the strategies are ordered by how much
// structure they assume, and the scraper degrades to partial output
// instead of failing outright wherever it can.
package qconnect

import (
	"encoding/json"
	"fmt"
)

type Quarter string

const (
	Q1 Quarter = "Q1"
	Q2 Quarter = "Q2"
	Q3 Quarter = "Q3"
	Q4 Quarter = "Q4"
)

var Quarters = []Quarter{Q1, Q2, Q3, Q4}

// QuarterGrade is one quarter column of a course row. An empty Letter
// means the portal showed no grade for that quarter; it serializes as
// null to match what the dashboard expects.
type QuarterGrade struct {
	Quarter   Quarter `json:"quarter"`
	Letter    string  `json:"-"`
	IsCurrent bool    `json:"isCurrent"`
}

func (g QuarterGrade) MarshalJSON() ([]byte, error) {
	var letter *string
	if g.Letter != "" {
		letter = &g.Letter
	}
	return json.Marshal(struct {
		Quarter   Quarter `json:"quarter"`
		Letter    *string `json:"letter"`
		IsCurrent bool    `json:"isCurrent"`
	}{g.Quarter, letter, g.IsCurrent})
}

func (g *QuarterGrade) UnmarshalJSON(data []byte) error {
	var raw struct {
		Quarter   Quarter `json:"quarter"`
		Letter    *string `json:"letter"`
		IsCurrent bool    `json:"isCurrent"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.Quarter = raw.Quarter
	g.IsCurrent = raw.IsCurrent
	g.Letter = ""
	if raw.Letter != nil {
		g.Letter = *raw.Letter
	}
	return nil
}

// CourseRecord identity is by name; same-named instances (the same
// class in two periods) get merged by unioning non-empty grade slots.
type CourseRecord struct {
	Name    string         `json:"name"`
	Period  string         `json:"period"`
	Teacher string         `json:"teacher"`
	Grades  []QuarterGrade `json:"grades"`
}

func emptyGrades() []QuarterGrade {
	grades := make([]QuarterGrade, len(Quarters))
	for i, q := range Quarters {
		grades[i] = QuarterGrade{Quarter: q}
	}
	return grades
}

func quarterIndex(q Quarter) int {
	for i, known := range Quarters {
		if known == q {
			return i
		}
	}
	return -1
}

// MissingAssignment is kept in the output contract even though
// detection is disabled (see extractMissingAssignments).
type MissingAssignment struct {
	Name    string `json:"name"`
	Course  string `json:"course"`
	Teacher string `json:"teacher"`
	DueDate string `json:"dueDate"`
}

// ScrapeResult is the terminal output of one scrape. It is never
// partial: either a best-effort course list with Success set, or an
// explicit error. Public entry points never return Go errors; every
// failure mode lands here as data.
type ScrapeResult struct {
	Success            bool                `json:"success"`
	Courses            []CourseRecord      `json:"courses"`
	MissingAssignments []MissingAssignment `json:"missingAssignments"`
	StudentName        string              `json:"studentName"`
	School             string              `json:"school"`
	Error              string              `json:"error,omitempty"`
	// BadCredentials lets the dashboard prompt for re-entry instead
	// of showing a generic failure.
	BadCredentials bool `json:"badCredentials,omitempty"`
}

// Assignment is one row of a course's detail view.
type Assignment struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Score    string `json:"score"`
	DueDate  string `json:"dueDate"`
}

type CourseDetailsResult struct {
	Success        bool          `json:"success"`
	Course         *CourseRecord `json:"course,omitempty"`
	Assignments    []Assignment  `json:"assignments"`
	Error          string        `json:"error,omitempty"`
	BadCredentials bool          `json:"badCredentials,omitempty"`
}

var ErrFormNotFound = fmt.Errorf("could not locate the login form, the portal's markup may have changed")
var ErrBadCredentials = fmt.Errorf("the portal rejected the login, please check your username and password")
