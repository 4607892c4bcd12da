package qconnect

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"

	"gradeway-backend/lib/htmlutil"
	"gradeway-backend/lib/textutil"
)

// courseMatchThreshold is low enough to absorb whitespace and
// punctuation drift between scrapes but high enough that "ALGEBRA II"
// does not match "BIOLOGY".
const courseMatchThreshold = 0.82

// bestCourseMatch finds the course whose name best matches query.
// An exact normalized match wins outright; otherwise the highest
// Jaro-Winkler similarity above the threshold does.
func bestCourseMatch(courses []CourseRecord, query string) (int, bool) {
	normalized := textutil.NormalizeName(query)
	if normalized == "" {
		return 0, false
	}

	bestIdx := -1
	bestScore := 0.0
	for i, course := range courses {
		candidate := textutil.NormalizeName(course.Name)
		if candidate == normalized {
			return i, true
		}
		score := matchr.JaroWinkler(normalized, candidate, false)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestScore < courseMatchThreshold {
		return 0, false
	}
	return bestIdx, true
}

var scoreRegex = regexp.MustCompile(`^\d+(\.\d+)?\s*/\s*\d+(\.\d+)?$|^\d+(\.\d+)?\s*%$`)
var dueDateRegex = regexp.MustCompile(`^\d{1,2}/\d{1,2}(/\d{2,4})?$`)

var assignmentHeaderLabels = map[string]int{
	"assignment": 0,
	"name":       0,
	"category":   1,
	"type":       1,
	"score":      2,
	"points":     2,
	"grade":      2,
	"due":        3,
	"due date":   3,
	"date":       3,
}

// extractAssignments reads the course detail view's assignment table.
// The portal renders it with a header row on some deployments and
// without one on others, so column mapping is by header when present
// and by cell shape when not.
func extractAssignments(snap *PageSnapshot) []Assignment {
	assignments := []Assignment{}

	snap.Doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 3 {
			return
		}

		texts := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			texts = append(texts, htmlutil.CleanText(cell.Text()))
		})

		if isAssignmentHeader(texts) {
			return
		}

		assignment := Assignment{Name: texts[0]}
		if assignment.Name == "" || letterGradeRegex.MatchString(assignment.Name) {
			return
		}
		for _, text := range texts[1:] {
			switch {
			case assignment.DueDate == "" && dueDateRegex.MatchString(text):
				assignment.DueDate = text
			case assignment.Score == "" && scoreRegex.MatchString(text):
				assignment.Score = text
			case assignment.Category == "" && text != "":
				assignment.Category = text
			}
		}
		// a name alone is a layout row, not an assignment
		if assignment.Score == "" && assignment.DueDate == "" {
			return
		}
		assignments = append(assignments, assignment)
	})

	return assignments
}

func isAssignmentHeader(texts []string) bool {
	hits := 0
	for _, text := range texts {
		if _, ok := assignmentHeaderLabels[strings.ToLower(text)]; ok {
			hits++
		}
	}
	return hits >= 2
}
