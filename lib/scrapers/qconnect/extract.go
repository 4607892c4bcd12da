package qconnect

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gradeway-backend/lib/htmlutil"
	"gradeway-backend/lib/textutil"
)

var tracer = otel.Tracer("gradeway.lib.scrapers.qconnect")

var letterGradeRegex = regexp.MustCompile(`^[A-F][+-]?$`)

// letterToken pulls a grade letter out of a cell that may carry extra
// text like "B+ (88%)".
func letterToken(text string) string {
	for _, token := range strings.Fields(htmlutil.CleanText(text)) {
		if letterGradeRegex.MatchString(token) {
			return token
		}
	}
	return ""
}

// rows whose first cell is one of these are table furniture, not courses
var nonCourseLabels = map[string]bool{
	"grade":   true,
	"grades":  true,
	"period":  true,
	"teacher": true,
	"total":   true,
	"totals":  true,
	"course":  true,
	"class":   true,
	"student": true,
}

func isNonCourseLabel(text string) bool {
	return nonCourseLabels[textutil.NormalizeName(text)]
}

type ExtractOutput struct {
	Courses     []CourseRecord
	Strategy    string
	StudentName string
	School      string
}

type strategy struct {
	name string
	fn   func(snap *PageSnapshot, cfg Config) []CourseRecord
}

// strategies are ordered by decreasing structural confidence; the first
// one to produce at least one course wins. The ordering is part of the
// contract, not an accident of control flow.
func strategies() []strategy {
	return []strategy{
		{"labeled_table", extractLabeledTable},
		{"history_rows", extractHistoryRows},
		{"position_join", extractPositionJoin},
	}
}

func Extract(ctx context.Context, snap *PageSnapshot, cfg Config) ExtractOutput {
	cfg.defaults()

	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()

	out := ExtractOutput{}
	for _, s := range strategies() {
		courses := s.fn(snap, cfg)
		if len(courses) > 0 {
			out.Courses = courses
			out.Strategy = s.name
			break
		}
	}
	if len(out.Courses) == 0 {
		// surface at least course identity rather than nothing
		out.Courses = extractBlocksOnly(snap)
		out.Strategy = "blocks_only"
	}

	out.StudentName, out.School = extractIdentity(snap.BodyText)

	span.SetAttributes(
		attribute.String("strategy", out.Strategy),
		attribute.Int("courses", len(out.Courses)),
	)
	return out
}

// extractLabeledTable handles the friendly case: one table whose header
// row labels the quarter columns.
func extractLabeledTable(snap *PageSnapshot, cfg Config) []CourseRecord {
	var out []CourseRecord

	snap.Doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return true
		}

		columns := map[Quarter]int{}
		courseColumn := 0
		rows.First().Find("th, td").Each(func(j int, cell *goquery.Selection) {
			text := strings.ToUpper(htmlutil.CleanText(cell.Text()))
			if quarterIndex(Quarter(text)) >= 0 {
				if _, taken := columns[Quarter(text)]; !taken {
					columns[Quarter(text)] = j
				}
				return
			}
			if text == "COURSE" || text == "CLASS" {
				courseColumn = j
			}
		})
		if _, ok := columns[Q1]; !ok {
			return true
		}
		if _, ok := columns[Q2]; !ok {
			return true
		}

		var records []CourseRecord
		sawHighlight := false
		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("th, td")
			if cells.Length() <= courseColumn {
				return
			}
			name := htmlutil.CleanText(cells.Eq(courseColumn).Text())
			if name == "" || isNonCourseLabel(name) {
				return
			}

			record := CourseRecord{Name: name, Grades: emptyGrades()}
			found := false
			for quarter, column := range columns {
				if column >= cells.Length() {
					continue
				}
				cell := cells.Eq(column)
				letter := letterToken(cell.Text())
				if letter == "" {
					continue
				}
				i := quarterIndex(quarter)
				record.Grades[i].Letter = letter
				found = true
				if cellHighlighted(cell) {
					record.Grades[i].IsCurrent = true
					sawHighlight = true
				}
			}
			if found {
				records = append(records, record)
			}
		})

		if len(records) == 0 {
			return true
		}
		// only fall back to the configured current quarter when the
		// table gave no highlight signal at all
		if !sawHighlight {
			applyDefaultCurrent(records, cfg.CurrentQuarter)
		}
		out = mergeCourses(records)
		return false
	})

	return out
}

// applyDefaultCurrent flags the assumed current quarter, but only on
// courses that actually hold a grade there.
func applyDefaultCurrent(records []CourseRecord, current Quarter) {
	i := quarterIndex(current)
	if i < 0 {
		return
	}
	for r := range records {
		if records[r].Grades[i].Letter != "" {
			records[r].Grades[i].IsCurrent = true
		}
	}
}

// cellHighlighted detects the portal's "this is the active quarter"
// styling, which shows up as a class name, a bgcolor attribute, or an
// inline background style depending on the deployment.
func cellHighlighted(cell *goquery.Selection) bool {
	class, _ := cell.Attr("class")
	class = strings.ToLower(class)
	for _, marker := range []string{"current", "selected", "highlight", "active"} {
		if strings.Contains(class, marker) {
			return true
		}
	}
	if bgcolor, ok := cell.Attr("bgcolor"); ok && bgcolor != "" && !isWhiteish(bgcolor) {
		return true
	}
	if style, ok := cell.Attr("style"); ok {
		style = strings.ToLower(style)
		if i := strings.Index(style, "background"); i >= 0 && !isWhiteish(style[i:]) {
			return true
		}
	}
	return false
}

var historyCourseNameRegex = regexp.MustCompile(`^[A-Z][A-Za-z0-9&/\-. ]{5,}$`)

// extractHistoryRows handles the academic-history layout: one row per
// course, name first, a bare letter grade somewhere after it.
func extractHistoryRows(snap *PageSnapshot, cfg Config) []CourseRecord {
	var out []CourseRecord

	current := quarterIndex(cfg.CurrentQuarter)
	if current < 0 {
		current = quarterIndex(Q3)
	}

	snap.Doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("th, td")
		if cells.Length() < 2 {
			return
		}
		name := htmlutil.CleanText(cells.First().Text())
		if !historyCourseNameRegex.MatchString(name) || isNonCourseLabel(name) {
			return
		}

		for j := 1; j < cells.Length(); j++ {
			text := htmlutil.CleanText(cells.Eq(j).Text())
			if !letterGradeRegex.MatchString(text) {
				continue
			}
			record := CourseRecord{Name: name, Grades: emptyGrades()}
			record.Grades[current].Letter = text
			record.Grades[current].IsCurrent = true
			out = append(out, record)
			break
		}
	})

	return mergeCourses(out)
}

// extractBlocksOnly is the last-ditch scan: course info blocks with no
// grades at all, so the dashboard can at least show the schedule.
func extractBlocksOnly(snap *PageSnapshot) []CourseRecord {
	var out []CourseRecord
	for _, block := range snap.CourseBlocks {
		out = append(out, CourseRecord{
			Name:    block.Name,
			Period:  block.Period,
			Teacher: block.Teacher,
			Grades:  emptyGrades(),
		})
	}
	return mergeCourses(out)
}

var studentNameRegex = regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+ [A-Z][a-z]+\b`)
var schoolRegex = regexp.MustCompile(`\(([^()]*(?:CANYON|HIGH)[^()]*)\)`)

// extractIdentity is opportunistic; neither value is required for a
// scrape to count as successful.
func extractIdentity(bodyText string) (studentName, school string) {
	studentName = studentNameRegex.FindString(bodyText)
	groups := schoolRegex.FindStringSubmatch(bodyText)
	if len(groups) > 1 {
		school = strings.TrimSpace(groups[1])
	}
	return studentName, school
}

// extractMissingAssignments always returns an empty list. The previous
// body-text regex heuristic flagged assignments that were not actually
// missing, so detection is disabled until the portal exposes a signal
// that can be trusted. The typed empty result stays in the contract on
// purpose.
func extractMissingAssignments() []MissingAssignment {
	return []MissingAssignment{}
}
