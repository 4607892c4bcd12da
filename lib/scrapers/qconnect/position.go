package qconnect

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// extractPositionJoin reconstructs course rows when the portal renders
// course metadata and grade values in disjoint DOM structures that only
// line up visually. A grade cell belongs to a course when their
// vertical positions are within the row tolerance; it belongs to a
// quarter when its horizontal center is within the column tolerance of
// that quarter's header. Pixel coordinates are the relational key.
func extractPositionJoin(snap *PageSnapshot, cfg Config) []CourseRecord {
	if len(snap.CourseBlocks) == 0 || len(snap.GradeCells) == 0 {
		return nil
	}

	var out []CourseRecord
	for _, block := range snap.CourseBlocks {
		var rowCells []GradeCell
		for _, cell := range snap.GradeCells {
			if math.Abs(cell.Y-block.Y) <= cfg.RowTolerancePx {
				rowCells = append(rowCells, cell)
			}
		}
		if len(rowCells) == 0 {
			continue
		}

		record := CourseRecord{
			Name:    block.Name,
			Period:  block.Period,
			Teacher: block.Teacher,
			Grades:  emptyGrades(),
		}

		found := false
		if len(snap.QuarterColumns) > 0 {
			for _, column := range snap.QuarterColumns {
				cell, ok := closestWithin(rowCells, column.X, cfg.ColTolerancePx)
				if !ok {
					continue
				}
				i := quarterIndex(column.Quarter)
				record.Grades[i].Letter = cell.Text
				record.Grades[i].IsCurrent = isHighlightColor(cell.Background)
				found = true
			}
		} else {
			// no quarter headers anywhere: take the four rightmost
			// cells on the row as Q1..Q4 in left-to-right order
			sort.Slice(rowCells, func(a, b int) bool {
				return rowCells[a].X < rowCells[b].X
			})
			if len(rowCells) > len(Quarters) {
				rowCells = rowCells[len(rowCells)-len(Quarters):]
			}
			for i, cell := range rowCells {
				record.Grades[i].Letter = cell.Text
				record.Grades[i].IsCurrent = isHighlightColor(cell.Background)
				found = true
			}
		}

		if found {
			out = append(out, record)
		}
	}

	return mergeCourses(out)
}

func closestWithin(cells []GradeCell, x, tolerance float64) (GradeCell, bool) {
	best := GradeCell{}
	bestDistance := tolerance
	found := false
	for _, cell := range cells {
		distance := math.Abs(cell.X - x)
		if distance <= bestDistance {
			best = cell
			bestDistance = distance
			found = true
		}
	}
	return best, found
}

var rgbColorRegex = regexp.MustCompile(`rgba?\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*(?:,\s*([0-9.]+)\s*)?\)`)

// isHighlightColor reports whether a computed background marks a cell
// as the active quarter. White, near-white and fully transparent are
// the portal's defaults; anything else counts as a highlight.
func isHighlightColor(color string) bool {
	color = strings.ToLower(strings.TrimSpace(color))
	if color == "" || color == "transparent" || color == "none" {
		return false
	}

	groups := rgbColorRegex.FindStringSubmatch(color)
	if groups != nil {
		r, _ := strconv.Atoi(groups[1])
		g, _ := strconv.Atoi(groups[2])
		b, _ := strconv.Atoi(groups[3])
		if groups[4] != "" {
			alpha, err := strconv.ParseFloat(groups[4], 64)
			if err == nil && alpha == 0 {
				return false
			}
		}
		return !(r >= 245 && g >= 245 && b >= 245)
	}

	return !isWhiteish(color)
}

// whiteishRegex needs the boundary after short hex so that a real
// highlight like #ffffcc is not mistaken for #fff.
var whiteishRegex = regexp.MustCompile(`(?i)#fff\b|#ffffff\b|\bwhite\b|\btransparent\b|\bnone\b|\binherit\b|\binitial\b`)

// isWhiteish covers the attribute/style spellings of "no highlight".
func isWhiteish(value string) bool {
	return whiteishRegex.MatchString(value)
}
