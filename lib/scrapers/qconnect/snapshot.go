package qconnect

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/ysmood/gson"
)

// GradeCell is a grade-looking cell somewhere on the page, located by
// its bounding box top and horizontal center.
type GradeCell struct {
	Text       string
	X          float64
	Y          float64
	Background string
}

// QuarterColumn records where a quarter header sits horizontally.
type QuarterColumn struct {
	Quarter Quarter
	X       float64
}

// CourseBlock is a 3-row table holding course name / period / teacher,
// located by its vertical position. The portal renders these in
// structurally separate tables from the grades themselves; pixel
// position is the only join key between the two.
type CourseBlock struct {
	Name    string
	Period  string
	Teacher string
	Y       float64
}

// PageSnapshot is an immutable capture of a loaded grades page: the
// rendered DOM plus the geometry of everything that looks like grade
// data. All extraction strategies are pure functions over a snapshot,
// so they can be exercised against fixtures without a browser.
type PageSnapshot struct {
	URL            string
	Doc            *goquery.Document
	BodyText       string
	GradeCells     []GradeCell
	QuarterColumns []QuarterColumn
	CourseBlocks   []CourseBlock
}

// NewSnapshot parses fixture HTML into a snapshot with no geometry.
// Geometry fields can be filled in directly by the caller.
func NewSnapshot(html string) (*PageSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &PageSnapshot{
		Doc:      doc,
		BodyText: doc.Text(),
	}, nil
}

// geometryJS gathers, in a single round trip, everything position-based
// extraction needs: grade-letter cells with coordinates and computed
// background, quarter header centers, and 3-row course info blocks.
const geometryJS = `() => {
	const gradeRe = /^[A-F][+-]?$/;
	const quarterRe = /^Q[1-4]$/;
	const center = (r) => r.left + r.width / 2;
	const out = { gradeCells: [], quarterHeaders: [], courseBlocks: [] };

	for (const cell of document.querySelectorAll("td, th")) {
		const text = (cell.innerText || "").trim();
		const rect = cell.getBoundingClientRect();
		if (gradeRe.test(text)) {
			out.gradeCells.push({
				text: text,
				x: center(rect),
				y: rect.top,
				bg: getComputedStyle(cell).backgroundColor,
			});
		} else if (quarterRe.test(text)) {
			out.quarterHeaders.push({ label: text, x: center(rect) });
		}
	}

	const nameRe = /^[A-Z][A-Z0-9&/\-. ]{4,}$/;
	const periodRe = /Period\s*\d+/i;
	const teacherRe = /^[A-Z][A-Za-z.'\-]+,?\s+[A-Z]/;
	for (const table of document.querySelectorAll("table")) {
		const rows = table.rows;
		if (!rows || rows.length !== 3) continue;
		const texts = Array.from(rows).map((r) => (r.innerText || "").trim());
		if (!nameRe.test(texts[0])) continue;
		if (!periodRe.test(texts[1])) continue;
		if (!teacherRe.test(texts[2])) continue;
		out.courseBlocks.push({
			name: texts[0],
			period: texts[1],
			teacher: texts[2],
			y: table.getBoundingClientRect().top,
		});
	}
	return out;
}`

// CaptureSnapshot freezes the current state of the page. Nothing after
// this touches the browser, so a page that disappears mid-extraction
// cannot lose us work.
func CaptureSnapshot(ctx context.Context, page *rod.Page) (*PageSnapshot, error) {
	page = page.Context(ctx)

	html, err := page.HTML()
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	snapshot := &PageSnapshot{Doc: doc}

	info, err := page.Info()
	if err == nil {
		snapshot.URL = info.URL
	}

	bodyText, err := page.Eval(`() => document.body ? document.body.innerText : ""`)
	if err == nil {
		snapshot.BodyText = bodyText.Value.Str()
	} else {
		snapshot.BodyText = doc.Text()
	}

	geometry, err := page.Eval(geometryJS)
	if err != nil {
		// geometry is only needed by the lowest-confidence strategy;
		// the DOM-based strategies still have everything they need
		return snapshot, nil
	}

	var val gson.JSON = geometry.Value
	for _, cell := range val.Get("gradeCells").Arr() {
		snapshot.GradeCells = append(snapshot.GradeCells, GradeCell{
			Text:       cell.Get("text").Str(),
			X:          cell.Get("x").Num(),
			Y:          cell.Get("y").Num(),
			Background: cell.Get("bg").Str(),
		})
	}
	seen := map[Quarter]bool{}
	for _, header := range val.Get("quarterHeaders").Arr() {
		quarter := Quarter(header.Get("label").Str())
		if quarterIndex(quarter) < 0 || seen[quarter] {
			continue
		}
		seen[quarter] = true
		snapshot.QuarterColumns = append(snapshot.QuarterColumns, QuarterColumn{
			Quarter: quarter,
			X:       header.Get("x").Num(),
		})
	}
	for _, block := range val.Get("courseBlocks").Arr() {
		snapshot.CourseBlocks = append(snapshot.CourseBlocks, CourseBlock{
			Name:    block.Get("name").Str(),
			Period:  block.Get("period").Str(),
			Teacher: block.Get("teacher").Str(),
			Y:       block.Get("y").Num(),
		})
	}

	return snapshot, nil
}
