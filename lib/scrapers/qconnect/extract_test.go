package qconnect

import (
	"context"
	"testing"

	_ "embed"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/gradebook.html
var gradebookHTML string

//go:embed testdata/labeled_highlight.html
var labeledHighlightHTML string

//go:embed testdata/history.html
var historyHTML string

//go:embed testdata/blocked.html
var blockedHTML string

func testConfig() Config {
	cfg := Config{}
	cfg.defaults()
	return cfg
}

func TestExtractGradebook(t *testing.T) {
	snap, err := NewSnapshot(gradebookHTML)
	if err != nil {
		t.Fatal(err)
	}

	out := Extract(context.Background(), snap, testConfig())
	require.Equal(t, "labeled_table", out.Strategy)
	require.Equal(t, "John Michael Doe", out.StudentName)
	require.Equal(t, "LEGACY CANYON HIGH SCHOOL", out.School)

	expected := []CourseRecord{
		{
			Name: "BIOLOGY",
			Grades: []QuarterGrade{
				{Quarter: Q1, Letter: "A"},
				{Quarter: Q2, Letter: "B"},
				{Quarter: Q3},
				{Quarter: Q4},
			},
		},
		{
			Name: "ALGEBRA II",
			Grades: []QuarterGrade{
				{Quarter: Q1},
				{Quarter: Q2},
				// no highlight anywhere, so the configured default
				// kicks in, but only where a grade actually exists
				{Quarter: Q3, Letter: "B+", IsCurrent: true},
				{Quarter: Q4},
			},
		},
	}
	if diff := cmp.Diff(expected, out.Courses); diff != "" {
		t.Fatal(diff)
	}

	result := Normalize(out)
	require.True(t, result.Success)
	require.Empty(t, result.Error)
	require.NotNil(t, result.MissingAssignments)
	require.Len(t, result.MissingAssignments, 0)
}

func TestExtractHighlightBeatsDefault(t *testing.T) {
	snap, err := NewSnapshot(labeledHighlightHTML)
	if err != nil {
		t.Fatal(err)
	}

	out := Extract(context.Background(), snap, testConfig())
	require.Equal(t, "labeled_table", out.Strategy)
	require.Len(t, out.Courses, 2)

	{
		course := out.Courses[0]
		require.Equal(t, "WORLD HISTORY", course.Name)
		require.Equal(t, "A-", course.Grades[0].Letter)
		require.True(t, course.Grades[0].IsCurrent)
		require.Equal(t, "B+", course.Grades[1].Letter)
		require.False(t, course.Grades[1].IsCurrent)
	}
	{
		course := out.Courses[1]
		require.Equal(t, "CHEMISTRY", course.Name)
		require.Equal(t, "B", course.Grades[0].Letter)
		require.True(t, course.Grades[0].IsCurrent)
		// the page showed highlights, so the Q3 default must not fire
		require.False(t, course.Grades[2].IsCurrent)
	}
}

func TestExtractHistoryRows(t *testing.T) {
	snap, err := NewSnapshot(historyHTML)
	if err != nil {
		t.Fatal(err)
	}

	out := Extract(context.Background(), snap, testConfig())
	require.Equal(t, "history_rows", out.Strategy)
	require.Len(t, out.Courses, 2)
	require.Equal(t, "AP ENGLISH LANGUAGE", out.Courses[0].Name)
	require.Equal(t, "B+", out.Courses[0].Grades[2].Letter)
	require.True(t, out.Courses[0].Grades[2].IsCurrent)
	require.Equal(t, "SPANISH III", out.Courses[1].Name)
	require.Equal(t, "A", out.Courses[1].Grades[2].Letter)
}

func TestExtractHistoryRowsUnrecognizedQuarter(t *testing.T) {
	snap, err := NewSnapshot(historyHTML)
	if err != nil {
		t.Fatal(err)
	}

	// "SEM1" is not a quarter the portal knows; the scrape must
	// still land the history letters somewhere instead of panicking
	out := Extract(context.Background(), snap, Config{CurrentQuarter: "SEM1"})
	require.Equal(t, "history_rows", out.Strategy)
	require.Len(t, out.Courses, 2)
	require.Equal(t, "B+", out.Courses[0].Grades[2].Letter)
	require.True(t, out.Courses[0].Grades[2].IsCurrent)
}

func TestExtractBlockedPage(t *testing.T) {
	snap, err := NewSnapshot(blockedHTML)
	if err != nil {
		t.Fatal(err)
	}

	out := Extract(context.Background(), snap, testConfig())
	require.Equal(t, "blocks_only", out.Strategy)
	require.Len(t, out.Courses, 0)

	result := Normalize(out)
	require.False(t, result.Success)
	require.Equal(t, blockedDiagnostic, result.Error)
	require.NotNil(t, result.Courses)
	require.Len(t, result.Courses, 0)
}

func TestExtractBlocksOnlyFallback(t *testing.T) {
	snap, err := NewSnapshot(blockedHTML)
	if err != nil {
		t.Fatal(err)
	}
	snap.CourseBlocks = []CourseBlock{
		{Name: "BIOLOGY", Period: "Period 3", Teacher: "Smith, Jane", Y: 100},
	}

	out := Extract(context.Background(), snap, testConfig())
	require.Equal(t, "blocks_only", out.Strategy)
	require.Len(t, out.Courses, 1)
	require.Equal(t, "BIOLOGY", out.Courses[0].Name)
	for _, grade := range out.Courses[0].Grades {
		require.Empty(t, grade.Letter)
		require.False(t, grade.IsCurrent)
	}

	// grade-less blocks still count as a successful scrape
	result := Normalize(out)
	require.True(t, result.Success)
}
