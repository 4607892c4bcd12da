package qconnect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func positionSnapshot() *PageSnapshot {
	return &PageSnapshot{
		CourseBlocks: []CourseBlock{
			{Name: "BIOLOGY", Period: "Period 3", Teacher: "Smith, Jane", Y: 500},
		},
		QuarterColumns: []QuarterColumn{
			{Quarter: Q1, X: 310},
		},
	}
}

func TestPositionJoinColumnTolerance(t *testing.T) {
	cfg := testConfig()

	{
		// 5px off the header center joins
		snap := positionSnapshot()
		snap.GradeCells = []GradeCell{{Text: "A", X: 305, Y: 500}}
		courses := extractPositionJoin(snap, cfg)
		require.Len(t, courses, 1)
		require.Equal(t, "A", courses[0].Grades[0].Letter)
	}
	{
		// 40px off does not
		snap := positionSnapshot()
		snap.GradeCells = []GradeCell{{Text: "A", X: 350, Y: 500}}
		courses := extractPositionJoin(snap, cfg)
		require.Len(t, courses, 0)
	}
}

func TestPositionJoinRowTolerance(t *testing.T) {
	cfg := testConfig()

	{
		// 35px vertical drift still belongs to the course row
		snap := positionSnapshot()
		snap.GradeCells = []GradeCell{{Text: "B", X: 310, Y: 535}}
		courses := extractPositionJoin(snap, cfg)
		require.Len(t, courses, 1)
		require.Equal(t, "B", courses[0].Grades[0].Letter)
	}
	{
		// 45px is the next row
		snap := positionSnapshot()
		snap.GradeCells = []GradeCell{{Text: "B", X: 310, Y: 545}}
		courses := extractPositionJoin(snap, cfg)
		require.Len(t, courses, 0)
	}
}

func TestPositionJoinRightmostFallback(t *testing.T) {
	snap := positionSnapshot()
	snap.QuarterColumns = nil
	// five grade-looking cells on the row; the leftmost is noise
	snap.GradeCells = []GradeCell{
		{Text: "F", X: 50, Y: 500},
		{Text: "A", X: 300, Y: 505},
		{Text: "B", X: 400, Y: 505},
		{Text: "C", X: 500, Y: 505},
		{Text: "D", X: 600, Y: 505},
	}

	courses := extractPositionJoin(snap, testConfig())
	require.Len(t, courses, 1)
	grades := courses[0].Grades
	require.Equal(t, "A", grades[0].Letter)
	require.Equal(t, "B", grades[1].Letter)
	require.Equal(t, "C", grades[2].Letter)
	require.Equal(t, "D", grades[3].Letter)
}

func TestPositionJoinHighlightBackground(t *testing.T) {
	snap := positionSnapshot()
	snap.QuarterColumns = []QuarterColumn{
		{Quarter: Q1, X: 310},
		{Quarter: Q2, X: 410},
	}
	snap.GradeCells = []GradeCell{
		{Text: "A", X: 310, Y: 500, Background: "rgb(255, 255, 204)"},
		{Text: "B", X: 410, Y: 500, Background: "rgb(255, 255, 255)"},
	}

	courses := extractPositionJoin(snap, testConfig())
	require.Len(t, courses, 1)
	require.True(t, courses[0].Grades[0].IsCurrent)
	require.False(t, courses[0].Grades[1].IsCurrent)
}

func TestPositionJoinMergesDuplicateBlocks(t *testing.T) {
	snap := &PageSnapshot{
		CourseBlocks: []CourseBlock{
			{Name: "BIOLOGY", Y: 500},
			{Name: "BIOLOGY", Y: 700},
		},
		QuarterColumns: []QuarterColumn{
			{Quarter: Q1, X: 310},
			{Quarter: Q2, X: 410},
		},
		GradeCells: []GradeCell{
			{Text: "A", X: 310, Y: 500},
			{Text: "B", X: 410, Y: 700},
		},
	}

	courses := extractPositionJoin(snap, testConfig())
	require.Len(t, courses, 1)
	require.Equal(t, "A", courses[0].Grades[0].Letter)
	require.Equal(t, "B", courses[0].Grades[1].Letter)
}

func TestIsHighlightColor(t *testing.T) {
	require.False(t, isHighlightColor(""))
	require.False(t, isHighlightColor("transparent"))
	require.False(t, isHighlightColor("rgb(255, 255, 255)"))
	require.False(t, isHighlightColor("rgb(250, 250, 250)"))
	require.False(t, isHighlightColor("rgba(0, 0, 0, 0)"))
	require.True(t, isHighlightColor("rgb(255, 255, 204)"))
	require.True(t, isHighlightColor("rgba(173, 216, 230, 1)"))
	require.True(t, isHighlightColor("yellow"))
}
