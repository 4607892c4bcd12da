package qconnect

import (
	"testing"

	_ "embed"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/assignments.html
var assignmentsHTML string

func TestBestCourseMatch(t *testing.T) {
	courses := []CourseRecord{
		{Name: "BIOLOGY"},
		{Name: "ALGEBRA II"},
		{Name: "WORLD HISTORY"},
	}

	{
		idx, ok := bestCourseMatch(courses, "algebra ii")
		require.True(t, ok)
		require.Equal(t, 1, idx)
	}
	{
		// punctuation and casing drift between scrapes
		idx, ok := bestCourseMatch(courses, "World  History ")
		require.True(t, ok)
		require.Equal(t, 2, idx)
	}
	{
		_, ok := bestCourseMatch(courses, "CERAMICS")
		require.False(t, ok)
	}
	{
		_, ok := bestCourseMatch(courses, "")
		require.False(t, ok)
	}
}

func TestExtractAssignments(t *testing.T) {
	snap, err := NewSnapshot(assignmentsHTML)
	if err != nil {
		t.Fatal(err)
	}

	expected := []Assignment{
		{Name: "Cell Structure Lab", Category: "Labs", Score: "18 / 20", DueDate: "1/14/2026"},
		{Name: "Chapter 4 Quiz", Category: "Quizzes", Score: "85 %", DueDate: "1/21"},
	}
	if diff := cmp.Diff(expected, extractAssignments(snap)); diff != "" {
		t.Fatal(diff)
	}
}

func TestExtractAssignmentsEmptyPage(t *testing.T) {
	snap, err := NewSnapshot(blockedHTML)
	if err != nil {
		t.Fatal(err)
	}
	assignments := extractAssignments(snap)
	require.NotNil(t, assignments)
	require.Len(t, assignments, 0)
}
