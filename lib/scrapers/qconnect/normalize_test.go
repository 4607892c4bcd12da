package qconnect

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func courseWith(name string, quarter Quarter, letter string) CourseRecord {
	record := CourseRecord{Name: name, Grades: emptyGrades()}
	record.Grades[quarterIndex(quarter)].Letter = letter
	return record
}

func TestMergeCoursesDisjointSlots(t *testing.T) {
	a := courseWith("BIOLOGY", Q1, "A")
	b := courseWith("BIOLOGY", Q3, "B+")

	forward := mergeCourses([]CourseRecord{a, b})
	reversed := mergeCourses([]CourseRecord{b, a})

	require.Len(t, forward, 1)
	require.Equal(t, "A", forward[0].Grades[0].Letter)
	require.Equal(t, "B+", forward[0].Grades[2].Letter)

	// disjoint slots union the same way in either order
	if diff := cmp.Diff(forward, reversed); diff != "" {
		t.Fatal(diff)
	}
}

func TestMergeCoursesIdempotent(t *testing.T) {
	records := []CourseRecord{
		courseWith("BIOLOGY", Q1, "A"),
		courseWith("ALGEBRA II", Q3, "B+"),
		courseWith("BIOLOGY", Q2, "B"),
	}

	once := mergeCourses(records)
	twice := mergeCourses(once)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatal(diff)
	}
	// first appearance decides output order
	require.Equal(t, "BIOLOGY", once[0].Name)
	require.Equal(t, "ALGEBRA II", once[1].Name)
}

func TestMergeCoursesKeepsFirstLetter(t *testing.T) {
	a := courseWith("BIOLOGY", Q1, "A")
	b := courseWith("BIOLOGY", Q1, "C")

	merged := mergeCourses([]CourseRecord{a, b})
	require.Len(t, merged, 1)
	require.Equal(t, "A", merged[0].Grades[0].Letter)
}

func TestMergeCoursesDoesNotMutateInput(t *testing.T) {
	a := courseWith("BIOLOGY", Q1, "A")
	b := courseWith("BIOLOGY", Q2, "B")

	mergeCourses([]CourseRecord{a, b})
	require.Empty(t, a.Grades[1].Letter)
}

func TestNormalizeEmptyIsFailureData(t *testing.T) {
	result := Normalize(ExtractOutput{})
	require.False(t, result.Success)
	require.Equal(t, blockedDiagnostic, result.Error)
	require.NotNil(t, result.Courses)
	require.NotNil(t, result.MissingAssignments)
}

func TestResultNeverLeaksCredentials(t *testing.T) {
	const username = "student8841"
	const password = "hunter2-secret"

	results := []ScrapeResult{
		Normalize(ExtractOutput{}),
		failure("login did not complete: navigation timed out", false),
		failure("the portal rejected the login, please check your username and password", true),
	}
	for _, result := range results {
		encoded, err := json.Marshal(result)
		if err != nil {
			t.Fatal(err)
		}
		require.False(t, strings.Contains(string(encoded), username))
		require.False(t, strings.Contains(string(encoded), password))
	}
}

func TestQuarterGradeJSONNullLetter(t *testing.T) {
	encoded, err := json.Marshal(QuarterGrade{Quarter: Q2})
	if err != nil {
		t.Fatal(err)
	}
	require.JSONEq(t, `{"quarter":"Q2","letter":null,"isCurrent":false}`, string(encoded))

	encoded, err = json.Marshal(QuarterGrade{Quarter: Q3, Letter: "B+", IsCurrent: true})
	if err != nil {
		t.Fatal(err)
	}
	require.JSONEq(t, `{"quarter":"Q3","letter":"B+","isCurrent":true}`, string(encoded))

	var decoded QuarterGrade
	err = json.Unmarshal([]byte(`{"quarter":"Q1","letter":null,"isCurrent":false}`), &decoded)
	if err != nil {
		t.Fatal(err)
	}
	require.Empty(t, decoded.Letter)
}
