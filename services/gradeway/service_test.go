package gradeway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"gradeway-backend/lib/gradestore"
	"gradeway-backend/lib/scrapers/qconnect"
	"gradeway-backend/lib/testutil"
)

type fakeScraper struct {
	grades  qconnect.ScrapeResult
	details qconnect.CourseDetailsResult
}

func (f fakeScraper) ScrapeGrades(ctx context.Context, username, password string) qconnect.ScrapeResult {
	return f.grades
}

func (f fakeScraper) ScrapeCourseDetails(ctx context.Context, username, password, course string) qconnect.CourseDetailsResult {
	return f.details
}

func successResult() qconnect.ScrapeResult {
	grades := []qconnect.QuarterGrade{
		{Quarter: qconnect.Q1, Letter: "A"},
		{Quarter: qconnect.Q2},
		{Quarter: qconnect.Q3, Letter: "B+", IsCurrent: true},
		{Quarter: qconnect.Q4},
	}
	return qconnect.ScrapeResult{
		Success: true,
		Courses: []qconnect.CourseRecord{
			{Name: "BIOLOGY", Grades: grades},
		},
		MissingAssignments: []qconnect.MissingAssignment{},
	}
}

func setupRouter(t *testing.T, scraper GradeScraper) (*gin.Engine, gradestore.Store, func()) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/gradeway",
		DbSchema: gradestore.Schema,
	})
	store := gradestore.NewStore(setup.DB)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewService(scraper, &store).Register(router)
	return router, store, cleanup
}

func post(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	encoded, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(encoded))
	req.Header.Set("content-type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGradesEndpoint(t *testing.T) {
	router, store, cleanup := setupRouter(t, fakeScraper{grades: successResult()})
	defer cleanup()

	{
		rec := post(router, "/v1/grades", map[string]string{
			"username": "alice",
			"password": "pw",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var result qconnect.ScrapeResult
		err := json.Unmarshal(rec.Body.Bytes(), &result)
		if err != nil {
			t.Fatal(err)
		}
		require.True(t, result.Success)
		require.Len(t, result.Courses, 1)
		require.Equal(t, "BIOLOGY", result.Courses[0].Name)
	}
	{
		// the successful scrape landed in the history store as the
		// current quarter's letter
		series, err := store.Pull(context.Background(), "alice")
		if err != nil {
			t.Fatal(err)
		}
		require.Len(t, series, 1)
		require.Equal(t, "BIOLOGY", series[0].Course)
		require.Equal(t, 3.3, series[0].Snapshots[0].Value)
	}
}

func TestGradesEndpointFailureIsData(t *testing.T) {
	router, store, cleanup := setupRouter(t, fakeScraper{
		grades: qconnect.ScrapeResult{
			Courses:            []qconnect.CourseRecord{},
			MissingAssignments: []qconnect.MissingAssignment{},
			Error:              "the portal rejected the login, please check your username and password",
			BadCredentials:     true,
		},
	})
	defer cleanup()

	rec := post(router, "/v1/grades", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	// a failed scrape is still HTTP 200
	require.Equal(t, http.StatusOK, rec.Code)

	var result qconnect.ScrapeResult
	err := json.Unmarshal(rec.Body.Bytes(), &result)
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, result.Success)
	require.True(t, result.BadCredentials)

	series, err := store.Pull(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, series, 0)
}

func TestGradesEndpointRejectsMalformedRequest(t *testing.T) {
	router, _, cleanup := setupRouter(t, fakeScraper{})
	defer cleanup()

	rec := post(router, "/v1/grades", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCourseDetailsEndpoint(t *testing.T) {
	course := qconnect.CourseRecord{Name: "BIOLOGY"}
	router, _, cleanup := setupRouter(t, fakeScraper{
		details: qconnect.CourseDetailsResult{
			Success: true,
			Course:  &course,
			Assignments: []qconnect.Assignment{
				{Name: "Cell Structure Lab", Score: "18 / 20"},
			},
		},
	})
	defer cleanup()

	rec := post(router, "/v1/course-details", map[string]string{
		"username": "alice",
		"password": "pw",
		"course":   "biology",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result qconnect.CourseDetailsResult
	err := json.Unmarshal(rec.Body.Bytes(), &result)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, result.Success)
	require.Len(t, result.Assignments, 1)
}

func TestGradeHistoryEndpoint(t *testing.T) {
	router, _, cleanup := setupRouter(t, fakeScraper{grades: successResult()})
	defer cleanup()

	post(router, "/v1/grades", map[string]string{"username": "alice", "password": "pw"})

	rec := post(router, "/v1/grade-history", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	var response gradeHistoryResponse
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, response.Courses, 1)

	rec = post(router, "/v1/grade-history", map[string]string{"username": "nobody"})
	require.Equal(t, http.StatusOK, rec.Code)
	err = json.Unmarshal(rec.Body.Bytes(), &response)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, response.Courses, 0)
}
