// Package gradeway exposes the scraping pipeline over HTTP for the
// dashboard frontend. Scrape failures are response data, not HTTP
// errors: the only non-200 responses are for malformed requests.
package gradeway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"gradeway-backend/lib/gradestore"
	"gradeway-backend/lib/scrapers/qconnect"
	"gradeway-backend/lib/timezone"
)

var tracer = otel.Tracer("gradeway.services.gradeway")

// GradeScraper is what the HTTP layer needs from the scraping pipeline.
type GradeScraper interface {
	ScrapeGrades(ctx context.Context, username string, password string) qconnect.ScrapeResult
	ScrapeCourseDetails(ctx context.Context, username string, password string, course string) qconnect.CourseDetailsResult
}

type Service struct {
	scraper GradeScraper
	// store is optional; a nil db disables snapshot history.
	store *gradestore.Store
}

func NewService(scraper GradeScraper, store *gradestore.Store) Service {
	return Service{scraper: scraper, store: store}
}

func (s Service) Register(router gin.IRouter) {
	router.POST("/v1/grades", s.handleGrades)
	router.POST("/v1/course-details", s.handleCourseDetails)
	router.POST("/v1/grade-history", s.handleGradeHistory)
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s Service) handleGrades(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "handleGrades")
	defer span.End()

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	result := s.scraper.ScrapeGrades(ctx, req.Username, req.Password)
	if result.Success {
		s.recordSnapshot(ctx, req.Username, result)
	}
	c.JSON(http.StatusOK, result)
}

type courseDetailsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Course   string `json:"course" binding:"required"`
}

func (s Service) handleCourseDetails(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "handleCourseDetails")
	defer span.End()

	var req courseDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, password and course are required"})
		return
	}

	c.JSON(http.StatusOK, s.scraper.ScrapeCourseDetails(ctx, req.Username, req.Password, req.Course))
}

type gradeHistoryRequest struct {
	Username string `json:"username" binding:"required"`
}

type gradeHistoryResponse struct {
	Courses []gradestore.CourseSnapshotSeries `json:"courses"`
}

func (s Service) handleGradeHistory(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "handleGradeHistory")
	defer span.End()

	var req gradeHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}
	if s.store == nil {
		c.JSON(http.StatusOK, gradeHistoryResponse{Courses: []gradestore.CourseSnapshotSeries{}})
		return
	}

	courses, err := s.store.Pull(ctx, req.Username)
	if err != nil {
		slog.ErrorContext(ctx, "failed to pull grade history", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read grade history"})
		return
	}
	if courses == nil {
		courses = []gradestore.CourseSnapshotSeries{}
	}
	c.JSON(http.StatusOK, gradeHistoryResponse{Courses: courses})
}

// recordSnapshot feeds a successful scrape into the history store.
// Each course contributes its current quarter's letter, or the latest
// non-empty one when no quarter is marked current.
func (s Service) recordSnapshot(ctx context.Context, user string, result qconnect.ScrapeResult) {
	if s.store == nil {
		return
	}

	var courses []gradestore.CourseSnapshot
	for _, course := range result.Courses {
		letter := snapshotLetter(course)
		value, ok := gradestore.LetterPoints(letter)
		if !ok {
			continue
		}
		courses = append(courses, gradestore.CourseSnapshot{
			Course: course.Name,
			Value:  value,
		})
	}
	if len(courses) == 0 {
		return
	}

	err := s.store.Push(ctx, gradestore.PushRequest{
		Time: timezone.Now(),
		Users: []gradestore.UserSnapshot{
			{User: user, Courses: courses},
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to push grade snapshot", "err", err)
	}
}

func snapshotLetter(course qconnect.CourseRecord) string {
	latest := ""
	for _, grade := range course.Grades {
		if grade.Letter == "" {
			continue
		}
		if grade.IsCurrent {
			return grade.Letter
		}
		latest = grade.Letter
	}
	return latest
}
