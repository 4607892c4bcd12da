package qconnect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/mazen160/go-random"

	"gradeway-backend/lib/browserutil"
	"gradeway-backend/lib/waitutil"
)

// Scraper drives one portal account through login, navigation and
// extraction. It holds no per-scrape state; a single Scraper is safe
// for concurrent callers because every scrape runs under the session's
// exclusive turn.
type Scraper struct {
	session *browserutil.Session
	cfg     Config
	clock   waitutil.Clock
}

func NewScraper(session *browserutil.Session, cfg Config) *Scraper {
	cfg.defaults()
	return &Scraper{
		session: session,
		cfg:     cfg,
		clock:   waitutil.Real,
	}
}

// ScrapeGrades logs in as the given student and returns their course
// grades. It never returns a Go error: every failure mode, including a
// panic somewhere in the browser layer, lands in the result so the
// dashboard always has something renderable.
func (s *Scraper) ScrapeGrades(ctx context.Context, username string, password string) ScrapeResult {
	var result ScrapeResult
	_ = s.session.WithExclusiveTurn(func() error {
		result = s.scrapeGrades(ctx, Credentials{Username: username, Password: password})
		return nil
	})
	return result
}

func (s *Scraper) scrapeGrades(ctx context.Context, creds Credentials) (result ScrapeResult) {
	ctx, span := tracer.Start(ctx, "ScrapeGrades")
	defer span.End()

	op := operationID()
	slog.InfoContext(ctx, "starting grade scrape", "op", op)

	// a panic anywhere below means the browser is in an unknown state;
	// tear it down so the next turn starts from a fresh launch
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "grade scrape panicked, discarding browser", "op", op, "panic", r)
			s.session.Release()
			result = failure(fmt.Sprintf("an unexpected error interrupted the scrape: %v", r), false)
		}
	}()

	page, err := s.session.Page(ctx)
	if err != nil {
		return failure("could not start a browser session: "+err.Error(), false)
	}
	defer s.closeAllPages(ctx, page.Browser())

	page, outcome, err := s.login(ctx, page, creds)
	s.debugShot(ctx, page, op, "login")
	if err != nil {
		if errors.Is(err, ErrFormNotFound) {
			return failure(ErrFormNotFound.Error(), false)
		}
		return failure("login did not complete: "+err.Error(), false)
	}
	if !outcome.Success {
		reason := outcome.Reason
		if reason == "" {
			reason = "login did not reach the portal"
		}
		return failure(reason, outcome.BadCredentials)
	}

	page = s.goToGrades(ctx, page)
	s.debugShot(ctx, page, op, "grades")

	snap, err := CaptureSnapshot(ctx, page)
	if err != nil {
		return failure("could not read the gradebook page: "+err.Error(), false)
	}

	out := Extract(ctx, snap, s.cfg)
	result = Normalize(out)
	slog.InfoContext(ctx, "grade scrape finished",
		"op", op,
		"success", result.Success,
		"courses", len(result.Courses),
		"strategy", out.Strategy,
	)
	return result
}

// ScrapeCourseDetails scrapes the assignment list for the course whose
// name best matches query. Matching is fuzzy because the dashboard
// stores names from a previous scrape and the portal is not consistent
// about whitespace or punctuation between visits.
func (s *Scraper) ScrapeCourseDetails(ctx context.Context, username string, password string, query string) CourseDetailsResult {
	var result CourseDetailsResult
	_ = s.session.WithExclusiveTurn(func() error {
		result = s.scrapeCourseDetails(ctx, Credentials{Username: username, Password: password}, query)
		return nil
	})
	return result
}

func (s *Scraper) scrapeCourseDetails(ctx context.Context, creds Credentials, query string) (result CourseDetailsResult) {
	ctx, span := tracer.Start(ctx, "ScrapeCourseDetails")
	defer span.End()

	op := operationID()
	slog.InfoContext(ctx, "starting course detail scrape", "op", op, "course", query)

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "course detail scrape panicked, discarding browser", "op", op, "panic", r)
			s.session.Release()
			result = detailsFailure(fmt.Sprintf("an unexpected error interrupted the scrape: %v", r), false)
		}
	}()

	page, err := s.session.Page(ctx)
	if err != nil {
		return detailsFailure("could not start a browser session: "+err.Error(), false)
	}
	defer s.closeAllPages(ctx, page.Browser())

	page, outcome, err := s.login(ctx, page, creds)
	if err != nil {
		return detailsFailure("login did not complete: "+err.Error(), false)
	}
	if !outcome.Success {
		reason := outcome.Reason
		if reason == "" {
			reason = "login did not reach the portal"
		}
		return detailsFailure(reason, outcome.BadCredentials)
	}

	page = s.goToGrades(ctx, page)

	snap, err := CaptureSnapshot(ctx, page)
	if err != nil {
		return detailsFailure("could not read the gradebook page: "+err.Error(), false)
	}
	out := Extract(ctx, snap, s.cfg)
	courses := out.Courses

	idx, ok := bestCourseMatch(courses, query)
	if !ok {
		return detailsFailure(fmt.Sprintf("no course resembling %q was found", query), false)
	}
	course := courses[idx]

	if err := s.openCourse(ctx, page, course.Name); err != nil {
		slog.WarnContext(ctx, "could not open the course view, returning summary only", "op", op, "err", err)
		return CourseDetailsResult{
			Success:     true,
			Course:      &course,
			Assignments: []Assignment{},
		}
	}
	s.debugShot(ctx, page, op, "course")

	detailSnap, err := CaptureSnapshot(ctx, page)
	if err != nil {
		return detailsFailure("could not read the course page: "+err.Error(), false)
	}
	assignments := extractAssignments(detailSnap)
	slog.InfoContext(ctx, "course detail scrape finished",
		"op", op, "course", course.Name, "assignments", len(assignments))

	return CourseDetailsResult{
		Success:     true,
		Course:      &course,
		Assignments: assignments,
	}
}

// openCourse clicks the course's own link inside the gradebook, then
// waits for the summary table to be replaced by the detail view.
func (s *Scraper) openCourse(ctx context.Context, page *rod.Page, name string) error {
	clicked, err := page.Timeout(s.cfg.navTimeout()).Eval(`(name) => {
		const anchors = Array.from(document.querySelectorAll("a"));
		const target = anchors.find((a) =>
			(a.innerText || "").toUpperCase().includes(name.toUpperCase()));
		if (!target) return false;
		target.click();
		return true;
	}`, name)
	if err != nil {
		return err
	}
	if !clicked.Value.Bool() {
		return fmt.Errorf("no link for course %q on the gradebook page", name)
	}

	_, err = waitutil.For(ctx, waitutil.Options{
		Interval: s.cfg.PollInterval,
		Max:      s.cfg.navTimeout(),
		Clock:    s.clock,
	}, func() (bool, error) {
		return len(pageBodyText(page)) > 0, nil
	})
	return err
}

// DebugSnapshot runs the pipeline up to extraction and returns the raw
// page capture, for diagnosing extraction behavior against a live
// portal. Unlike the scrape entry points it does return errors; it is
// a debugging tool, not part of the dashboard contract.
func (s *Scraper) DebugSnapshot(ctx context.Context, username string, password string) (*PageSnapshot, error) {
	var snap *PageSnapshot
	err := s.session.WithExclusiveTurn(func() error {
		page, err := s.session.Page(ctx)
		if err != nil {
			return err
		}
		defer s.closeAllPages(ctx, page.Browser())

		page, outcome, err := s.login(ctx, page, Credentials{Username: username, Password: password})
		if err != nil {
			return err
		}
		if !outcome.Success {
			return fmt.Errorf("login failed: %s", outcome.Reason)
		}

		page = s.goToGrades(ctx, page)
		snap, err = CaptureSnapshot(ctx, page)
		return err
	})
	return snap, err
}

func detailsFailure(message string, badCredentials bool) CourseDetailsResult {
	return CourseDetailsResult{
		Success:        false,
		Assignments:    []Assignment{},
		Error:          message,
		BadCredentials: badCredentials,
	}
}

// closeAllPages leaves the warm browser tabless so the next turn does
// not inherit this student's windows (or their session cookies in an
// open view).
func (s *Scraper) closeAllPages(ctx context.Context, browser *rod.Browser) {
	pages, err := browser.Pages()
	if err != nil {
		slog.WarnContext(ctx, "failed to enumerate pages during cleanup", "err", err)
		return
	}
	for _, page := range pages {
		if err := page.Close(); err != nil {
			slog.DebugContext(ctx, "failed to close page during cleanup", "err", err)
		}
	}
}

// debugShot saves a full-page screenshot when a debug directory is
// configured. Failures are logged and ignored; debugging output must
// never sink a scrape.
func (s *Scraper) debugShot(ctx context.Context, page *rod.Page, op string, stage string) {
	if s.cfg.DebugDir == "" || page == nil {
		return
	}
	if err := os.MkdirAll(s.cfg.DebugDir, 0o755); err != nil {
		slog.WarnContext(ctx, "could not create debug directory", "err", err)
		return
	}
	data, err := page.Screenshot(true, nil)
	if err != nil {
		slog.WarnContext(ctx, "debug screenshot failed", "stage", stage, "err", err)
		return
	}
	path := filepath.Join(s.cfg.DebugDir, fmt.Sprintf("%s-%s.png", op, stage))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.WarnContext(ctx, "could not write debug screenshot", "path", path, "err", err)
	}
}

func operationID() string {
	id, err := random.String(8)
	if err != nil {
		return fmt.Sprintf("op%d", time.Now().UnixNano())
	}
	return id
}
