package qconnect

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"gradeway-backend/lib/textutil"
	"gradeway-backend/lib/waitutil"
)

// Credentials are supplied per call and never persisted here; storage
// is the keychain's job.
type Credentials struct {
	Username string
	Password string
}

// The portal's login markup has drifted several times over the years;
// each list is ordered newest-variant-first and the first match wins.
var usernameSelectors = []string{
	`input#username`,
	`input[name="username"]`,
	`input#LoginUsername`,
	`input[name="Pin"]`,
	`input[type="text"][name*="user"]`,
}

var passwordSelectors = []string{
	`input#password`,
	`input[name="password"]`,
	`input#LoginPassword`,
	`input[type="password"]`,
}

var submitSelectors = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
	`#LoginButton`,
	`button#login`,
}

// body-text markers that only show up behind authentication
var authenticatedMarkers = []string{"gradebook", "message center", "log out", "sign out"}

var loginErrorPatterns = []string{"invalid", "incorrect", "failed"}

// LoginSignals is everything the success/failure decision looks at,
// gathered into a plain struct so the heuristic cascade stays pure and
// testable without a browser.
type LoginSignals struct {
	// WindowCount is the number of open windows/tabs after the
	// popup race settled.
	WindowCount int
	BodyText    string
	URL         string
	LoginURL    string
	// FormVisible reports whether a login field still resolves.
	FormVisible bool
}

type LoginOutcome struct {
	Success        bool
	BadCredentials bool
	Reason         string
}

type loginCheck func(LoginSignals) (LoginOutcome, bool)

// loginChecks is the ordered decision list. The portal has no stable
// success signal; post-login behavior differs between school
// configurations, so each check captures one observed convention and
// the order encodes which we trust more.
func loginChecks() []loginCheck {
	return []loginCheck{
		// the portal's characteristic "open the real app in a new
		// window" behavior is its most reliable success tell
		func(s LoginSignals) (LoginOutcome, bool) {
			if s.WindowCount > 1 {
				return LoginOutcome{Success: true, Reason: "portal opened a new window"}, true
			}
			return LoginOutcome{}, false
		},
		func(s LoginSignals) (LoginOutcome, bool) {
			if textutil.ContainsAny(s.BodyText, authenticatedMarkers) {
				return LoginOutcome{Success: true, Reason: "authenticated content visible"}, true
			}
			return LoginOutcome{}, false
		},
		func(s LoginSignals) (LoginOutcome, bool) {
			if s.FormVisible {
				return LoginOutcome{
					BadCredentials: true,
					Reason:         ErrBadCredentials.Error(),
				}, true
			}
			return LoginOutcome{}, false
		},
		func(s LoginSignals) (LoginOutcome, bool) {
			if errText := findErrorText(s.BodyText); errText != "" {
				return LoginOutcome{BadCredentials: true, Reason: errText}, true
			}
			return LoginOutcome{}, false
		},
		func(s LoginSignals) (LoginOutcome, bool) {
			if !resemblesLoginURL(s.URL, s.LoginURL) {
				return LoginOutcome{Success: true, Reason: "navigated away from the login page"}, true
			}
			return LoginOutcome{}, false
		},
	}
}

func EvaluateLogin(signals LoginSignals) LoginOutcome {
	for _, check := range loginChecks() {
		outcome, decided := check(signals)
		if decided {
			return outcome
		}
	}
	return LoginOutcome{Reason: "login may have failed, the portal gave no recognizable response"}
}

// findErrorText returns the literal line of page text carrying an
// error pattern, so the user sees the portal's own words.
func findErrorText(bodyText string) string {
	for _, line := range strings.Split(bodyText, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || len(trimmed) > 200 {
			continue
		}
		if textutil.ContainsAny(trimmed, loginErrorPatterns) {
			return trimmed
		}
	}
	return ""
}

func resemblesLoginURL(current, login string) bool {
	currentURL, err1 := url.Parse(current)
	loginURL, err2 := url.Parse(login)
	if err1 != nil || err2 != nil {
		return strings.HasPrefix(current, login)
	}
	if !strings.EqualFold(currentURL.Hostname(), loginURL.Hostname()) {
		return false
	}
	currentPath := strings.ToLower(strings.TrimRight(currentURL.Path, "/"))
	loginPath := strings.ToLower(strings.TrimRight(loginURL.Path, "/"))
	return currentPath == loginPath
}

// login drives the portal's login form and returns the page that ended
// up holding the authenticated app, which is frequently not the page
// the form was submitted from.
func (s *Scraper) login(ctx context.Context, page *rod.Page, creds Credentials) (*rod.Page, LoginOutcome, error) {
	ctx, span := tracer.Start(ctx, "login")
	defer span.End()

	browser := page.Browser()

	err := page.Context(ctx).Timeout(s.cfg.navTimeout()).Navigate(s.cfg.LoginURL)
	if err != nil {
		return page, LoginOutcome{}, err
	}
	err = page.Timeout(s.cfg.navTimeout()).WaitLoad()
	if err != nil {
		slog.WarnContext(ctx, "login page load wait timed out, proceeding", "err", err)
	}

	usernameField := firstVisibleElement(page, usernameSelectors)
	passwordField := firstVisibleElement(page, passwordSelectors)
	if usernameField == nil || passwordField == nil {
		return page, LoginOutcome{}, ErrFormNotFound
	}

	if err := fillField(usernameField, creds.Username); err != nil {
		return page, LoginOutcome{}, err
	}
	if err := fillField(passwordField, creds.Password); err != nil {
		return page, LoginOutcome{}, err
	}

	windowsBefore := countPages(browser)

	if submit := firstVisibleElement(page, submitSelectors); submit != nil {
		err = submit.Click(proto.InputMouseButtonLeft, 1)
	} else {
		// some variants have no submit control at all and rely on
		// the enter key
		err = passwordField.Type(input.Enter)
	}
	if err != nil {
		return page, LoginOutcome{}, err
	}

	// race the portal's new-window habit against a timeout; whichever
	// resolves first decides which page we treat as active
	popupOpened, err := waitutil.For(ctx, waitutil.Options{
		Interval: 250 * time.Millisecond,
		Max:      s.cfg.popupRace(),
		Clock:    s.clock,
	}, func() (bool, error) {
		return countPages(browser) > windowsBefore, nil
	})
	if err != nil {
		return page, LoginOutcome{}, err
	}
	slog.DebugContext(ctx, "post-login popup race settled", "popup_opened", popupOpened)

	active := s.adoptActivePage(ctx, browser, page)

	signals := LoginSignals{
		WindowCount: countPages(browser),
		BodyText:    pageBodyText(active),
		URL:         pageURL(active),
		LoginURL:    s.cfg.LoginURL,
		FormVisible: firstVisibleElement(active, usernameSelectors) != nil,
	}
	outcome := EvaluateLogin(signals)
	slog.InfoContext(ctx, "login outcome",
		"success", outcome.Success,
		"bad_credentials", outcome.BadCredentials,
		"reason", outcome.Reason,
		"windows", signals.WindowCount,
	)

	return active, outcome, nil
}

// adoptActivePage picks the page that owns the authenticated session,
// or the original page when none qualifies. CDP does not promise an
// order for the target list, so when several windows show
// authenticated markers the last enumerated one wins and the choice
// is logged so a wrong adoption shows up in the trace.
func (s *Scraper) adoptActivePage(ctx context.Context, browser *rod.Browser, fallback *rod.Page) *rod.Page {
	pages, err := browser.Pages()
	if err != nil {
		slog.WarnContext(ctx, "failed to enumerate pages", "err", err)
		return fallback
	}

	var adopted *rod.Page
	candidates := 0
	for _, candidate := range pages {
		if textutil.ContainsAny(pageBodyText(candidate), authenticatedMarkers) {
			adopted = candidate
			candidates++
		}
	}
	if adopted == nil {
		return fallback
	}
	slog.DebugContext(ctx, "adopted authenticated page",
		"url", pageURL(adopted),
		"candidates", candidates,
	)
	return adopted
}

func firstVisibleElement(page *rod.Page, selectors []string) *rod.Element {
	for _, selector := range selectors {
		element, err := page.Timeout(time.Second).Element(selector)
		if err != nil {
			continue
		}
		visible, err := element.Visible()
		if err != nil || !visible {
			continue
		}
		return element
	}
	return nil
}

func fillField(element *rod.Element, value string) error {
	err := element.SelectAllText()
	if err != nil {
		return err
	}
	return element.Input(value)
}

func countPages(browser *rod.Browser) int {
	pages, err := browser.Pages()
	if err != nil {
		return 0
	}
	return len(pages)
}

func pageBodyText(page *rod.Page) string {
	result, err := page.Timeout(3 * time.Second).Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return ""
	}
	return result.Value.Str()
}

func pageURL(page *rod.Page) string {
	info, err := page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}
