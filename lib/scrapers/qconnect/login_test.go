package qconnect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testLoginURL = "https://portal.example.org/Home/Login"

func TestEvaluateLoginNewWindowWins(t *testing.T) {
	// a second window decides success even when the original page
	// still shows the login form
	outcome := EvaluateLogin(LoginSignals{
		WindowCount: 2,
		URL:         testLoginURL,
		LoginURL:    testLoginURL,
		FormVisible: true,
	})
	require.True(t, outcome.Success)
	require.False(t, outcome.BadCredentials)
}

func TestEvaluateLoginAuthenticatedContent(t *testing.T) {
	outcome := EvaluateLogin(LoginSignals{
		WindowCount: 1,
		BodyText:    "Welcome back!\nGradebook\nMessage Center\nLog Out",
		URL:         testLoginURL,
		LoginURL:    testLoginURL,
	})
	require.True(t, outcome.Success)
}

func TestEvaluateLoginFormStillVisible(t *testing.T) {
	outcome := EvaluateLogin(LoginSignals{
		WindowCount: 1,
		BodyText:    "Please sign in",
		URL:         testLoginURL,
		LoginURL:    testLoginURL,
		FormVisible: true,
	})
	require.False(t, outcome.Success)
	require.True(t, outcome.BadCredentials)
	require.Equal(t, ErrBadCredentials.Error(), outcome.Reason)
}

func TestEvaluateLoginPortalErrorText(t *testing.T) {
	outcome := EvaluateLogin(LoginSignals{
		WindowCount: 1,
		BodyText:    "Some header\nInvalid PIN or password.\nFooter",
		URL:         testLoginURL,
		LoginURL:    testLoginURL,
	})
	require.False(t, outcome.Success)
	require.True(t, outcome.BadCredentials)
	// the portal's own wording is surfaced verbatim
	require.Equal(t, "Invalid PIN or password.", outcome.Reason)
}

func TestEvaluateLoginURLChanged(t *testing.T) {
	outcome := EvaluateLogin(LoginSignals{
		WindowCount: 1,
		BodyText:    "loading...",
		URL:         "https://portal.example.org/Home/PortalMainPage",
		LoginURL:    testLoginURL,
	})
	require.True(t, outcome.Success)
}

func TestEvaluateLoginAmbiguous(t *testing.T) {
	outcome := EvaluateLogin(LoginSignals{
		WindowCount: 1,
		BodyText:    "loading...",
		URL:         testLoginURL,
		LoginURL:    testLoginURL,
	})
	require.False(t, outcome.Success)
	require.False(t, outcome.BadCredentials)
	require.NotEmpty(t, outcome.Reason)
}

func TestResemblesLoginURL(t *testing.T) {
	require.True(t, resemblesLoginURL(testLoginURL, testLoginURL))
	require.True(t, resemblesLoginURL("https://portal.example.org/Home/Login/", testLoginURL))
	require.True(t, resemblesLoginURL("https://PORTAL.example.org/home/login?ret=1", testLoginURL))
	require.False(t, resemblesLoginURL("https://portal.example.org/Home/PortalMainPage", testLoginURL))
	require.False(t, resemblesLoginURL("https://other.example.org/Home/Login", testLoginURL))
}

func TestFindErrorText(t *testing.T) {
	require.Equal(t, "Login failed.", findErrorText("Header\nLogin failed.\n"))
	require.Empty(t, findErrorText("All quiet on this page"))
	// page-length lines are noise, not error banners
	long := "invalid " + strings.Repeat("x", 250)
	require.Empty(t, findErrorText(long))
}
