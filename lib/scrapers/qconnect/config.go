package qconnect

import (
	"strings"
	"time"
)

// Config carries every tunable the scraping pipeline has. The timing
// bounds are generous because the portal is empirically slow; the
// pixel tolerances and the current-quarter assumption are the values
// most likely to need adjustment when the portal drifts, which is why
// none of them are hardcoded at their point of use.
type Config struct {
	LoginURL string `json:"login_url"`

	// CurrentQuarter is flagged when no highlight on the page
	// distinguishes the active quarter. This is an assumption about
	// one district's calendar, not a general truth; it defaults to Q3
	// and should be updated per deployment.
	CurrentQuarter Quarter `json:"current_quarter"`

	// DebugDir enables stage screenshots when non-empty.
	DebugDir string `json:"debug_dir"`

	NavTimeoutS  int `json:"nav_timeout_s"`
	PopupRaceS   int `json:"popup_race_s"`
	LoadWaitS    int `json:"load_wait_s"`
	LoadGraceS   int `json:"load_grace_s"`
	PollInterval time.Duration `json:"-"`

	// RowTolerancePx groups a grade cell with a course block when
	// their vertical positions differ by at most this much.
	RowTolerancePx float64 `json:"row_tolerance_px"`
	// ColTolerancePx assigns a grade cell to a quarter column when
	// their horizontal centers differ by at most this much.
	ColTolerancePx float64 `json:"col_tolerance_px"`
}

func (c *Config) defaults() {
	// config files spell quarters loosely; anything that is not a
	// known quarter after normalization falls back to Q3 so a typo
	// cannot send an invalid index through the extraction strategies
	c.CurrentQuarter = Quarter(strings.ToUpper(strings.TrimSpace(string(c.CurrentQuarter))))
	if quarterIndex(c.CurrentQuarter) < 0 {
		c.CurrentQuarter = Q3
	}
	if c.NavTimeoutS <= 0 {
		c.NavTimeoutS = 30
	}
	if c.PopupRaceS <= 0 {
		c.PopupRaceS = 8
	}
	if c.LoadWaitS <= 0 {
		c.LoadWaitS = 45
	}
	if c.LoadGraceS <= 0 {
		c.LoadGraceS = 15
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.RowTolerancePx <= 0 {
		c.RowTolerancePx = 40
	}
	if c.ColTolerancePx <= 0 {
		c.ColTolerancePx = 30
	}
}

func (c Config) navTimeout() time.Duration { return time.Duration(c.NavTimeoutS) * time.Second }
func (c Config) popupRace() time.Duration  { return time.Duration(c.PopupRaceS) * time.Second }
func (c Config) loadWait() time.Duration   { return time.Duration(c.LoadWaitS) * time.Second }
func (c Config) loadGrace() time.Duration  { return time.Duration(c.LoadGraceS) * time.Second }
