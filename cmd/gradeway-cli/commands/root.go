package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gradeway-backend/lib/browserutil"
	"gradeway-backend/lib/configutil"
	"gradeway-backend/lib/scrapers/qconnect"
	"gradeway-backend/lib/serviceutil"
)

var rootCmd = &cobra.Command{
	Use:   "gradeway-cli",
	Short: "gradeway-cli runs and debugs portal grade scrapes from the terminal.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type Config struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Qconnect struct {
		qconnect.Config
		Headless   bool   `json:"headless"`
		BrowserBin string `json:"browser_bin"`
	} `json:"qconnect"`
}

func createScraper() (*qconnect.Scraper, *browserutil.Session, Config) {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config.json5", err)
	}

	session := browserutil.NewSession(browserutil.Config{
		Headless: cfg.Qconnect.Headless,
		Bin:      cfg.Qconnect.BrowserBin,
	})
	return qconnect.NewScraper(session, cfg.Qconnect.Config), session, cfg
}
