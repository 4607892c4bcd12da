package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gradeway-backend/lib/scrapers/qconnect"
	"gradeway-backend/lib/serviceutil"
)

var snapshotOut *string

func init() {
	snapshotOut = snapshotCmd.Flags().String("out", "", "Write the capture to this file instead of stdout.")
	rootCmd.AddCommand(snapshotCmd)
}

// snapshotDump is the JSON-friendly view of a page capture; the parsed
// DOM itself stays out, the geometry and what extraction made of it is
// what matters when debugging a layout change.
type snapshotDump struct {
	URL            string                   `json:"url"`
	BodyText       string                   `json:"bodyText"`
	GradeCells     []qconnect.GradeCell     `json:"gradeCells"`
	QuarterColumns []qconnect.QuarterColumn `json:"quarterColumns"`
	CourseBlocks   []qconnect.CourseBlock   `json:"courseBlocks"`
	Strategy       string                   `json:"strategy"`
	Courses        []qconnect.CourseRecord  `json:"courses"`
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [--out <path/to/capture.json>]",
	Short: "Captures the live grades page and dumps geometry plus extraction output.",
	Run: func(cmd *cobra.Command, args []string) {
		scraper, session, cfg := createScraper()
		defer session.Release()

		snap, err := scraper.DebugSnapshot(cmd.Context(), cfg.Username, cfg.Password)
		if err != nil {
			serviceutil.Fatal("failed to capture snapshot", err)
		}

		out := qconnect.Extract(cmd.Context(), snap, cfg.Qconnect.Config)
		dump := snapshotDump{
			URL:            snap.URL,
			BodyText:       snap.BodyText,
			GradeCells:     snap.GradeCells,
			QuarterColumns: snap.QuarterColumns,
			CourseBlocks:   snap.CourseBlocks,
			Strategy:       out.Strategy,
			Courses:        out.Courses,
		}

		encoded, err := json.MarshalIndent(dump, "", "  ")
		if err != nil {
			serviceutil.Fatal("failed to marshal snapshot", err)
		}

		if *snapshotOut == "" {
			fmt.Println(string(encoded))
			return
		}
		err = os.WriteFile(*snapshotOut, encoded, 0o644)
		if err != nil {
			serviceutil.Fatal("failed to write snapshot file", err)
		}
	},
}
