package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"gradeway-backend/lib/gradestore"
	"gradeway-backend/lib/scrapers/qconnect"
	"gradeway-backend/lib/serviceutil"
	"gradeway-backend/lib/timezone"
)

var scrapeDb *string

func init() {
	scrapeDb = scrapeCmd.Flags().String("db", "", "Push the scraped grades into this snapshot database.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--db <path/to/snapshots.db>]",
	Short: "Runs a full grade scrape with the credentials from config.json5.",
	Run: func(cmd *cobra.Command, args []string) {
		scraper, session, cfg := createScraper()
		defer session.Release()

		slog.Info("scraping using user", "username", cfg.Username)

		t1 := time.Now()
		result := scraper.ScrapeGrades(cmd.Context(), cfg.Username, cfg.Password)
		t2 := time.Now()
		slog.Info("scraping time", "seconds", t2.Sub(t1).Seconds())

		if !result.Success {
			fmt.Fprintln(os.Stderr, result.Error)
			os.Exit(1)
		}

		if result.StudentName != "" {
			fmt.Printf("%s (%s)\n", result.StudentName, result.School)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Course", "Period", "Teacher", "Q1", "Q2", "Q3", "Q4"})
		for _, course := range result.Courses {
			row := table.Row{course.Name, course.Period, course.Teacher}
			for _, grade := range course.Grades {
				cell := grade.Letter
				if grade.IsCurrent && cell != "" {
					cell += " *"
				}
				row = append(row, cell)
			}
			t.AppendRow(row)
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		if *scrapeDb != "" {
			pushSnapshots(cmd, cfg.Username, result)
		}
	},
}

func pushSnapshots(cmd *cobra.Command, username string, result qconnect.ScrapeResult) {
	database, err := gradestore.Open(*scrapeDb)
	if err != nil {
		serviceutil.Fatal("failed to open snapshot database", err)
	}
	defer database.Close()
	store := gradestore.NewStore(database)

	var courses []gradestore.CourseSnapshot
	for _, course := range result.Courses {
		for _, grade := range course.Grades {
			if !grade.IsCurrent {
				continue
			}
			value, ok := gradestore.LetterPoints(grade.Letter)
			if !ok {
				continue
			}
			courses = append(courses, gradestore.CourseSnapshot{
				Course: course.Name,
				Value:  value,
			})
		}
	}
	if len(courses) == 0 {
		slog.Warn("no current-quarter grades to push")
		return
	}

	err = store.Push(cmd.Context(), gradestore.PushRequest{
		Time: timezone.Now(),
		Users: []gradestore.UserSnapshot{
			{User: username, Courses: courses},
		},
	})
	if err != nil {
		serviceutil.Fatal("failed to push snapshots", err)
	}
	slog.Info("pushed snapshots", "courses", len(courses), "db", *scrapeDb)
}
