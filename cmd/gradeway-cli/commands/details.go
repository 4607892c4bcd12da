package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(detailsCmd)
}

var detailsCmd = &cobra.Command{
	Use:   "details <course name>",
	Short: "Scrapes the assignment list for one course.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		scraper, session, cfg := createScraper()
		defer session.Release()

		result := scraper.ScrapeCourseDetails(cmd.Context(), cfg.Username, cfg.Password, args[0])
		if !result.Success {
			fmt.Fprintln(os.Stderr, result.Error)
			os.Exit(1)
		}

		fmt.Println(result.Course.Name)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Assignment", "Category", "Score", "Due"})
		for _, assignment := range result.Assignments {
			t.AppendRow(table.Row{
				assignment.Name,
				assignment.Category,
				assignment.Score,
				assignment.DueDate,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
