package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"gradeway-backend/lib/configutil"
	"gradeway-backend/lib/restyutil"
	"gradeway-backend/lib/scrapers/moodle/core"
	"gradeway-backend/lib/serviceutil"
)

type moodleConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Moodle   struct {
		BaseUrl string `json:"base_url"`
	} `json:"moodle"`
}

func init() {
	rootCmd.AddCommand(moodleCmd)
}

var moodleCmd = &cobra.Command{
	Use:   "moodle",
	Short: "Logs into the LMS and lists enrolled courses.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[moodleConfig]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config.json5", err)
		}

		core.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/moodle"))

		client, err := core.NewClient(cmd.Context(), core.ClientOptions{
			BaseUrl: cfg.Moodle.BaseUrl,
		})
		if err != nil {
			serviceutil.Fatal("failed to initialize the LMS client", err)
		}

		err = client.LoginUsernamePassword(cmd.Context(), cfg.Username, cfg.Password)
		if err != nil {
			serviceutil.Fatal("failed to login to the LMS", err)
		}

		courses, err := client.ListCourses(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list courses", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Course", "URL"})
		for _, course := range courses {
			t.AppendRow(table.Row{course.Id, course.Fullname, course.ViewUrl})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
