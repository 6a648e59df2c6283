package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/ma-dusty/wssApiToSyslogRelay/pkg/timeutil"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved relay state",
	Long: `Show the persisted cursor and a summary of the effective configuration.

The checkpoint is the embedded timestamp of the last fully relayed archive
member; the next run resumes from it. The password is masked.

Examples:
  wssrelay status`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	app := GetApp(cmd)

	store, err := openStateStore()
	if err != nil {
		return err
	}

	app.Render.Section("State")
	app.Render.KeyValue("File", store.Path())

	st, found, err := store.Load()
	if err != nil {
		return err
	}
	if !found {
		app.Render.Info("No saved state; the next run starts fresh.")
	} else {
		resumeAt := timeutil.FromMillis(st.StartTime)
		app.Render.KeyValue("Checkpoint", fmt.Sprintf("%s (%s)",
			resumeAt.Format(time.RFC3339), timeutil.FormatCompact(resumeAt)))
		app.Render.KeyValue("Token", st.Token)
		app.Render.KeyValue("Saved", fmt.Sprintf("%s (%s ago)",
			st.UpdatedAt.Local().Format(time.RFC3339),
			timeutil.FormatDuration(time.Since(st.UpdatedAt))))
	}

	app.Render.Section("Configuration")
	cfgUsed := viper.ConfigFileUsed()
	if cfgUsed == "" {
		cfgUsed = "(none; using defaults)"
	}
	app.Render.KeyValue("File", cfgUsed)
	app.Render.KeyValue("Server", viper.GetString("server.url"))
	app.Render.KeyValue("Username", viper.GetString("server.username"))
	app.Render.KeyValue("Password", maskSecret(viper.GetString("server.password")))
	app.Render.KeyValue("Sink", viper.GetString("relay.sink"))
	app.Render.KeyValue("Host identifier", viper.GetString("relay.host_identifier"))
	app.Render.KeyValue("Delays", fmt.Sprintf("idle=%s more=%s error=%s",
		viper.GetDuration("delays.idle"),
		viper.GetDuration("delays.more"),
		viper.GetDuration("delays.error")))
	app.Render.Newline()
	return nil
}

// maskSecret keeps just enough of a secret to recognize which one is
// configured without exposing it.
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
