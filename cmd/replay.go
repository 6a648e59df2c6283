package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ma-dusty/wssApiToSyslogRelay/internal/archive"
	"github.com/ma-dusty/wssApiToSyslogRelay/internal/relay"
	"github.com/ma-dusty/wssApiToSyslogRelay/internal/sink"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var replayStdout bool

var replayCmd = &cobra.Command{
	Use:   "replay <archive.zip>",
	Short: "Re-process a saved archive",
	Long: `Push a previously saved raw archive through the normal pipeline.

The file is a raw response body saved by 'run' with relay.save_archives
enabled (cloud_archive_<timestamp>.zip). Every member is unpacked and each
line relayed to the sink exactly as the live loop would do it. The state
file is never touched.

Examples:
  # Replay to the configured sink
  wssrelay replay cloud_archive_20200615143000.zip

  # Inspect the contents on the terminal instead
  wssrelay replay cloud_archive_20200615143000.zip --stdout`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayStdout, "stdout", false, "Relay to stdout instead of the configured sink")
}

func runReplay(cmd *cobra.Command, args []string) error {
	app := GetApp(cmd)

	body, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("cannot read archive: %w", err)
	}

	arc, err := archive.Open(body)
	if err != nil {
		return fmt.Errorf("%s is not a replayable archive: %w", args[0], err)
	}

	log, closeLogs, err := buildLogger()
	if err != nil {
		return err
	}
	defer closeLogs()

	snkURI := viper.GetString("relay.sink")
	if replayStdout {
		snkURI = "stdout://"
	}
	snk, err := sink.OpenWithOptions(snkURI, sink.OpenOptions{
		Profile: app.GetProfile(),
		Region:  app.GetRegion(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = snk.Close() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle Ctrl+C gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		cancel()
	}()

	rel := relay.New(nil, snk, nil, log, relay.Config{
		HostIdentifier: viper.GetString("relay.host_identifier"),
		MaxLineBytes:   viper.GetInt("limits.max_line_bytes"),
		Progress:       app.Render.ProgressDot,
	})

	app.Render.Status("Replaying %s (%d members) -> %s", args[0], len(arc.Members), snkURI)

	err = rel.ReplayArchive(ctx, arc)
	app.Render.EndProgress()
	if errors.Is(err, context.Canceled) {
		app.Render.Status("Stopped early")
		return nil
	}
	if err != nil {
		return err
	}

	st := rel.Stats()
	app.Render.Status("Replayed %d members, %d lines in %s",
		st.Members, st.Lines, st.Elapsed().Round(time.Millisecond))
	return nil
}
