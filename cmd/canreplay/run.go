package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charge-telemetry/backend/internal/models"
	"github.com/charge-telemetry/backend/internal/replay"
)

func (c *cli) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a log and print each record as a JSON line",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.bind(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if n := c.v.GetInt("interval"); n > 0 {
				cfg.Replay.SnapshotInterval = n
			}
			if c.v.GetBool("no-yield") {
				cfg.Replay.YieldMillis = 0
			}

			engine, err := c.engine(cfg, c.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			req := replay.Request{
				Log:      c.v.GetString("log"),
				SkipIdle: c.v.GetBool("skip-idle"),
			}
			if d := c.v.GetFloat64("duration"); d > 0 {
				req.Duration = &d
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			var last any
			for record := range engine.Stream(cmd.Context(), req) {
				if err := enc.Encode(record); err != nil {
					return fmt.Errorf("writing record: %w", err)
				}
				last = record
			}

			switch rec := last.(type) {
			case *models.ErrorRecord:
				return errors.New(rec.Error)
			case *models.SummaryRecord:
				return nil
			default:
				return errors.New("replay interrupted")
			}
		},
	}

	cmd.Flags().String("log", "", "catalog name of the log (defaults to the configured default)")
	cmd.Flags().Bool("skip-idle", true, "suppress counting and snapshots until charging starts")
	cmd.Flags().Float64("duration", 0, "stop after this many seconds of log time (0 replays everything)")
	cmd.Flags().Int("interval", 0, "frames between progress snapshots (0 uses the configured interval)")
	cmd.Flags().Bool("no-yield", false, "do not pause after snapshots")

	return cmd
}
