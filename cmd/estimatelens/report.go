package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/estimatelens/estimatelens/internal/compute"
	"github.com/estimatelens/estimatelens/internal/config"
	"github.com/estimatelens/estimatelens/internal/extract"
	"github.com/estimatelens/estimatelens/internal/report"
	"github.com/estimatelens/estimatelens/internal/source"
	"github.com/estimatelens/estimatelens/internal/window"
)

type reportOptions struct {
	input  string
	window string
	since  string
	now    string
	format string
}

func newReportCommand(root *rootOptions) *cobra.Command {
	ro := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the dashboard for a JSON issue export",
		Long: "Run the extraction and statistics pipeline over a JSON export offline.\n" +
			"Extractor settings come from --config when that flag is given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := root.setupLogging(cmd.ErrOrStderr()); err != nil {
				return err
			}
			var cfg *config.Config
			if cmd.Flags().Changed("config") {
				c, err := config.Load(root.configPath)
				if err != nil {
					return err
				}
				cfg = c
			}
			return ro.run(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&ro.input, "input", "i", "", "JSON file holding an issue array or {\"issues\": [...]}")
	cmd.Flags().StringVarP(&ro.window, "window", "w", "", "Window: "+windowNames()+" (default all, or the config default)")
	cmd.Flags().StringVar(&ro.since, "since", "", "Custom window ending now, e.g. 36h or 14d; overrides --window")
	cmd.Flags().StringVar(&ro.now, "now", "", "Reference time (RFC3339) for the window; defaults to the current time")
	cmd.Flags().StringVarP(&ro.format, "format", "f", report.FormatTable, "Output format: "+strings.Join(report.Formats(), ", "))
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (ro *reportOptions) run(cmd *cobra.Command, cfg *config.Config) error {
	now := time.Now()
	if ro.now != "" {
		t, err := time.Parse(time.RFC3339, ro.now)
		if err != nil {
			return fmt.Errorf("invalid --now %q: %w", ro.now, err)
		}
		now = t
	}

	def := window.All
	opts := extract.Options{Heuristic: true}
	if cfg != nil {
		def = cfg.Server.Window()
		opts = cfg.Extract.Options()
	}
	sel, err := window.Select(ro.window, ro.since, def)
	if err != nil {
		return err
	}
	ex, err := extract.New(opts)
	if err != nil {
		return err
	}

	src := source.NewFile(filepath.Base(ro.input), ro.input)
	issues, err := src.Fetch(cmd.Context())
	if err != nil {
		return err
	}
	slog.Debug("report: issues loaded", "source", src.ID(), "count", len(issues))

	d, err := compute.NewEngine(ex).RecomputeSelection(issues, sel, now)
	if err != nil {
		return err
	}
	return report.Render(cmd.OutOrStdout(), d, ro.format)
}

func windowNames() string {
	ws := window.Windows()
	names := make([]string, len(ws))
	for i, w := range ws {
		names[i] = string(w)
	}
	return strings.Join(names, ", ")
}
