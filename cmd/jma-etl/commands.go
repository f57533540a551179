package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/jma-weather-etl/internal/adapter/http"
	"github.com/couchcryptid/jma-weather-etl/internal/domain"
	"github.com/couchcryptid/jma-weather-etl/internal/export"
	"github.com/couchcryptid/jma-weather-etl/internal/pipeline"
)

var errCheckFailed = errors.New("integrity check failed")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "jma-etl",
		Short:         "Load the JMA area hierarchy and aggregate tomorrow's forecasts and warnings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMasterCmd(),
		newRecordsCmd("forecast", "Aggregate forecasts for the configured prefectures", pipeline.RunOptions{Forecasts: true}),
		newRecordsCmd("warning", "Collect whitelisted warnings for the configured prefectures", pipeline.RunOptions{Warnings: true}),
		newRunCmd(),
		newServeCmd(),
		newCheckCmd(),
		newExportCmd(),
	)
	return root
}

// withApp builds the shared collaborators for one command and closes them after.
func withApp(fn func(ctx context.Context, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				a.logger.Error("close failed", "error", err)
			}
		}()
		return fn(ctx, a)
	}
}

func newMasterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "master",
		Short: "Rebuild the area hierarchy and station tables",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app) error {
			_, err := a.master().Run(ctx)
			return err
		}),
	}
}

// targetDateOption turns the --date flag into an orchestrator option. An empty
// flag keeps the default of tomorrow in JST.
func targetDateOption(date string) ([]pipeline.OrchestratorOption, error) {
	if date == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("invalid --date: %w", err)
	}
	return []pipeline.OrchestratorOption{pipeline.WithTargetDate(d)}, nil
}

func newRecordsCmd(use, short string, opts pipeline.RunOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dateOpts, err := targetDateOption(date)
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app) error {
				if err := a.cfg.RequirePrefectures(); err != nil {
					return err
				}
				_, err := a.orchestrator(dateOpts...).Run(ctx, opts)
				return err
			})(cmd, args)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "target date YYYY-MM-DD (default tomorrow in JST)")
	return cmd
}

func newRunCmd() *cobra.Command {
	var (
		skipMaster bool
		date       string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Rebuild the hierarchy, then aggregate forecasts and warnings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dateOpts, err := targetDateOption(date)
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app) error {
				if err := a.cfg.RequirePrefectures(); err != nil {
					return err
				}
				if !skipMaster {
					if _, err := a.master().Run(ctx); err != nil {
						return err
					}
				}
				_, err := a.orchestrator(dateOpts...).Run(ctx, pipeline.RunOptions{Forecasts: true, Warnings: true})
				return err
			})(cmd, args)
		},
	}
	cmd.Flags().BoolVar(&skipMaster, "skip-master", false, "reuse the stored hierarchy")
	cmd.Flags().StringVar(&date, "date", "", "target date YYYY-MM-DD (default tomorrow in JST)")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and serve the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app) error {
			if err := a.cfg.RequirePrefectures(); err != nil {
				return err
			}
			sched := pipeline.NewScheduler(a.master(), a.orchestrator(), a.store, pipeline.SchedulerConfig{
				RunInterval:    a.cfg.RunInterval,
				MasterInterval: a.cfg.MasterInterval,
			}, a.logger, a.metrics)
			srv := httpadapter.NewServer(a.cfg.HTTPAddr, sched, a.store, a.cfg.APICORSOrigins, a.logger)

			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.logger.Error("http server error", "error", err)
				}
			}()

			done := make(chan struct{})
			go func() {
				defer close(done)
				if err := sched.Run(ctx); err != nil {
					a.logger.Error("scheduler error", "error", err)
				}
			}()

			<-ctx.Done()
			a.logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("http server shutdown error", "error", err)
			}
			select {
			case <-done:
			case <-shutdownCtx.Done():
				a.logger.Warn("scheduler did not stop before the shutdown timeout")
			}
			a.logger.Info("shutdown complete")
			return nil
		}),
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the stored tables reference each other consistently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				report, err := pipeline.Check(ctx, a.store)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "=== JMA Data Integrity Check ===")
				fmt.Fprintln(out)
				report.Write(out)
				if !report.Passed() {
					fmt.Fprintln(out, "\nCheck FAILED.")
					return errCheckFailed
				}
				fmt.Fprintln(out, "\nAll checks passed.")
				return nil
			})(cmd, args)
		},
	}
}

func newExportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored forecasts and warnings as Parquet or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != export.FormatParquet && format != export.FormatXLSX {
				return fmt.Errorf("invalid --format %q: want %s or %s", format, export.FormatParquet, export.FormatXLSX)
			}
			return withApp(func(ctx context.Context, a *app) error {
				subRegions, err := a.store.SubRegions(ctx)
				if err != nil {
					return fmt.Errorf("load sub-regions: %w", err)
				}
				forecasts, err := a.store.Forecasts(ctx)
				if err != nil {
					return fmt.Errorf("load forecasts: %w", err)
				}
				warnings, err := a.store.Warnings(ctx)
				if err != nil {
					return fmt.Errorf("load warnings: %w", err)
				}
				rows := export.Rows(subRegions, forecasts, warnings)

				if output == "" {
					output = "forecasts." + format
				}
				if err := writeFile(output, func(w io.Writer) error { return export.Write(w, format, rows) }); err != nil {
					return err
				}
				a.logger.Info("export written", "path", output, "format", format, "rows", len(rows))
				return nil
			})(cmd, args)
		},
	}
	cmd.Flags().StringVar(&format, "format", export.FormatParquet, "output format: parquet or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default forecasts.<format>)")
	return cmd
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
