package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nameguard/internal/app"
	"nameguard/internal/screening"
)

func newScreenCmd(opts *rootOptions) *cobra.Command {
	var (
		workers int
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "screen <cases.yaml>",
		Short: "Run a labelled case file and report accuracy",
		Long: `Run every case in a YAML case file through the verification service and
report accuracy overall, by expected class and by decision source.
Exits non-zero when any case is incorrect.`,
		Args: exactArgs(1, "a case file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open case file: %w", err)
			}
			cases, err := screening.LoadCases(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = cfg.Screening.Workers
			}
			log := opts.logger(cfg)

			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			stack, err := app.Build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer stack.Close()

			runner := screening.NewRunner(stack.Service,
				screening.WithWorkers(workers),
				screening.WithLogger(log),
				screening.WithTracker(stack.Tracker),
			)
			run, err := runner.Run(ctx, cases)
			if err != nil {
				return err
			}

			summary := screening.Summarize(run)
			reportOpts := screening.ReportOptions{
				Color:   !opts.NoColor && !color.NoColor,
				Verbose: verbose,
			}
			if err := screening.WriteReport(cmd.OutOrStdout(), run, summary, reportOpts); err != nil {
				return err
			}
			if !summary.Passed() {
				return ErrCasesFailed
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent verifications (default SCREENING_WORKERS)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every case, not only incorrect ones")
	return cmd
}
