// Package cli implements the nameguard command line: one-off verification,
// batch screening, API token minting and the audit sink.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"nameguard/internal/platform/config"
	"nameguard/internal/platform/logger"
	"nameguard/internal/verification"
)

// Build-time variables injected via ldflags.
var Version = "dev"

// ErrCasesFailed is returned by screen when at least one case was wrong.
// The report has already been printed.
var ErrCasesFailed = errors.New("screening had incorrect cases")

// rootOptions holds global CLI flags.
type rootOptions struct {
	LogLevel string
	NoColor  bool
	Policy   string
	Timeout  time.Duration

	out    io.Writer
	errOut io.Writer

	// load is config.Load, replaceable in tests.
	load func() (*config.Config, error)
}

// NewRootCommand creates the root command with all global flags and subcommands.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{out: out, errOut: errOut, load: config.Load}

	cmd := &cobra.Command{
		Use:           "nameguard",
		Short:         "Decide whether two personal names refer to the same person",
		Long:          "nameguard runs a deterministic rule cascade over a pair of names and\nfalls back to a semantic verifier only when no rule decides.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.StringVar(&opts.Policy, "policy", "", "verification policy (cascade, verifier_only); overrides VERIFICATION_POLICY")
	pf.DurationVar(&opts.Timeout, "timeout", 0, "overall operation timeout (0 means none)")

	cmd.AddCommand(
		newVerifyCmd(opts),
		newScreenCmd(opts),
		newTokenCmd(opts),
		newAuditSinkCmd(opts),
	)
	return cmd
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	cmd := NewRootCommand(out, errOut)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// config loads configuration and applies flag overrides.
func (o *rootOptions) config() (*config.Config, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	if o.Policy != "" {
		p, err := verification.ParsePolicy(o.Policy)
		if err != nil {
			return nil, err
		}
		cfg.Matching.Policy = p
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	return cfg, nil
}

// logger writes text logs to stderr so stdout stays machine-readable.
func (o *rootOptions) logger(cfg *config.Config) *slog.Logger {
	level := o.LogLevel
	if cfg != nil && level == "" {
		level = cfg.Log.Level
	}
	return logger.NewWithWriter(o.errOut, level, "text")
}

func (o *rootOptions) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout > 0 {
		return context.WithTimeout(ctx, o.Timeout)
	}
	return context.WithCancel(ctx)
}

func exactArgs(n int, names string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("%s requires %s", cmd.Name(), names)
		}
		return nil
	}
}
