package cli

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"nameguard/internal/app"
	vhandler "nameguard/internal/verification/handler"
	"nameguard/pkg/requestcontext"
)

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <target> <candidate>",
		Short: "Verify one name pair and print the decision as JSON",
		Example: `  nameguard verify "John O'Brien" "john obrien"
  nameguard verify --policy verifier_only "Stephen Smith" "Steven Smyth"`,
		Args: exactArgs(2, "a target and a candidate name"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			log := opts.logger(cfg)

			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			stack, err := app.Build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer stack.Close()

			requestID := uuid.NewString()
			ctx = requestcontext.WithRequestID(ctx, requestID)
			ctx = requestcontext.WithCaller(ctx, "cli")

			result, err := stack.Service.Verify(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(vhandler.FromResult(result, requestID))
		},
	}
}
