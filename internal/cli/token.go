package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	jwttoken "nameguard/internal/jwt_token"
	"nameguard/internal/platform/config"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <caller>",
		Short: "Mint an API bearer token for a calling system",
		Long: `Mint an HS256 bearer token for the verification API. The caller name is
recorded as the actor on every audit event. Requires JWT_SIGNING_KEY.`,
		Args: exactArgs(1, "a caller name"),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := os.Getenv(config.EnvJWTSigningKey)
			if key == "" {
				return errors.New(config.EnvJWTSigningKey + " is not set")
			}
			svc := jwttoken.NewJWTService(key, jwttoken.Issuer, jwttoken.Audience)
			token, err := svc.GenerateAccessToken(args[0], ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
