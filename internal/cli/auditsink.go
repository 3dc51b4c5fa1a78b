package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"nameguard/internal/platform/config"
	"nameguard/pkg/platform/audit/consumer"
	pgstore "nameguard/pkg/platform/audit/store/postgres"
	pstrings "nameguard/pkg/platform/strings"
)

func newAuditSinkCmd(opts *rootOptions) *cobra.Command {
	var (
		brokers string
		topic   string
		group   string
		dsn     string
	)

	cmd := &cobra.Command{
		Use:   "audit-sink",
		Short: "Copy the Kafka audit stream into PostgreSQL",
		Long: `Consume compliance audit events from Kafka and append them to the
audit_events table. Runs until interrupted. Offsets are committed only after
events are stored, so a restart may replay events; inserts are idempotent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seeds := pstrings.SplitList(brokers)
			if len(seeds) == 0 {
				return errors.New("no brokers: set --brokers or " + config.EnvKafkaBrokers)
			}
			if dsn == "" {
				return errors.New("no database: set --database-url or " + config.EnvDatabaseURL)
			}
			log := opts.logger(nil)

			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			db, err := pgstore.Open(ctx, dsn)
			if err != nil {
				return err
			}
			defer db.Close()
			store := pgstore.New(db)
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}

			c, err := consumer.New(seeds, topic, group, store, log)
			if err != nil {
				return err
			}
			defer c.Close()

			log.InfoContext(ctx, "audit sink running", "topic", topic, "group", group)
			return c.Run(ctx)
		},
	}

	f := cmd.Flags()
	f.StringVar(&brokers, "brokers", os.Getenv(config.EnvKafkaBrokers), "comma-separated Kafka seed brokers")
	f.StringVar(&topic, "topic", envOr(config.EnvAuditTopic, config.DefaultAuditTopic), "audit topic")
	f.StringVar(&group, "group", consumer.DefaultGroup, "consumer group")
	f.StringVar(&dsn, "database-url", os.Getenv(config.EnvDatabaseURL), "PostgreSQL connection string")
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
