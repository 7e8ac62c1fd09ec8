// Command relayctl runs postings and summaries once, for cron or by hand.
//
//	relayctl post-fixtures --next-month
//	relayctl post-results --previous-month
//	relayctl publish-summary --kind results --month 2025-01
//	relayctl summarize --kind fixtures --from 2025-01-01 --to 2025-01-15
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday-relay/internal/app"
	"github.com/riskibarqy/matchday-relay/internal/config"
	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	"github.com/riskibarqy/matchday-relay/internal/domain/summary"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type runFunc func(ctx context.Context, c *app.Container, period summary.Period) (any, error)

func newRootCmd() *cobra.Command {
	var flags periodFlags

	root := &cobra.Command{
		Use:           "relayctl",
		Short:         "Run fixture, result and summary postings once",
		SilenceUsage: true,
	}
	flags.register(root)

	root.AddCommand(
		postCmd(&flags, "post-fixtures", "Post fixtures in the period", func(ctx context.Context, c *app.Container, p summary.Period) (any, error) {
			return c.Posting.PostFixtures(ctx, p)
		}),
		postCmd(&flags, "post-results", "Post results in the period", func(ctx context.Context, c *app.Container, p summary.Period) (any, error) {
			return c.Posting.PostResults(ctx, p)
		}),
		summaryCmd(&flags, "summarize", "Compute a period summary without dispatching", false),
		summaryCmd(&flags, "publish-summary", "Compute and publish a period summary", true),
	)
	return root
}

func postCmd(flags *periodFlags, use, short string, fn runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, flags, fn)
		},
	}
}

func summaryCmd(flags *periodFlags, use, short string, publish bool) *cobra.Command {
	var kindFlag string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, ok := record.ParseKind(kindFlag)
			if !ok {
				return crerr.Newf("unknown --kind %q: want fixtures or results", kindFlag)
			}
			return run(cmd, flags, func(ctx context.Context, c *app.Container, p summary.Period) (any, error) {
				if publish {
					return c.Aggregator.PublishSummary(ctx, kind, p)
				}
				return c.Aggregator.Summarize(ctx, kind, p)
			})
		},
	}
	cmd.Flags().StringVar(&kindFlag, "kind", string(record.KindResults), "record kind: fixtures or results")
	return cmd
}

func run(cmd *cobra.Command, flags *periodFlags, fn runFunc) error {
	period, err := flags.resolve(time.Now().UTC())
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.NewJSONTo(cmd.ErrOrStderr(), cfg.LogLevel).Named("relayctl")
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Warn("close backends", "error", err)
		}
	}()

	logger.Info("running", "command", cmd.Name(), "period", period.Label())
	result, err := fn(ctx, container, period)
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), result)
}

func writeResult(w io.Writer, result any) error {
	encoded, err := sonic.ConfigStd.MarshalIndent(result, "", "  ")
	if err != nil {
		return crerr.Wrap(err, "encode result")
	}
	_, err = w.Write(append(encoded, '\n'))
	return err
}
