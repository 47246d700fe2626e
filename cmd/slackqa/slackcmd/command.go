package slackcmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/quailyquaily/slackqa/internal/config"
	"github.com/quailyquaily/slackqa/internal/configutil"
	"github.com/quailyquaily/slackqa/internal/healthcheck"
	"github.com/quailyquaily/slackqa/internal/llminspect"
	"github.com/quailyquaily/slackqa/internal/slackbot"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const mentionQueueSize = 64

func newSlackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slack",
		Short: "Run the Slack bot with Socket Mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			ctx := cmd.Context()

			var inspector *llminspect.PromptInspector
			if configutil.FlagOrViperBool(cmd, "inspect-prompt", "") {
				inspector, err = llminspect.NewPromptInspector(llminspect.Options{
					Mode:            "slack",
					Task:            "slack",
					TimestampFormat: "20060102_150405",
				})
				if err != nil {
					return err
				}
				defer func() { _ = inspector.Close() }()
				logger.Info("slack_inspect_prompt", "path", inspector.Path())
			}

			chain, closeChain, err := newChain(cmd, cfg, logger, inspector)
			if err != nil {
				return err
			}
			defer func() { _ = closeChain() }()

			httpClient := &http.Client{Timeout: 30 * time.Second}
			transport, err := newWebTransport(ctx, httpClient, cfg.Slack.APIBaseURL, cfg.Slack.BotToken)
			if err != nil {
				return err
			}
			if transport.BotIdentity() == "" {
				logger.Warn("slack_bot_id_missing", "bot_user_id", transport.botUserID)
			}
			api := newSlackAPI(httpClient, cfg.Slack.APIBaseURL, cfg.Slack.AppToken)

			handler, err := slackbot.NewHandler(slackbot.Options{
				Transport:    transport,
				Chain:        chain,
				HistoryCount: cfg.MessageHistoryCount,
				Logger:       logger,
			})
			if err != nil {
				return err
			}

			taskTimeout := configutil.FlagOrViperDuration(cmd, "slack-task-timeout", config.KeySlackTaskTimeout)
			if taskTimeout <= 0 {
				taskTimeout = 10 * time.Minute
			}
			maxConc := configutil.FlagOrViperInt(cmd, "slack-max-concurrency", config.KeySlackMaxConcurrency)
			if maxConc <= 0 {
				maxConc = 1
			}

			healthListen := healthcheck.NormalizeListen(configutil.FlagOrViperString(cmd, "health-listen", config.KeyHealthListen))
			if healthListen != "" {
				healthServer, err := healthcheck.StartServer(ctx, logger, healthListen, "slack")
				if err != nil {
					logger.Warn("slack_health_server_start_error", "addr", healthListen, "error", err.Error())
				} else {
					defer func() {
						shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
						_ = healthServer.Shutdown(shutdownCtx)
						cancel()
					}()
				}
			}

			logger.Info("slack_start",
				"bot_user_id", transport.botUserID,
				"bot_id", transport.botID,
				"team_id", transport.teamID,
				"model", chain.Model,
				"history_count", cfg.MessageHistoryCount,
				"task_timeout", taskTimeout.String(),
				"max_concurrency", maxConc,
			)

			jobs := make(chan slackbot.MentionEvent, mentionQueueSize)
			g, gctx := errgroup.WithContext(ctx)
			for i := 0; i < maxConc; i++ {
				g.Go(func() error {
					runMentionWorker(gctx, logger, handler, jobs, taskTimeout)
					return nil
				})
			}
			g.Go(func() error {
				defer close(jobs)
				runSocketLoop(gctx, logger, api, func(envelope slackSocketEnvelope) error {
					return dispatchEnvelope(gctx, logger, envelope, transport.botUserID, jobs)
				})
				return nil
			})
			return g.Wait()
		},
	}

	cmd.Flags().String("model", "", "Model profile used for answers (overrides DEFAULT_MODEL).")
	cmd.Flags().Duration("slack-task-timeout", 0, "Per-mention timeout (overrides SLACK_TASK_TIMEOUT).")
	cmd.Flags().Int("slack-max-concurrency", 0, "Number of mentions handled concurrently (overrides SLACK_MAX_CONCURRENCY).")
	cmd.Flags().String("health-listen", "", "Serve GET /health on this address, e.g. :8080 (overrides HEALTH_LISTEN).")
	cmd.Flags().Bool("inspect-prompt", false, "Dump prompts (messages) to ./dump/prompt_slack_YYYYMMDD_HHmmss.md.")

	return cmd
}

// dispatchEnvelope queues app mentions for the workers. Parse failures are
// logged and skipped so one bad event does not drop the connection.
func dispatchEnvelope(ctx context.Context, logger *slog.Logger, envelope slackSocketEnvelope, botUserID string, jobs chan<- slackbot.MentionEvent) error {
	ev, kind, err := parseSocketEvent(envelope)
	if err != nil {
		logger.Debug("slack_event_parse_error", "envelope_id", envelope.EnvelopeID, "error", err.Error())
		return nil
	}
	switch kind {
	case inboundMessage:
		logger.Debug("slack_message_event", "channel", ev.Channel, "ts", ev.TS, "user", ev.User)
		return nil
	case inboundMention:
	default:
		return nil
	}
	if ev.User != "" && ev.User == botUserID {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case jobs <- ev:
		logger.Debug("slack_mention_queued", "channel", ev.Channel, "ts", ev.TS)
		return nil
	}
}

func runMentionWorker(ctx context.Context, logger *slog.Logger, handler *slackbot.Handler, jobs <-chan slackbot.MentionEvent, timeout time.Duration) {
	for ev := range jobs {
		if ctx.Err() != nil {
			logger.Warn("slack_mention_dropped", "channel", ev.Channel, "ts", ev.TS, "reason", "shutdown")
			continue
		}
		taskCtx, cancel := context.WithTimeout(llminspect.WithModelScene(ctx, "slack.mention"), timeout)
		if err := handler.HandleMention(taskCtx, ev); err != nil {
			logger.Warn("slack_mention_failed", "channel", ev.Channel, "ts", ev.TS, "error", fmt.Sprint(err))
		}
		cancel()
	}
}
