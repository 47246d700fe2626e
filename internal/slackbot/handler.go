package slackbot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quailyquaily/slackqa/internal/chathistory"
	"github.com/quailyquaily/slackqa/internal/outputfmt"
	"github.com/quailyquaily/slackqa/internal/qa"
)

// MentionEvent is an app_mention delivered by the chat platform.
type MentionEvent struct {
	Text     string
	Channel  string
	TS       string
	ThreadTS string
	User     string
}

// ReplyThreadTS is the thread the reply belongs to: the event's thread, or a
// new thread rooted at the mention itself.
func (e MentionEvent) ReplyThreadTS() string {
	if ts := strings.TrimSpace(e.ThreadTS); ts != "" {
		return ts
	}
	return strings.TrimSpace(e.TS)
}

type Transport interface {
	// BotIdentity is the bot_id that marks the bot's own thread messages.
	BotIdentity() string
	FetchThread(ctx context.Context, channel, threadTS string) ([]chathistory.RawMessage, error)
	PostReply(ctx context.Context, channel, threadTS, text string) error
}

type Handler struct {
	transport    Transport
	chain        qa.Runner
	historyCount int
	log          *slog.Logger
}

type Options struct {
	Transport    Transport
	Chain        qa.Runner
	HistoryCount int
	Logger       *slog.Logger
}

func NewHandler(opts Options) (*Handler, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("slackbot: transport is required")
	}
	if opts.Chain == nil {
		return nil, fmt.Errorf("slackbot: qa chain is required")
	}
	if opts.HistoryCount < 0 {
		return nil, fmt.Errorf("slackbot: history count must be non-negative")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		transport:    opts.Transport,
		chain:        opts.Chain,
		historyCount: opts.HistoryCount,
		log:          log,
	}, nil
}

// HandleMention answers one mention and posts the reply in its thread.
// Collaborator failures are posted to the thread as a failure message; the
// returned error only reports that the reply itself could not be sent.
func (h *Handler) HandleMention(ctx context.Context, ev MentionEvent) error {
	requestID := newRequestID()
	log := h.log.With("request_id", requestID, "channel", ev.Channel, "ts", ev.TS, "thread_ts", ev.ThreadTS)
	start := time.Now()
	log.Info("slack_mention_start", "user", ev.User)

	reply, err := h.answer(ctx, log, ev)
	if err != nil {
		log.Error("slack_mention_error", "error", err.Error())
		reply = outputfmt.ComposeFailure(err)
	}

	if err := h.transport.PostReply(ctx, ev.Channel, ev.ReplyThreadTS(), reply); err != nil {
		log.Error("slack_reply_error", "error", err.Error())
		return fmt.Errorf("post reply: %w", err)
	}
	log.Info("slack_mention_done", "ok", err == nil, "elapsed", time.Since(start).String())
	return nil
}

func (h *Handler) answer(ctx context.Context, log *slog.Logger, ev MentionEvent) (string, error) {
	history := chathistory.Transcript{}
	if strings.TrimSpace(ev.ThreadTS) != "" && h.historyCount > 0 {
		raw, err := h.transport.FetchThread(ctx, ev.Channel, ev.ThreadTS)
		if err != nil {
			return "", &outputfmt.Failure{Cause: fmt.Errorf("fetch thread: %w", err)}
		}
		history = chathistory.Extract(raw, h.transport.BotIdentity(), h.historyCount)
		log.Debug("slack_thread_history", "messages", len(raw), "turns", len(history))
	}

	result, err := h.chain.Run(ctx, ev.Text, history)
	if err != nil {
		return "", &outputfmt.Failure{Cause: err}
	}
	log.Debug("slack_qa_result", "sources", len(result.SourceDocuments))
	return outputfmt.ComposeReply(result, ev.User), nil
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
