package slackcmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quailyquaily/slackqa/internal/slackbot"
	"github.com/slack-go/slack/slackevents"
)

var socketReconnectDelay = 2 * time.Second

var errSocketDisconnect = errors.New("slack requested disconnect")

type slackSocketEnvelope struct {
	EnvelopeID string          `json:"envelope_id,omitempty"`
	Type       string          `json:"type,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

type socketConnector interface {
	connectSocket(ctx context.Context) (*websocket.Conn, error)
}

// runSocketLoop keeps a Socket Mode connection open until ctx is done,
// reconnecting after errors and disconnect requests.
func runSocketLoop(ctx context.Context, logger *slog.Logger, api socketConnector, onEnvelope func(envelope slackSocketEnvelope) error) {
	for {
		if ctx.Err() != nil {
			logger.Info("slack_stop", "reason", "context_canceled")
			return
		}
		conn, err := api.connectSocket(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("slack_stop", "reason", "context_canceled")
				return
			}
			logger.Warn("slack_socket_connect_error", "error", err.Error())
			if err := sleepWithContext(ctx, socketReconnectDelay); err != nil {
				return
			}
			continue
		}
		logger.Info("slack_socket_connected")
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		readErr := consumeSlackSocket(ctx, conn, onEnvelope)
		stop()
		_ = conn.Close()
		switch {
		case readErr == nil, errors.Is(readErr, context.Canceled), errors.Is(readErr, context.DeadlineExceeded):
		case errors.Is(readErr, errSocketDisconnect):
			logger.Info("slack_socket_disconnect", "reason", readErr.Error())
			continue
		default:
			if ctx.Err() == nil {
				logger.Warn("slack_socket_read_error", "error", readErr.Error())
				if err := sleepWithContext(ctx, socketReconnectDelay); err != nil {
					return
				}
			}
		}
	}
}

// consumeSlackSocket acks every envelope before handing it to onEnvelope.
func consumeSlackSocket(ctx context.Context, conn *websocket.Conn, onEnvelope func(envelope slackSocketEnvelope) error) error {
	if conn == nil {
		return fmt.Errorf("slack websocket connection is nil")
	}
	for {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		var envelope slackSocketEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			continue
		}
		if strings.TrimSpace(envelope.EnvelopeID) != "" {
			if err := conn.WriteJSON(map[string]string{"envelope_id": envelope.EnvelopeID}); err != nil {
				return err
			}
		}
		if envelope.Type == "disconnect" {
			reason := strings.TrimSpace(envelope.Reason)
			if reason == "" {
				reason = "unknown"
			}
			return fmt.Errorf("%w: %s", errSocketDisconnect, reason)
		}
		if onEnvelope == nil {
			continue
		}
		if err := onEnvelope(envelope); err != nil {
			return err
		}
	}
}

type inboundKind int

const (
	inboundIgnored inboundKind = iota
	inboundMention
	inboundMessage
)

// parseSocketEvent decodes an events_api envelope. Only app mentions become
// work; plain messages are reported so they can be logged.
func parseSocketEvent(envelope slackSocketEnvelope) (slackbot.MentionEvent, inboundKind, error) {
	if strings.TrimSpace(envelope.Type) != "events_api" || len(envelope.Payload) == 0 {
		return slackbot.MentionEvent{}, inboundIgnored, nil
	}
	event, err := slackevents.ParseEvent(envelope.Payload, slackevents.OptionNoVerifyToken())
	if err != nil {
		return slackbot.MentionEvent{}, inboundIgnored, err
	}
	if event.Type != slackevents.CallbackEvent {
		return slackbot.MentionEvent{}, inboundIgnored, nil
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		if strings.TrimSpace(ev.BotID) != "" {
			return slackbot.MentionEvent{}, inboundIgnored, nil
		}
		out := slackbot.MentionEvent{
			Text:     ev.Text,
			Channel:  strings.TrimSpace(ev.Channel),
			TS:       strings.TrimSpace(ev.TimeStamp),
			ThreadTS: strings.TrimSpace(ev.ThreadTimeStamp),
			User:     strings.TrimSpace(ev.User),
		}
		if out.Channel == "" || out.TS == "" {
			return slackbot.MentionEvent{}, inboundIgnored, fmt.Errorf("app_mention without channel or ts")
		}
		return out, inboundMention, nil
	case *slackevents.MessageEvent:
		return slackbot.MentionEvent{
			Text:     ev.Text,
			Channel:  ev.Channel,
			TS:       ev.TimeStamp,
			ThreadTS: ev.ThreadTimeStamp,
			User:     ev.User,
		}, inboundMessage, nil
	default:
		return slackbot.MentionEvent{}, inboundIgnored, nil
	}
}
