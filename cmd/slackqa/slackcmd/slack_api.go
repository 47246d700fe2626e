package slackcmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quailyquaily/slackqa/internal/chathistory"
	"github.com/slack-go/slack"
)

const defaultSlackAPIBaseURL = "https://slack.com/api/"

// slackAPI holds the app-level token calls needed to open a Socket Mode
// connection.
type slackAPI struct {
	http     *http.Client
	baseURL  string
	appToken string
}

func newSlackAPI(httpClient *http.Client, baseURL, appToken string) *slackAPI {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL = strings.TrimSpace(strings.TrimRight(baseURL, "/"))
	if baseURL == "" {
		baseURL = strings.TrimRight(defaultSlackAPIBaseURL, "/")
	}
	return &slackAPI{
		http:     httpClient,
		baseURL:  baseURL,
		appToken: strings.TrimSpace(appToken),
	}
}

type slackOpenConnectionResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	URL   string `json:"url,omitempty"`
}

func (api *slackAPI) openSocketURL(ctx context.Context) (string, error) {
	if api == nil {
		return "", fmt.Errorf("slack api is not initialized")
	}
	body, status, err := api.postAuthJSON(ctx, api.appToken, "/apps.connections.open", nil)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("slack apps.connections.open http %d", status)
	}
	var out slackOpenConnectionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if !out.OK {
		code := strings.TrimSpace(out.Error)
		if code == "" {
			code = "unknown_error"
		}
		return "", fmt.Errorf("slack apps.connections.open failed: %s", code)
	}
	url := strings.TrimSpace(out.URL)
	if url == "" {
		return "", fmt.Errorf("slack apps.connections.open returned empty url")
	}
	return url, nil
}

func (api *slackAPI) connectSocket(ctx context.Context) (*websocket.Conn, error) {
	url, err := api.openSocketURL(ctx)
	if err != nil {
		return nil, err
	}
	dialer := *websocket.DefaultDialer
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (api *slackAPI) postAuthJSON(ctx context.Context, token, path string, payload any) ([]byte, int, error) {
	if api == nil || api.http == nil {
		return nil, 0, fmt.Errorf("slack api is not initialized")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, 0, fmt.Errorf("slack token is required")
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, api.baseURL+path, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := api.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp.StatusCode, readErr
	}
	return raw, resp.StatusCode, nil
}

// webTransport serves the bot-token Web API calls through slack-go.
type webTransport struct {
	client    *slack.Client
	botID     string
	botUserID string
	teamID    string
}

func newWebTransport(ctx context.Context, httpClient *http.Client, baseURL, botToken string) (*webTransport, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultSlackAPIBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	opts := []slack.Option{slack.OptionAPIURL(baseURL)}
	if httpClient != nil {
		opts = append(opts, slack.OptionHTTPClient(httpClient))
	}
	client := slack.New(strings.TrimSpace(botToken), opts...)

	auth, err := client.AuthTestContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("slack auth.test: %w", err)
	}
	t := &webTransport{
		client:    client,
		botID:     strings.TrimSpace(auth.BotID),
		botUserID: strings.TrimSpace(auth.UserID),
		teamID:    strings.TrimSpace(auth.TeamID),
	}
	if t.botUserID == "" {
		return nil, fmt.Errorf("slack auth.test returned empty user_id")
	}
	return t, nil
}

func (t *webTransport) BotIdentity() string {
	return t.botID
}

func (t *webTransport) FetchThread(ctx context.Context, channel, threadTS string) ([]chathistory.RawMessage, error) {
	params := &slack.GetConversationRepliesParameters{
		ChannelID: strings.TrimSpace(channel),
		Timestamp: strings.TrimSpace(threadTS),
		Limit:     200,
	}
	var out []chathistory.RawMessage
	for {
		msgs, hasMore, cursor, err := t.client.GetConversationRepliesContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("slack conversations.replies: %w", err)
		}
		for _, m := range msgs {
			out = append(out, chathistory.RawMessage{
				TS:    m.Timestamp,
				User:  m.User,
				BotID: m.BotID,
				Text:  m.Text,
			})
		}
		if !hasMore || strings.TrimSpace(cursor) == "" {
			return out, nil
		}
		params.Cursor = cursor
	}
}

// PostReply posts text in the thread and broadcasts it to the channel.
// Rate limits and 5xx responses are retried.
func (t *webTransport) PostReply(ctx context.Context, channel, threadTS, text string) error {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return fmt.Errorf("channel_id is required")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text is required")
	}
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if ts := strings.TrimSpace(threadTS); ts != "" {
		opts = append(opts, slack.MsgOptionTS(ts), slack.MsgOptionBroadcast())
	}

	const maxAttempts = 3
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		_, _, err := t.client.PostMessageContext(ctx, channel, opts...)
		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("slack chat.postMessage: %w", err)
		if attempt >= maxAttempts {
			break
		}
		wait, retryable := slackRetryDelay(err, attempt)
		if !retryable {
			break
		}
		if err := sleepWithContext(ctx, wait); err != nil {
			return err
		}
	}
	return lastErr
}

func slackRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimited *slack.RateLimitedError
	if errors.As(err, &rateLimited) {
		return rateLimited.RetryAfter, true
	}
	var statusErr slack.StatusCodeError
	if errors.As(err, &statusErr) && statusErr.Code >= 500 && statusErr.Code <= 599 {
		switch attempt {
		case 1:
			return 300 * time.Millisecond, true
		case 2:
			return 1 * time.Second, true
		default:
			return 2 * time.Second, true
		}
	}
	return 0, false
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
