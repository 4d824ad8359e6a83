// Package telegram posts run digests through the Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsSentiment/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// maxMessageLength is the Bot API limit for sendMessage text.
const maxMessageLength = 4096

// errMisconfigured is returned when the bot token or chat is missing.
var errMisconfigured = errors.New("telegram notifier misconfigured")

// Notifier delivers batch digests to one chat.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier binds a bot to a chat. An empty apiBase uses the public Bot API.
func NewNotifier(botToken, chatID, apiBase string) *Notifier {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  strings.TrimRight(apiBase, "/"),
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// apiResponse is the envelope every Bot API method answers with.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// PublishDigest sends the digest as a Markdown message, truncated to the
// sendMessage limit. A blank digest is not sent.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return errMisconfigured
	}
	if strings.TrimSpace(digest) == "" {
		return nil
	}
	if r := []rune(digest); len(r) > maxMessageLength {
		digest = string(r[:maxMessageLength])
	}

	return n.sendMessage(ctx, url.Values{
		"chat_id":    {n.chatID},
		"text":       {digest},
		"parse_mode": {"Markdown"},
	})
}

func (n *Notifier) sendMessage(ctx context.Context, form url.Values) error {
	endpoint := n.apiBase + "/bot" + n.botToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	defer resp.Body.Close()

	var body apiResponse
	// Bodies that are not the JSON envelope fall through to the status check.
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		body = apiResponse{}
	}

	if resp.StatusCode == http.StatusOK && body.OK {
		return nil
	}
	if body.Description != "" {
		return fmt.Errorf("telegram sendMessage: %s (%s)", body.Description, resp.Status)
	}
	return fmt.Errorf("telegram sendMessage: %s", resp.Status)
}
