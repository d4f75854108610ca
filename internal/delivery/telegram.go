// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/one2talk/votekeeper/internal/logging"
)

const (
	// DefaultTelegramAPI is the Bot API base URL.
	DefaultTelegramAPI = "https://api.telegram.org"
	// DefaultTelegramTimeout bounds one upload.
	DefaultTelegramTimeout = 120 * time.Second
)

// Telegram posts archives to a chat with the Bot API sendDocument method.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

// TelegramOption customises a Telegram sink.
type TelegramOption func(*Telegram)

// WithAPIBase points the sink at another Bot API server.
func WithAPIBase(u string) TelegramOption {
	return func(t *Telegram) { t.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client, including its timeout.
func WithHTTPClient(c *http.Client) TelegramOption { return func(t *Telegram) { t.client = c } }

// NewTelegram returns a sink for chatID. Both token and chat id are required.
func NewTelegram(token, chatID string, timeout time.Duration, opts ...TelegramOption) (*Telegram, error) {
	if token == "" || chatID == "" {
		return nil, fmt.Errorf("%w: telegram bot token and chat id are required", ErrNotConfigured)
	}
	if timeout <= 0 {
		timeout = DefaultTelegramTimeout
	}
	t := &Telegram{
		token:   token,
		chatID:  chatID,
		baseURL: DefaultTelegramAPI,
		client:  &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Name implements Sink.
func (t *Telegram) Name() string { return "telegram" }

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Deliver uploads the archive with a Markdown caption. The file is streamed,
// not buffered.
func (t *Telegram) Deliver(ctx context.Context, r Report) error {
	f, err := os.Open(r.ArchivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, t.chatID, Caption(r), r.Name(), f))
	}()

	endpoint := t.baseURL + "/bot" + t.token + "/sendDocument"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		_ = pr.Close()
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	logging.Infof("delivery: sending %s to telegram chat %s", r.Name(), t.chatID)
	resp, err := t.client.Do(req)
	if err != nil {
		_ = pr.Close()
		// url.Error carries the request URL, which embeds the bot token.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fmt.Errorf("telegram upload: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read telegram response: %w", err)
	}
	var tr telegramResponse
	jsonErr := json.Unmarshal(body, &tr)
	if resp.StatusCode != http.StatusOK {
		desc := tr.Description
		if jsonErr != nil || desc == "" {
			desc = strings.TrimSpace(string(body))
		}
		return fmt.Errorf("%w: telegram http %d: %s", ErrRejected, resp.StatusCode, desc)
	}
	if jsonErr != nil {
		return fmt.Errorf("%w: malformed telegram response: %v", ErrRejected, jsonErr)
	}
	if !tr.OK {
		return fmt.Errorf("%w: telegram api error: %s", ErrRejected, tr.Description)
	}
	logging.Infof("delivery: telegram accepted %s", r.Name())
	return nil
}

func writeForm(mw *multipart.Writer, chatID, caption, name string, doc io.Reader) error {
	fields := [][2]string{{"chat_id", chatID}, {"caption", caption}, {"parse_mode", "Markdown"}}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("document", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, doc); err != nil {
		return err
	}
	return mw.Close()
}
