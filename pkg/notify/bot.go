package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/example/storefront/pkg/config"
	"go.uber.org/zap"
)

// Photo is a buffered image upload. Buffered because one receipt fans out to
// several recipients and a reader can only be consumed once.
type Photo struct {
	Filename    string
	ContentType string
	Data        []byte
}

// BotClient calls the messaging bot API: plain text messages and
// photo-with-caption uploads addressed by chat id.
type BotClient struct {
	apiURL     string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewBotClient(cfg *config.BotConfig, logger *zap.Logger) *BotClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BotClient{
		apiURL: cfg.APIURL,
		token:  cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (b *BotClient) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", b.apiURL, b.token, method)
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (b *BotClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.methodURL("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bot request failed: %w", err)
	}
	defer resp.Body.Close()

	if _, err := decodeResponse(resp); err != nil {
		return err
	}
	return nil
}

// SendPhoto uploads the photo with a caption and returns the file id the bot
// API assigned to the stored image.
func (b *BotClient) SendPhoto(ctx context.Context, chatID int64, photo Photo, caption string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return "", fmt.Errorf("failed to write chat_id field: %w", err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return "", fmt.Errorf("failed to write caption field: %w", err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename=%q`, photo.Filename))
	header.Set("Content-Type", photo.ContentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create photo part: %w", err)
	}
	if _, err := part.Write(photo.Data); err != nil {
		return "", fmt.Errorf("failed to write photo data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.methodURL("sendPhoto"), &buf)
	if err != nil {
		return "", fmt.Errorf("failed to build photo request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("bot request failed: %w", err)
	}
	defer resp.Body.Close()

	result, err := decodeResponse(resp)
	if err != nil {
		return "", err
	}

	// The API returns the stored photo in several sizes; the last entry is
	// the largest.
	var message struct {
		Photo []struct {
			FileID string `json:"file_id"`
		} `json:"photo"`
	}
	if err := json.Unmarshal(result, &message); err != nil {
		return "", fmt.Errorf("failed to decode photo result: %w", err)
	}
	if len(message.Photo) == 0 {
		return "", nil
	}
	return message.Photo[len(message.Photo)-1].FileID, nil
}

func decodeResponse(resp *http.Response) (json.RawMessage, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read bot response: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode bot response: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("bot API error: %s", parsed.Description)
	}
	return parsed.Result, nil
}
