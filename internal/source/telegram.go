package source

import (
	"context"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSource streams a file hosted by the Telegram Bot API. The file
// ID is resolved to a short-lived download URL at Open time, because the
// URLs Telegram hands out expire.
type TelegramSource struct {
	api    *tgbotapi.BotAPI
	fileID string
	name   string
	size   int64
	client *http.Client
}

// NewTelegramSource creates a source for the given Telegram file ID.
// size is the size Telegram declared for the file, SizeUnknown if none.
func NewTelegramSource(api *tgbotapi.BotAPI, fileID, name string, size int64) *TelegramSource {
	if size <= 0 {
		size = SizeUnknown
	}
	return &TelegramSource{
		api:    api,
		fileID: fileID,
		name:   name,
		size:   size,
		client: http.DefaultClient,
	}
}

func (s *TelegramSource) Name() string {
	return s.name
}

func (s *TelegramSource) Size() int64 {
	return s.size
}

func (s *TelegramSource) Open(ctx context.Context) (io.ReadCloser, error) {
	file, err := s.api.GetFile(tgbotapi.FileConfig{FileID: s.fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Telegram file: %w", err)
	}
	if file.FileSize > 0 {
		s.size = int64(file.FileSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(s.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build Telegram download request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download Telegram file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("Telegram file download returned HTTP %d", resp.StatusCode)
	}
	return resp.Body, nil
}
