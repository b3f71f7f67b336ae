// Package bot hosts the transfer pipeline behind a Telegram bot: every
// incoming media message becomes one transfer request, each processed by
// its own worker.
package bot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"teleferry/internal/source"
	"teleferry/internal/transfer"
	"teleferry/pkg/utils"
)

// Bot relays files from Telegram messages to the destination folder.
type Bot struct {
	api      *tgbotapi.BotAPI
	orch     *transfer.Orchestrator
	folderID string

	handler   func(ctx context.Context, msg *tgbotapi.Message, m media)
	transfers sync.WaitGroup
}

// New creates a bot host for the given token.
func New(token string, orch *transfer.Orchestrator, folderID string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	b := &Bot{api: api, orch: orch, folderID: folderID}
	b.handler = b.handle
	return b, nil
}

// Run polls for updates until ctx is cancelled. Each media message is
// handled by its own goroutine; concurrent transfers share nothing but
// the destination's connection pool.
func (b *Bot) Run(ctx context.Context) error {
	log.Printf("Bot authorized as @%s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	return b.dispatch(ctx, updates)
}

// dispatch fans media messages out to one worker goroutine each and
// waits for in-flight transfers before returning, so every staged file
// is released before the process exits.
func (b *Bot) dispatch(ctx context.Context, updates <-chan tgbotapi.Update) error {
	defer b.transfers.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			m, ok := pickMedia(update.Message)
			if !ok {
				continue
			}
			b.transfers.Add(1)
			go func(msg *tgbotapi.Message, m media) {
				defer b.transfers.Done()
				b.handler(ctx, msg, m)
			}(update.Message, m)
		}
	}
}

// handle runs one transfer and reports the single terminal outcome back
// to the chat.
func (b *Bot) handle(ctx context.Context, msg *tgbotapi.Message, m media) {
	log.Printf("Transfer requested: %s (%s) from chat %d", m.name, utils.FormatFileSize(m.size), msg.Chat.ID)

	status, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Uploading %s...", m.name)))
	if err != nil {
		log.Printf("Failed to send status message: %v", err)
	}

	src := source.NewTelegramSource(b.api, m.fileID, m.name, m.size)
	outcome := b.orch.Run(ctx, transfer.Request{Source: src, Name: m.name, Folder: b.folderID})

	var text string
	if outcome.Err != nil {
		text = fmt.Sprintf("Upload of %s failed: %v", m.name, outcome.Err)
	} else if outcome.Object.Link != "" {
		text = fmt.Sprintf("Uploaded %s\n%s", m.name, outcome.Object.Link)
	} else {
		text = fmt.Sprintf("Uploaded %s (id %s)", m.name, outcome.Object.ID)
	}

	if status.MessageID != 0 {
		if _, err := b.api.Send(tgbotapi.NewEditMessageText(msg.Chat.ID, status.MessageID, text)); err != nil {
			log.Printf("Failed to edit status message: %v", err)
		}
	} else {
		if _, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, text)); err != nil {
			log.Printf("Failed to send outcome message: %v", err)
		}
	}
}

// media is the file reference extracted from an incoming message.
type media struct {
	fileID string
	name   string
	size   int64
}

// pickMedia extracts the transferable attachment from a message. Photos
// use the highest-quality rendition; attachments without a declared name
// get a timestamped one.
func pickMedia(msg *tgbotapi.Message) (media, bool) {
	stamp := time.Now().Format("20060102_150405")

	switch {
	case msg.Document != nil:
		name := msg.Document.FileName
		if name == "" {
			name = "document_" + stamp
		}
		return media{msg.Document.FileID, name, int64(msg.Document.FileSize)}, true
	case msg.Video != nil:
		return media{msg.Video.FileID, "video_" + stamp + ".mp4", int64(msg.Video.FileSize)}, true
	case msg.Animation != nil:
		return media{msg.Animation.FileID, "animation_" + stamp + ".gif", int64(msg.Animation.FileSize)}, true
	case msg.Audio != nil:
		name := msg.Audio.FileName
		if name == "" {
			name = "audio_" + stamp + ".mp3"
		}
		return media{msg.Audio.FileID, name, int64(msg.Audio.FileSize)}, true
	case msg.Voice != nil:
		return media{msg.Voice.FileID, "voice_" + stamp + ".ogg", int64(msg.Voice.FileSize)}, true
	case len(msg.Photo) > 0:
		photo := msg.Photo[len(msg.Photo)-1]
		return media{photo.FileID, "photo_" + stamp + ".jpg", int64(photo.FileSize)}, true
	default:
		return media{}, false
	}
}
