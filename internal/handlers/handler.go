package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"story-canvas-ai-bot/internal/draft"
	"story-canvas-ai-bot/internal/gemini"
	"story-canvas-ai-bot/internal/illustration"
	"story-canvas-ai-bot/internal/keystore"
	"story-canvas-ai-bot/internal/pipeline"
	"story-canvas-ai-bot/internal/session"
	"story-canvas-ai-bot/internal/telegram"
)

type Options struct {
	Telegram *telegram.Client
	Sessions *session.Store
	Keys     *keystore.Store
	// FallbackAPIKey serves users who have not stored their own key.
	FallbackAPIKey string
	Logger         *slog.Logger
}

type Handler struct {
	tg        *telegram.Client
	sessions  *session.Store
	keys      *keystore.Store
	fallback  string
	logger    *slog.Logger
	collector *draft.Collector
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		tg:       opts.Telegram,
		sessions: opts.Sessions,
		keys:     opts.Keys,
		fallback: strings.TrimSpace(opts.FallbackAPIKey),
		logger:   logger,
	}
}

func (h *Handler) SetDraftCollector(c *draft.Collector) {
	h.collector = c
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}

	if update.Message == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg)
	}

	if msg.Text != "" {
		return h.handleText(ctx, chatID, userID, msg)
	}

	return nil
}

// HandleStoryDraft runs the analysis stage once a merged draft is ready.
func (h *Handler) HandleStoryDraft(ctx context.Context, story draft.Story) {
	if err := h.analyzeStory(ctx, story.ChatID, story.UserID, story.Text); err != nil {
		h.logger.Error("story handling failed", "err", err, "chat_id", story.ChatID)
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, userID int64, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		h.sessions.Drop(chatID, userID)
		return h.tg.SendText(chatID,
			"🎨 Story Canvas AI Bot\n\n"+
				"Assalomu alaykum! Menga hikoyangizni yuboring — men uni tahlil qilib, unga mos rasm chizib beraman.\n\n"+
				"Buyruqlar:\n"+
				"/start - Botni ishga tushirish\n"+
				"/help - Yordam\n"+
				"/new - Yangi hikoya boshlash\n"+
				"/key - Gemini API kalitini saqlash\n"+
				"/delkey - Saqlangan kalitni o'chirish\n"+
				"/cancel - Joriy amalni bekor qilish",
		)
	case "help":
		return h.tg.SendText(chatID,
			"🎨 Yordam\n\n"+
				"1. Hikoya matnini yuboring.\n"+
				"2. Tahlildan keyin uslub tanlang, kerak bo'lsa sarlavhani tahrirlang.\n"+
				"3. Generate — rasm yaratadi, Download — faylni asl holida yuboradi.\n\n"+
				"/key — o'z Gemini API kalitingizni saqlash.\n"+
				"/new — yangi hikoya, /cancel — joriy amalni bekor qilish.",
		)
	case "new":
		return h.startNewStory(chatID, userID)
	case "key":
		arg := strings.TrimSpace(msg.CommandArguments())
		if arg != "" {
			return h.saveKey(ctx, chatID, userID, msg.MessageID, arg)
		}
		h.sessions.Update(chatID, userID, func(s *session.Session) {
			s.Mode = session.ModeAwaitingKey
		})
		return h.tg.SendText(chatID, "🔑 Gemini API kalitingizni yuboring (bekor qilish: /cancel).")
	case "delkey":
		if err := h.keys.Delete(userKeyName(userID)); err != nil {
			h.logger.Error("key delete failed", "err", err, "chat_id", chatID)
			return h.tg.SendText(chatID, "❌ Kalitni o'chirib bo'lmadi. Qayta urinib ko'ring.")
		}
		return h.tg.SendText(chatID, "🗑 Saqlangan kalit o'chirildi.")
	case "cancel":
		if h.collector != nil {
			h.collector.Discard(chatID, userID)
		}
		h.sessions.Update(chatID, userID, func(s *session.Session) {
			s.Mode = session.ModeNone
			s.Draft = ""
		})
		return h.tg.SendText(chatID, "✅ Bekor qilindi.")
	default:
		return h.tg.SendText(chatID, "❌ Noma'lum buyruq. /help ni ishlating.")
	}
}

func (h *Handler) handleText(ctx context.Context, chatID int64, userID int64, msg *tgbotapi.Message) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	sess := h.sessions.Get(chatID, userID)
	switch sess.Mode {
	case session.ModeAwaitingKey:
		return h.saveKey(ctx, chatID, userID, msg.MessageID, text)
	case session.ModeAwaitingTitle:
		return h.applyTitle(chatID, userID, text)
	}

	if h.collector != nil {
		h.collector.Add(draft.Item{ChatID: chatID, UserID: userID, Text: text})
		return nil
	}

	return h.analyzeStory(ctx, chatID, userID, text)
}

func (h *Handler) analyzeStory(ctx context.Context, chatID int64, userID int64, story string) error {
	apiKey := h.apiKeyFor(userID)
	if apiKey == "" {
		h.sessions.Update(chatID, userID, func(s *session.Session) {
			s.Draft = story
			s.Mode = session.ModeAwaitingKey
		})
		return h.tg.SendText(chatID, msgNeedKey)
	}

	sess := h.sessions.Update(chatID, userID, func(s *session.Session) {
		s.Draft = ""
		s.Mode = session.ModeNone
	})

	h.tg.SendTyping(chatID)
	_ = h.tg.SendText(chatID, "📖 Hikoya tahlil qilinmoqda, biroz kuting...")

	if err := sess.Pipeline.SubmitStory(ctx, apiKey, story); err != nil {
		h.logger.Error("story analysis failed", "err", err, "chat_id", chatID)
		return h.reportError(chatID, err)
	}

	return h.renderWizard(chatID, userID, 0, true)
}

func (h *Handler) startNewStory(chatID int64, userID int64) error {
	if h.collector != nil {
		h.collector.Discard(chatID, userID)
	}

	sess := h.sessions.Get(chatID, userID)
	if err := sess.Pipeline.Reset(); err != nil {
		return h.reportError(chatID, err)
	}

	h.sessions.Update(chatID, userID, func(s *session.Session) {
		s.Mode = session.ModeNone
		s.Draft = ""
		s.WizardMessageID = 0
	})

	return h.tg.SendText(chatID, "🆕 Yangi hikoya. Matnini yuboring.")
}

func (h *Handler) saveKey(ctx context.Context, chatID int64, userID int64, messageID int, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return h.tg.SendText(chatID, "❌ Kalit bo'sh. Qaytadan yuboring yoki /cancel.")
	}

	// The incoming message carries the secret. Scrub it from the chat.
	h.tg.DeleteMessage(chatID, messageID)

	if err := h.keys.Set(userKeyName(userID), key); err != nil {
		h.logger.Error("key save failed", "err", err, "chat_id", chatID)
		return h.tg.SendText(chatID, "❌ Kalitni saqlab bo'lmadi. Qayta urinib ko'ring.")
	}

	sess := h.sessions.Update(chatID, userID, func(s *session.Session) {
		s.Mode = session.ModeNone
	})

	if err := h.tg.SendText(chatID, fmt.Sprintf("✅ Kalit saqlandi (%s).", maskKey(key))); err != nil {
		return err
	}

	if draftText := strings.TrimSpace(sess.Draft); draftText != "" {
		return h.analyzeStory(ctx, chatID, userID, draftText)
	}
	return nil
}

func (h *Handler) applyTitle(chatID int64, userID int64, title string) error {
	sess := h.sessions.Get(chatID, userID)

	if err := sess.Pipeline.SetTitle(title); err != nil {
		return h.reportError(chatID, err)
	}

	h.sessions.Update(chatID, userID, func(s *session.Session) {
		s.Mode = session.ModeNone
	})

	_ = h.tg.SendText(chatID, "✅ Sarlavha yangilandi: "+strings.TrimSpace(title))
	return h.renderWizard(chatID, userID, 0, true)
}

// apiKeyFor prefers the user's stored key over the shared fallback.
func (h *Handler) apiKeyFor(userID int64) string {
	if h.keys != nil {
		if key := h.keys.Get(userKeyName(userID)); key != "" {
			return key
		}
	}
	return h.fallback
}

func (h *Handler) reportError(chatID int64, err error) error {
	var apiErr *gemini.APIError

	switch {
	case errors.Is(err, pipeline.ErrBusy):
		return h.tg.SendText(chatID, "⏳ Oldingi so'rov hali tugamadi, biroz kuting.")
	case errors.Is(err, pipeline.ErrPreconditionNotMet):
		reason := strings.TrimPrefix(err.Error(), pipeline.ErrPreconditionNotMet.Error()+": ")
		return h.tg.SendText(chatID, "❌ Hozir bajarib bo'lmaydi: "+reason+".")
	case errors.Is(err, gemini.ErrBadCredentials):
		return h.tg.SendText(chatID, "🔑 API kalit yaroqsiz. /key bilan yangi kalit yuboring.")
	case errors.Is(err, illustration.ErrNoImage):
		return h.tg.SendText(chatID, "❌ Model rasm qaytarmadi. Qayta urinib ko'ring yoki boshqa uslubni tanlang.")
	case errors.Is(err, gemini.ErrMalformedResponse):
		return h.tg.SendText(chatID, "❌ Model javobini o'qib bo'lmadi. Qayta urinib ko'ring.")
	case errors.As(err, &apiErr):
		return h.tg.SendText(chatID, fmt.Sprintf("❌ Gemini xatolik qaytardi (status %d). Qayta urinib ko'ring.", apiErr.StatusCode))
	case errors.Is(err, context.DeadlineExceeded):
		return h.tg.SendText(chatID, "⌛ So'rov vaqti tugab qoldi. Qayta urinib ko'ring.")
	default:
		return h.tg.SendText(chatID, "❌ Xatolik yuz berdi. Iltimos, qayta urinib ko'ring.")
	}
}

const msgNeedKey = "🔑 Gemini API kaliti topilmadi.\n" +
	"/key buyrug'i bilan o'z kalitingizni yuboring — hikoyangiz saqlab qo'yildi.\n" +
	"Kalit olish: https://aistudio.google.com/apikey"

func userKeyName(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// maskKey keeps only the tail visible. Full keys never reach the chat or
// the logs.
func maskKey(key string) string {
	const visible = 4
	runes := []rune(key)
	if len(runes) <= visible {
		return "****"
	}
	return "****" + string(runes[len(runes)-visible:])
}
