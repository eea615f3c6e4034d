package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"story-canvas-ai-bot/internal/pipeline"
	"story-canvas-ai-bot/internal/session"
)

const wizardCallbackPrefix = "ill"

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil {
		return nil
	}
	data := strings.TrimSpace(q.Data)
	if !strings.HasPrefix(data, wizardCallbackPrefix+":") {
		return nil
	}

	parts := strings.Split(data, ":")
	if len(parts) < 3 {
		return nil
	}

	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil
	}
	if ownerID != q.From.ID {
		return h.tg.AnswerCallback(q.ID, "Bu menyu siz uchun emas.", true)
	}

	action := parts[2]
	args := parts[3:]
	chatID := q.Message.Chat.ID
	msgID := q.Message.MessageID

	sess := h.sessions.Update(chatID, ownerID, func(s *session.Session) {
		s.WizardMessageID = msgID
	})

	switch action {
	case "style":
		if len(args) < 1 {
			return nil
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			return nil
		}
		snap := sess.Pipeline.Snapshot()
		if idx < 0 || idx >= len(snap.StyleOptions) {
			_ = h.tg.AnswerCallback(q.ID, "Bu uslub endi mavjud emas.", false)
			return h.renderWizard(chatID, ownerID, msgID, true)
		}
		style := snap.StyleOptions[idx]
		if err := sess.Pipeline.SetStyle(style); err != nil {
			_ = h.tg.AnswerCallback(q.ID, "", false)
			return h.reportError(chatID, err)
		}
		_ = h.tg.AnswerCallback(q.ID, "Uslub: "+style, false)
		return h.renderWizard(chatID, ownerID, msgID, true)

	case "title":
		h.sessions.Update(chatID, ownerID, func(s *session.Session) {
			s.Mode = session.ModeAwaitingTitle
		})
		_ = h.tg.AnswerCallback(q.ID, "Sarlavha yuboring.", false)
		return h.tg.SendText(chatID, "✏️ Yangi sarlavhani yuboring (bekor qilish: /cancel).")

	case "generate":
		_ = h.tg.AnswerCallback(q.ID, "Generating…", false)
		return h.generateIllustration(ctx, chatID, ownerID, msgID)

	case "download":
		_ = h.tg.AnswerCallback(q.ID, "", false)
		img := sess.Pipeline.Illustration()
		if img == nil {
			return h.tg.SendText(chatID, "❌ Hali rasm yaratilmagan. Avval Generate tugmasini bosing.")
		}
		return h.tg.SendDocument(chatID, img.Filename(), img.Data, "📥 "+img.Title)

	case "again":
		story := sess.Pipeline.Story()
		if strings.TrimSpace(story) == "" {
			_ = h.tg.AnswerCallback(q.ID, "", false)
			return h.tg.SendText(chatID, "❌ Hikoya topilmadi. Matnini qaytadan yuboring.")
		}
		_ = h.tg.AnswerCallback(q.ID, "Qayta tahlil…", false)
		if err := sess.Pipeline.ResetKeepingStory(); err != nil {
			return h.reportError(chatID, err)
		}
		return h.analyzeStory(ctx, chatID, ownerID, story)

	case "new":
		_ = h.tg.AnswerCallback(q.ID, "", false)
		return h.startNewStory(chatID, ownerID)

	default:
		return h.tg.AnswerCallback(q.ID, "OK", false)
	}
}

func (h *Handler) generateIllustration(ctx context.Context, chatID int64, userID int64, msgID int) error {
	apiKey := h.apiKeyFor(userID)
	if apiKey == "" {
		h.sessions.Update(chatID, userID, func(s *session.Session) {
			s.Mode = session.ModeAwaitingKey
		})
		return h.tg.SendText(chatID, msgNeedKey)
	}

	sess := h.sessions.Get(chatID, userID)

	h.tg.SendUploadingPhoto(chatID)
	_ = h.tg.SendText(chatID, "🎨 Rasm yaratilmoqda, biroz kuting...")

	if err := sess.Pipeline.SubmitIllustration(ctx, apiKey); err != nil {
		h.logger.Error("illustration generation failed", "err", err, "chat_id", chatID)
		return h.reportError(chatID, err)
	}

	img := sess.Pipeline.Illustration()
	if img == nil {
		return h.tg.SendText(chatID, "❌ Xatolik yuz berdi. Iltimos, qayta urinib ko'ring.")
	}

	kb := resultKeyboard(userID)
	if _, err := h.tg.SendPhoto(chatID, img.Filename(), img.Data, "✅ "+img.Title, &kb); err != nil {
		return err
	}

	return h.renderWizard(chatID, userID, msgID, true)
}

func (h *Handler) renderWizard(chatID int64, userID int64, messageID int, edit bool) error {
	sess := h.sessions.Get(chatID, userID)
	if messageID == 0 {
		messageID = sess.WizardMessageID
	}

	snap := sess.Pipeline.Snapshot()
	text := wizardText(snap)
	kb := wizardKeyboard(userID, snap)

	if edit && messageID != 0 {
		if err := h.tg.EditTextWithKeyboard(chatID, messageID, text, kb); err == nil {
			return nil
		}
	}

	msgID, err := h.tg.SendTextWithKeyboard(chatID, text, kb)
	if err != nil {
		return err
	}
	h.sessions.Update(chatID, userID, func(s *session.Session) { s.WizardMessageID = msgID })
	return nil
}

func wizardText(snap pipeline.Snapshot) string {
	var b strings.Builder
	b.WriteString("🎨 Story Illustrator\n\n")
	b.WriteString("Story: " + truncateLine(snap.Story, 120) + "\n")
	if snap.VisualElements != "" {
		b.WriteString("Elements: " + truncateLine(snap.VisualElements, 160) + "\n")
	}
	b.WriteString("Style: " + snap.SelectedStyle + "\n")
	b.WriteString("Title: " + snap.Title + "\n")
	if snap.HasImage {
		b.WriteString("Image: ready ✅\n")
	} else {
		b.WriteString("Image: (none)\n")
	}

	switch snap.State {
	case pipeline.StateGenerated:
		b.WriteString("\n📥 `Download` asl faylni yuboradi. `Generate` yangi rasm yaratadi.\n")
	case pipeline.StateAnalyzed:
		b.WriteString("\n🎨 Uslubni tanlab `Generate` tugmasini bosing.\n")
	}

	return strings.TrimSpace(b.String())
}

func wizardKeyboard(ownerID int64, snap pipeline.Snapshot) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for i, style := range snap.StyleOptions {
		label := style
		if style == snap.SelectedStyle {
			label = "✅ " + label
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(truncateLine(label, 48), cb(ownerID, "style", strconv.Itoa(i))),
		})
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("✏️ Title", cb(ownerID, "title")),
		tgbotapi.NewInlineKeyboardButtonData("🎨 Generate", cb(ownerID, "generate")),
	})

	if snap.HasImage {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("📥 Download", cb(ownerID, "download")),
		})
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("🔁 Re-analyze", cb(ownerID, "again")),
		tgbotapi.NewInlineKeyboardButtonData("🆕 New story", cb(ownerID, "new")),
	})

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func resultKeyboard(ownerID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("📥 Download", cb(ownerID, "download")),
			tgbotapi.NewInlineKeyboardButtonData("🎨 Again", cb(ownerID, "generate")),
		},
	)
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", wizardCallbackPrefix, ownerID, strings.Join(parts, ":"))
}

func truncateLine(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
