package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"subscriber-payments/internal/config"
	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/adapter"
	"subscriber-payments/internal/infra/logging"
	"subscriber-payments/internal/infra/metrics"
)

var _ adapter.AdminNotifier = (*AdminNotifier)(nil)

// sender is the subset of *tgbotapi.BotAPI the notifier needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// AdminNotifier posts payment request events to the configured admin chats.
type AdminNotifier struct {
	bot      sender
	chatIDs  []int64
	panelURL string
	log      *zerolog.Logger
	dev      bool
}

// NewAdminNotifier connects to the Bot API with cfg.Token.
func NewAdminNotifier(cfg *config.TelegramConfig, logger *zerolog.Logger, dev bool) (*AdminNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newAdminNotifier(bot, cfg, logger, dev), nil
}

func newAdminNotifier(bot sender, cfg *config.TelegramConfig, logger *zerolog.Logger, dev bool) *AdminNotifier {
	l := logger.With().Str("component", "TelegramAdminNotifier").Logger()
	return &AdminNotifier{
		bot:      bot,
		chatIDs:  append([]int64(nil), cfg.AdminChatIDs...),
		panelURL: strings.TrimRight(cfg.AdminPanelURL, "/"),
		log:      &l,
		dev:      dev,
	}
}

func (n *AdminNotifier) NotifyNewRequest(ctx context.Context, r *model.PaymentRequest) error {
	text := fmt.Sprintf("New %s payment request %s\nPlan: %s (%s)\nAmount: %s\nUser: %s",
		typeLabel(r.Type), r.ReferenceCode, r.Plan.Name, r.Plan.ID,
		formatAmount(r.Amount, r.Currency), logging.Redact(r.UserEmail, n.dev))
	if r.InstructionsPending() {
		text += "\nPayment instructions must be prepared."
	}
	return n.broadcast(ctx, "new_request", r, text)
}

func (n *AdminNotifier) NotifyPaymentClaimed(ctx context.Context, r *model.PaymentRequest) error {
	text := fmt.Sprintf("Client reports payment sent for %s\nAmount: %s via %s\nPlease verify and complete or reject.",
		r.ReferenceCode, formatAmount(r.Amount, r.Currency), typeLabel(r.Type))
	return n.broadcast(ctx, "payment_claimed", r, text)
}

func (n *AdminNotifier) broadcast(ctx context.Context, kind string, r *model.PaymentRequest, text string) error {
	var firstErr error
	for _, chatID := range n.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, text)
		if n.panelURL != "" {
			msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonURL("Open request", n.panelURL+"/payment-requests/"+r.ID),
				),
			)
		}
		if _, err := n.bot.Send(msg); err != nil {
			metrics.IncAdminNotification(kind, "error")
			n.log.Warn().Err(err).Int64("chat_id", chatID).Str("request_id", r.ID).Msg("send admin notification")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.IncAdminNotification(kind, "sent")
	}
	return firstErr
}

func typeLabel(t model.PaymentType) string {
	switch t {
	case model.PaymentTypeBankTransfer:
		return "bank transfer"
	case model.PaymentTypeGiftCard:
		return "gift card"
	case model.PaymentTypePayPal:
		return "PayPal"
	case model.PaymentTypeCoupon:
		return "coupon"
	}
	return string(t)
}

// formatAmount renders minor units with two decimals.
func formatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, currency)
}
