package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/storefront/pkg/models"
	"go.uber.org/zap"
)

// Sender is the bot API surface the notifier uses.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, photo Photo, caption string) (string, error)
}

// Retrier takes over messages that failed their first delivery.
type Retrier interface {
	Enqueue(job RetryJob)
}

// Notifier formats orders into human-readable summaries and posts them to
// every configured admin chat, sequentially. A failure for one recipient is
// handed to the retrier and does not stop the remaining recipients.
type Notifier struct {
	sender  Sender
	chatIDs []int64
	retrier Retrier
	logger  *zap.Logger
}

func NewNotifier(sender Sender, chatIDs []int64, retrier Retrier, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender:  sender,
		chatIDs: chatIDs,
		retrier: retrier,
		logger:  logger,
	}
}

func (n *Notifier) OrderCreated(ctx context.Context, order *models.Order) {
	n.fanOut(ctx, order.ID, FormatOrder("Новый заказ", order))
}

func (n *Notifier) OrderPaid(ctx context.Context, order *models.Order) {
	n.fanOut(ctx, order.ID, FormatOrder("Заказ оплачен", order))
}

func (n *Notifier) fanOut(ctx context.Context, orderID, text string) {
	for _, chatID := range n.chatIDs {
		if err := n.sender.SendMessage(ctx, chatID, text); err != nil {
			n.logger.Warn("Failed to notify recipient",
				zap.Int64("chat_id", chatID),
				zap.String("order_id", orderID),
				zap.Error(err))
			if n.retrier != nil {
				n.retrier.Enqueue(RetryJob{OrderID: orderID, ChatID: chatID, Text: text})
			}
		}
	}
}

// SendReceipt posts the uploaded receipt image with the order summary as
// caption. It succeeds when at least one recipient got the photo and returns
// the file id assigned by the bot API.
func (n *Notifier) SendReceipt(ctx context.Context, order *models.Order, photo Photo) (string, error) {
	if len(n.chatIDs) == 0 {
		return "", fmt.Errorf("no notification recipients configured")
	}

	caption := FormatOrder("Чек об оплате", order)

	var fileID string
	var lastErr error
	delivered := false
	for _, chatID := range n.chatIDs {
		id, err := n.sender.SendPhoto(ctx, chatID, photo, caption)
		if err != nil {
			lastErr = err
			n.logger.Warn("Failed to deliver receipt",
				zap.Int64("chat_id", chatID),
				zap.String("order_id", order.ID),
				zap.Error(err))
			continue
		}
		delivered = true
		if fileID == "" {
			fileID = id
		}
	}

	if !delivered {
		return "", fmt.Errorf("receipt delivery failed for all recipients: %w", lastErr)
	}
	return fileID, nil
}

var paymentMethodLabels = map[string]string{
	models.PaymentMethodBankTransfer: "банковский перевод",
	models.PaymentMethodQuickpay:     "быстрый платёж",
	models.PaymentMethodCard:         "оплата картой",
}

// FormatOrder renders the order summary posted to the admin chats.
func FormatOrder(title string, order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s №%s\n\n", title, order.ID)
	fmt.Fprintf(&b, "Клиент: %s\nТелефон: %s\n", order.CustomerName, order.Phone)
	if order.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", order.Email)
	}
	fmt.Fprintf(&b, "Город: %s\nАдрес: %s\n", order.City, order.Address)
	if order.PostalCode != "" {
		fmt.Fprintf(&b, "Индекс: %s\n", order.PostalCode)
	}
	if order.Notes != "" {
		fmt.Fprintf(&b, "Комментарий: %s\n", order.Notes)
	}

	if len(order.Items) > 0 {
		b.WriteString("\nТовары:\n")
		for _, item := range order.Items {
			fmt.Fprintf(&b, "- %s × %d — %d ₸\n", item.ProductName, item.Quantity, item.UnitPrice*int64(item.Quantity))
		}
	}

	if order.DiscountAmount > 0 {
		fmt.Fprintf(&b, "\nПромокод: %s (скидка %d ₸)\n", order.PromoCode, order.DiscountAmount)
	}
	method := paymentMethodLabels[order.PaymentMethod]
	if method == "" {
		method = order.PaymentMethod
	}
	fmt.Fprintf(&b, "\nОплата: %s\nИтого: %d ₸", method, order.TotalAmount)
	return b.String()
}
