package payment

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
)

// Quickpay builds redirect URLs for the hosted quick-payment page. The
// browser is navigated away to the page; completion is only ever observed
// through the confirmation check or the provider webhook.
type Quickpay struct {
	config *config.QuickpayConfig
}

func NewQuickpay(cfg *config.QuickpayConfig) *Quickpay {
	return &Quickpay{config: cfg}
}

func (q *Quickpay) Enabled() bool {
	return q.config.FormURL != ""
}

// BuildRedirectURL embeds the receiver identity, the amount and the order id
// (as label) into the payment page URL. The label is how the provider's
// callback is later matched back to the order.
func (q *Quickpay) BuildRedirectURL(order *models.Order) (string, error) {
	if !q.Enabled() {
		return "", fmt.Errorf("quickpay is not configured")
	}

	u, err := url.Parse(q.config.FormURL)
	if err != nil {
		return "", fmt.Errorf("invalid quickpay form url: %w", err)
	}

	values := url.Values{}
	values.Set("receiver", q.config.Receiver)
	values.Set("quickpay-form", "shop")
	values.Set("sum", strconv.FormatInt(order.TotalAmount, 10))
	values.Set("label", order.ID)
	if q.config.SuccessURL != "" {
		values.Set("successURL", q.config.SuccessURL)
	}
	if q.config.Targets != "" {
		values.Set("targets", q.config.Targets)
	}

	u.RawQuery = values.Encode()
	return u.String(), nil
}
