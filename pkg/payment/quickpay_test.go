package payment

import (
	"net/url"
	"testing"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/stretchr/testify/require"
)

func TestBuildRedirectURL(t *testing.T) {
	q := NewQuickpay(&config.QuickpayConfig{
		FormURL:    "https://pay.example.com/quickpay/confirm.xml",
		Receiver:   "410011234567890",
		SuccessURL: "https://shop.example.kz/payment/success",
		Targets:    "Оплата заказа",
	})

	order := &models.Order{ID: "ord-123", TotalAmount: 940}
	raw, err := q.BuildRedirectURL(order)
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "pay.example.com", parsed.Host)

	values := parsed.Query()
	require.Equal(t, "410011234567890", values.Get("receiver"))
	require.Equal(t, "940", values.Get("sum"))
	require.Equal(t, "ord-123", values.Get("label"))
	require.Equal(t, "shop", values.Get("quickpay-form"))
	require.Equal(t, "https://shop.example.kz/payment/success", values.Get("successURL"))
}

func TestBuildRedirectURLUnconfigured(t *testing.T) {
	q := NewQuickpay(&config.QuickpayConfig{})
	require.False(t, q.Enabled())

	_, err := q.BuildRedirectURL(&models.Order{ID: "ord-123", TotalAmount: 100})
	require.Error(t, err)
}
