package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/notify"
	"github.com/example/storefront/pkg/orders"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeGatewayStore is an in-memory Store for the handlers that talk to the
// database directly.
type fakeGatewayStore struct {
	products   map[string]*models.Product
	categories []models.Category
	orders     map[string]*models.Order
	settings   map[string]string
}

func newFakeGatewayStore() *fakeGatewayStore {
	return &fakeGatewayStore{
		products: make(map[string]*models.Product),
		orders:   make(map[string]*models.Order),
		settings: make(map[string]string),
	}
}

func (f *fakeGatewayStore) ListProducts(_ context.Context, _ repository.ProductFilter) ([]models.Product, int64, error) {
	var out []models.Product
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (f *fakeGatewayStore) GetProduct(_ context.Context, id string) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeGatewayStore) SaveProduct(_ context.Context, product *models.Product) error {
	f.products[product.ID] = product
	return nil
}

func (f *fakeGatewayStore) ListCategories(_ context.Context) ([]models.Category, error) {
	return f.categories, nil
}

func (f *fakeGatewayStore) SaveCategory(_ context.Context, category *models.Category) error {
	f.categories = append(f.categories, *category)
	return nil
}

func (f *fakeGatewayStore) SetOrderPaymentID(_ context.Context, id, paymentID string) error {
	order, ok := f.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	order.PaymentID = paymentID
	return nil
}

func (f *fakeGatewayStore) ListPromoCodes(_ context.Context) ([]models.PromoCode, error) {
	return nil, nil
}

func (f *fakeGatewayStore) SavePromoCode(_ context.Context, _ *models.PromoCode) error {
	return nil
}

func (f *fakeGatewayStore) DeletePromoCode(_ context.Context, _ string) error {
	return repository.ErrNotFound
}

func (f *fakeGatewayStore) GetSetting(_ context.Context, key string) (string, error) {
	value, ok := f.settings[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return value, nil
}

func (f *fakeGatewayStore) PutSetting(_ context.Context, key, value string) error {
	f.settings[key] = value
	return nil
}

// memStorage backs the cart store with a plain map.
type memStorage struct {
	data map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string][]byte)}
}

func (m *memStorage) GetJSON(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return repository.ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (m *memStorage) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memStorage) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// order store fakes for the orders service and receipt flow.
type fakeOrderStore struct {
	store *fakeGatewayStore
}

func (f fakeOrderStore) CreateOrderWithItems(_ context.Context, order *models.Order, items []models.OrderItem) error {
	stored := *order
	stored.Items = items
	f.store.orders[order.ID] = &stored
	return nil
}

func (f fakeOrderStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	order, ok := f.store.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (f fakeOrderStore) GetOrderByPaymentID(_ context.Context, paymentID string) (*models.Order, error) {
	for _, order := range f.store.orders {
		if order.PaymentID == paymentID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakeOrderStore) ListOrders(_ context.Context, _ string, _, _ int) ([]models.Order, int64, error) {
	return nil, 0, nil
}

func (f fakeOrderStore) UpdateOrderStatus(_ context.Context, id, status string) error {
	order, ok := f.store.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	order.Status = status
	return nil
}

func (f fakeOrderStore) SetOrderPaymentID(ctx context.Context, id, paymentID string) error {
	return f.store.SetOrderPaymentID(ctx, id, paymentID)
}

func (f fakeOrderStore) SetOrderReceipt(_ context.Context, id, fileID string) error {
	order, ok := f.store.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	order.ReceiptFileID = fileID
	order.Status = models.OrderStatusConfirmed
	return nil
}

type fakeCartStore struct {
	getCalls int
}

func (f *fakeCartStore) Get(context.Context, string) (*cart.Cart, error) {
	f.getCalls++
	return &cart.Cart{}, nil
}

func (f *fakeCartStore) Clear(context.Context, string) error { return nil }

type fakeReceiptSender struct {
	photos int
}

func (f *fakeReceiptSender) SendReceipt(_ context.Context, _ *models.Order, _ notify.Photo) (string, error) {
	f.photos++
	return "file-1", nil
}

type stubProvider struct{}

func (stubProvider) FetchStatus(context.Context, string) (string, error) {
	return payment.ProviderStatusPending, nil
}

type testGateway struct {
	gw     *Gateway
	store  *fakeGatewayStore
	carts  *fakeCartStore
	sender *fakeReceiptSender
}

func newTestGateway(t *testing.T, cfg *config.Config) *testGateway {
	t.Helper()
	logger := zap.NewNop()

	store := newFakeGatewayStore()
	orderStore := fakeOrderStore{store: store}
	carts := &fakeCartStore{}
	sender := &fakeReceiptSender{}

	orderService := orders.NewService(orderStore, carts, nil, nil, nil, nil, logger)
	confirmer := payment.NewConfirmer(orderStore, stubProvider{}, nil, nil, nil, logger)
	bank := payment.NewBankTransfer(orderStore, sender, nil, logger)

	gw := NewGateway(cfg, logger, Deps{
		Store:     store,
		Carts:     cart.NewStore(newMemStorage(), time.Hour),
		Orders:    orderService,
		Bank:      bank,
		Confirmer: confirmer,
	})
	gw.SetupRoutes()
	return &testGateway{gw: gw, store: store, carts: carts, sender: sender}
}

func (tg *testGateway) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	tg.gw.Router().ServeHTTP(w, req)
	return w
}

func TestProviderWebhookAlwaysAnswersOK(t *testing.T) {
	tg := newTestGateway(t, &config.Config{})

	// Event for an order we cannot resolve still gets a 200.
	body := `{"event":"payment.succeeded","object":{"id":"pay-x","status":"succeeded","metadata":{"order_id":"missing"}}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusOK, tg.do(req).Code)

	// Malformed payload too.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusOK, tg.do(req).Code)
}

func TestCheckoutValidationRejectedBeforeCartLoad(t *testing.T) {
	tg := newTestGateway(t, &config.Config{})

	body := `{"customer_name":"Айгерим","phone":"+77001234567","city":"","address":"пр. Абая 10","payment_method":"bank_transfer"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	require.Equal(t, http.StatusBadRequest, tg.do(req).Code)
	require.Zero(t, tg.carts.getCalls)
}

func receiptRequest(t *testing.T, orderID, contentType string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="receipt"; filename="receipt.jpg"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	part.Write([]byte("bytes"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID+"/receipt", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestSubmitReceiptRejectsNonImage(t *testing.T) {
	tg := newTestGateway(t, &config.Config{})
	require.Equal(t, http.StatusBadRequest, tg.do(receiptRequest(t, "o1", "application/pdf")).Code)
}

func TestSubmitReceiptConflictsForPaidOrder(t *testing.T) {
	tg := newTestGateway(t, &config.Config{})
	tg.store.orders["o1"] = &models.Order{ID: "o1", Status: models.OrderStatusPaid}

	require.Equal(t, http.StatusConflict, tg.do(receiptRequest(t, "o1", "image/jpeg")).Code)
	require.Zero(t, tg.sender.photos)
	require.Equal(t, models.OrderStatusPaid, tg.store.orders["o1"].Status)
}

func TestQuickpayUnconfigured(t *testing.T) {
	tg := newTestGateway(t, &config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/quickpay/o1", nil)
	require.Equal(t, http.StatusServiceUnavailable, tg.do(req).Code)
}

func TestGetProductNotFound(t *testing.T) {
	tg := newTestGateway(t, &config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/missing", nil)
	require.Equal(t, http.StatusNotFound, tg.do(req).Code)
}

func TestCartAddAndGet(t *testing.T) {
	tg := newTestGateway(t, &config.Config{})
	tg.store.products["p1"] = &models.Product{ID: "p1", NameRu: "Ваза", NameKk: "Құмыра", Price: 990}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":"p1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", "s1")
	require.Equal(t, http.StatusOK, tg.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Session-ID", "s1")
	w := tg.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var got cart.Cart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Items, 1)
	require.Equal(t, "p1", got.Items[0].ProductID)
	require.Equal(t, int64(990), got.TotalPrice)
}

func TestGetSettingsDefaultsToEmpty(t *testing.T) {
	tg := newTestGateway(t, &config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	w := tg.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var settings models.StoreSettings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	require.Empty(t, settings.BankName)
}

func TestAdminAuth(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.AdminToken = "sekret"
	tg := newTestGateway(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	require.Equal(t, http.StatusUnauthorized, tg.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	req.Header.Set("X-Admin-Token", "sekret")
	require.Equal(t, http.StatusOK, tg.do(req).Code)
}
