package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/payment-intents/internal/models"
	"github.com/akylbek/payment-system/payment-intents/internal/repository"
	"github.com/akylbek/payment-system/payment-intents/internal/service"
)

type noopDispatcher struct{}

func (noopDispatcher) Deliver(_ context.Context, intent models.PaymentIntent, _ string) models.DeliveryOutcome {
	return models.DeliveryOutcome{PaymentID: intent.ID, Status: models.DeliveryDelivered, Attempts: 1}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	e       *httpexpect.Expect
	clock   *testClock
	sweeper *service.ExpirySweeper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger := repository.NewIntentLedger(repository.WithClock(clock.Now))
	svc := service.NewIntentService(ledger, noopDispatcher{}, nil, service.Options{})

	srv := httptest.NewServer(NewRouter(svc))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, svc.Close(ctx))
	})

	return &fixture{
		e:       httpexpect.Default(t, srv.URL),
		clock:   clock,
		sweeper: service.NewExpirySweeper(ledger, nil, service.SweeperOptions{Threshold: 20 * time.Second}),
	}
}

func (f *fixture) create(orderID any, amount int) string {
	return f.e.POST("/payments").
		WithJSON(map[string]any{"order_id": orderID, "amount": amount}).
		Expect().
		Status(http.StatusCreated).
		JSON().Object().
		Value("payment_id").String().Raw()
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	f.e.GET("/health").Expect().Status(http.StatusOK).
		JSON().Object().Value("status").String().IsEqual("ok")
}

func TestCreateAndConfirm(t *testing.T) {
	f := newFixture(t)

	obj := f.e.POST("/payments").
		WithJSON(map[string]any{
			"order_id":     123,
			"user_id":      42,
			"amount":       1000,
			"tx_id":        "tx_demo_123",
			"callback_url": "https://example.com/hook",
		}).
		Expect().
		Status(http.StatusCreated).
		JSON().Object()
	obj.Value("payment_id").String().IsEqual("pay_tx_demo_123")
	obj.Value("status").String().IsEqual("PENDING")
	obj.Value("order_id").Number().IsEqual(123)
	obj.Value("user_id").Number().IsEqual(42)
	obj.Value("method").String().IsEqual("CARD")
	obj.Value("amount").Number().IsEqual(1000)
	obj.Value("confirmed_at").IsNull()

	confirmed := f.e.POST("/payments/pay_tx_demo_123/confirm").
		Expect().
		Status(http.StatusOK).
		JSON().Object()
	confirmed.Value("status").String().IsEqual("COMPLETED")
	confirmed.Value("confirmed_at").String().NotEmpty()

	f.e.POST("/payments/pay_tx_demo_123/confirm").
		Expect().
		Status(http.StatusConflict).
		JSON().Object().Value("error").String().IsEqual("Payment intent already processed")

	f.e.GET("/payments/pay_tx_demo_123").
		Expect().
		Status(http.StatusOK).
		JSON().Object().Value("status").String().IsEqual("COMPLETED")
}

func TestCreate_IdempotentResubmission(t *testing.T) {
	f := newFixture(t)
	body := map[string]any{"order_id": "ORDER_001", "amount": 500, "tx_id": "tx_1"}

	f.e.POST("/payments").WithJSON(body).Expect().Status(http.StatusCreated)
	f.e.POST("/payments").WithJSON(body).Expect().Status(http.StatusOK).
		JSON().Object().Value("payment_id").String().IsEqual("pay_tx_1")

	body["amount"] = 501
	f.e.POST("/payments").WithJSON(body).Expect().Status(http.StatusConflict)
}

func TestCreate_Rejections(t *testing.T) {
	f := newFixture(t)

	f.e.POST("/payments").WithJSON(map[string]any{"order_id": "A", "amount": 0}).
		Expect().Status(http.StatusBadRequest)
	f.e.POST("/payments").WithJSON(map[string]any{"order_id": "A", "amount": -10}).
		Expect().Status(http.StatusBadRequest)
	f.e.POST("/payments").WithJSON(map[string]any{"amount": 10}).
		Expect().Status(http.StatusBadRequest)
	f.e.POST("/payments").WithJSON(map[string]any{"order_id": 1.5, "amount": 10}).
		Expect().Status(http.StatusBadRequest)
	f.e.POST("/payments").WithText("not json").
		Expect().Status(http.StatusBadRequest)
}

func TestConfirm_UnknownIntent(t *testing.T) {
	f := newFixture(t)
	f.e.POST("/payments/pay_missing/confirm").
		Expect().
		Status(http.StatusNotFound).
		JSON().Object().Value("error").String().IsEqual("Payment intent not found")
	f.e.GET("/payments/pay_missing").Expect().Status(http.StatusNotFound)
}

func TestExpiredIntentIsNotConfirmable(t *testing.T) {
	f := newFixture(t)
	id := f.create("ORDER_001", 1000)

	f.clock.Advance(21 * time.Second)
	_, err := f.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)

	f.e.GET("/payments/" + id).Expect().Status(http.StatusOK).
		JSON().Object().Value("status").String().IsEqual("EXPIRED")
	f.e.POST("/payments/" + id + "/confirm").Expect().Status(http.StatusConflict)
}

func TestListPayments(t *testing.T) {
	f := newFixture(t)
	first := f.create("ORDER_001", 100)
	f.create("ORDER_002", 200)
	f.e.POST("/payments/" + first + "/confirm").Expect().Status(http.StatusOK)

	obj := f.e.GET("/payments").Expect().Status(http.StatusOK).JSON().Object()
	obj.Value("pending_count").Number().IsEqual(1)
	obj.Value("completed_count").Number().IsEqual(1)
	obj.Value("expired_count").Number().IsEqual(0)
	obj.Value("payments").Array().Length().IsEqual(2)
}
