package payment

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/storefrontlab/storefront-backend/internal/apperr"
)

// Intent is the gateway's handle for a payment about to happen.
type Intent struct {
	IntentID string  `json:"intentID"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// GatewayPayment is the gateway's authoritative view of a payment.
type GatewayPayment struct {
	PaymentID string  `json:"paymentID"`
	Status    string  `json:"status"`
	Amount    float64 `json:"amount"`
}

type Refund struct {
	RefundID string  `json:"refundID"`
	Amount   float64 `json:"amount"`
}

// Captured reports whether the gateway considers the money secured.
func (p GatewayPayment) Captured() bool {
	return p.Status == "captured" || p.Status == "authorized" || p.Status == "paid"
}

// Gateway is the contract the engine requires from the external payment
// provider. Signature verification is not part of it: that happens
// locally, see signature.go.
type Gateway interface {
	CreateIntent(amount float64, currency, receipt string) (Intent, error)
	FetchPayment(paymentID string) (GatewayPayment, error)
	CreateRefund(paymentID string, amount float64) (Refund, error)
}

// HTTPGateway talks to the provider's REST API with basic auth.
type HTTPGateway struct {
	baseURL string
	keyID   string
	secret  string
}

func NewHTTPGateway(baseURL, keyID, secret string) *HTTPGateway {
	return &HTTPGateway{baseURL: baseURL, keyID: keyID, secret: secret}
}

func (g *HTTPGateway) post(path string, body interface{}, out interface{}) error {
	agent := fiber.Post(g.baseURL + path)
	agent.BasicAuth(g.keyID, g.secret)
	agent.JSON(body)
	code, resp, errs := agent.Bytes()
	return g.decode(code, resp, errs, out)
}

func (g *HTTPGateway) get(path string, out interface{}) error {
	agent := fiber.Get(g.baseURL + path)
	agent.BasicAuth(g.keyID, g.secret)
	code, resp, errs := agent.Bytes()
	return g.decode(code, resp, errs, out)
}

func (g *HTTPGateway) decode(code int, resp []byte, errs []error, out interface{}) error {
	if len(errs) > 0 {
		return apperr.Wrap(apperr.KindGateway, "payment gateway unreachable", errs[0])
	}
	if code >= 400 {
		return apperr.New(apperr.KindGateway, fmt.Sprintf("payment gateway returned status %d", code))
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return apperr.Wrap(apperr.KindGateway, "payment gateway returned malformed response", err)
	}
	return nil
}

func (g *HTTPGateway) CreateIntent(amount float64, currency, receipt string) (Intent, error) {
	var resp struct {
		ID       string  `json:"id"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	}
	body := fiber.Map{"amount": amount, "currency": currency, "receipt": receipt}
	if err := g.post("/v1/orders", body, &resp); err != nil {
		return Intent{}, err
	}
	return Intent{IntentID: resp.ID, Amount: resp.Amount, Currency: resp.Currency}, nil
}

func (g *HTTPGateway) FetchPayment(paymentID string) (GatewayPayment, error) {
	var resp struct {
		ID     string  `json:"id"`
		Status string  `json:"status"`
		Amount float64 `json:"amount"`
	}
	if err := g.get("/v1/payments/"+paymentID, &resp); err != nil {
		return GatewayPayment{}, err
	}
	return GatewayPayment{PaymentID: resp.ID, Status: resp.Status, Amount: resp.Amount}, nil
}

func (g *HTTPGateway) CreateRefund(paymentID string, amount float64) (Refund, error) {
	var resp struct {
		ID     string  `json:"id"`
		Amount float64 `json:"amount"`
	}
	body := fiber.Map{"amount": amount}
	if err := g.post("/v1/payments/"+paymentID+"/refund", body, &resp); err != nil {
		return Refund{}, err
	}
	return Refund{RefundID: resp.ID, Amount: resp.Amount}, nil
}

// FakeGateway is used for tests and local scenarios. Payments are settled
// by calling SettlePayment, mimicking the customer completing the gateway
// flow in the browser.
type FakeGateway struct {
	mu       sync.Mutex
	intents  map[string]Intent
	payments map[string]GatewayPayment
	refunds  []Refund

	FailIntents bool // simulate an unreachable gateway
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		intents:  make(map[string]Intent),
		payments: make(map[string]GatewayPayment),
	}
}

func (g *FakeGateway) CreateIntent(amount float64, currency, receipt string) (Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailIntents {
		return Intent{}, apperr.New(apperr.KindGateway, "payment gateway unreachable")
	}
	in := Intent{IntentID: "intent_" + uuid.New().String()[:8], Amount: amount, Currency: currency}
	g.intents[in.IntentID] = in
	return in, nil
}

// SettlePayment records a captured payment against an intent and returns
// its gateway payment id.
func (g *FakeGateway) SettlePayment(intentID string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	in := g.intents[intentID]
	p := GatewayPayment{PaymentID: "pay_" + uuid.New().String()[:8], Status: "captured", Amount: in.Amount}
	g.payments[p.PaymentID] = p
	return p.PaymentID
}

func (g *FakeGateway) FetchPayment(paymentID string) (GatewayPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		return GatewayPayment{}, apperr.New(apperr.KindNotFound, "payment not found at gateway")
	}
	return p, nil
}

func (g *FakeGateway) CreateRefund(paymentID string, amount float64) (Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.payments[paymentID]; !ok {
		return Refund{}, apperr.New(apperr.KindNotFound, "payment not found at gateway")
	}
	r := Refund{RefundID: "rfnd_" + uuid.New().String()[:8], Amount: amount}
	g.refunds = append(g.refunds, r)
	return r, nil
}

// Refunds returns the refunds issued so far (test helper).
func (g *FakeGateway) Refunds() []Refund {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Refund{}, g.refunds...)
}
