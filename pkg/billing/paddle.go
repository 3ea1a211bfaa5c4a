package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds Paddle credentials.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleTransactions is the transaction part of the Paddle SDK.
type PaddleTransactions interface {
	CreateTransaction(ctx context.Context, req *paddle.CreateTransactionRequest) (*paddle.Transaction, error)
}

// PaddleSubscriptions is the subscription part of the Paddle SDK.
type PaddleSubscriptions interface {
	CancelSubscription(ctx context.Context, req *paddle.CancelSubscriptionRequest) (*paddle.Subscription, error)
}

// PaddleProvider checks out through Paddle Billing transactions. Paddle only
// sells catalog prices here, so every request needs a ProviderPriceID.
type PaddleProvider struct {
	transactions  PaddleTransactions
	subscriptions PaddleSubscriptions
	verifier      *paddle.WebhookVerifier
}

var (
	_ Provider      = (*PaddleProvider)(nil)
	_ WebhookParser = (*PaddleProvider)(nil)
)

type PaddleOption func(*PaddleProvider)

// WithPaddleClients replaces the SDK clients, e.g. with fakes.
func WithPaddleClients(tx PaddleTransactions, subs PaddleSubscriptions) PaddleOption {
	return func(p *PaddleProvider) {
		if tx != nil {
			p.transactions = tx
		}
		if subs != nil {
			p.subscriptions = subs
		}
	}
}

func NewPaddleProvider(cfg PaddleConfig, opts ...PaddleOption) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: paddle api key", ErrMissingCredentials)
	}

	var (
		sdk *paddle.SDK
		err error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		sdk, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		sdk, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("billing: invalid paddle environment %q", cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("billing: create paddle client: %w", err)
	}

	p := &PaddleProvider{
		transactions:  sdk.TransactionsClient,
		subscriptions: sdk.SubscriptionsClient,
	}
	if cfg.WebhookSecret != "" {
		p.verifier = paddle.NewWebhookVerifier(cfg.WebhookSecret)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *PaddleProvider) Name() string { return ProviderPaddle }

func (p *PaddleProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Price.ProviderPriceID == "" {
		return nil, ErrMissingPriceID
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.Price.ProviderPriceID,
		Quantity: 1,
	})

	custom := paddle.CustomData{}
	for k, v := range req.Metadata {
		custom[k] = v
	}
	if req.CustomerEmail != "" {
		custom["email"] = req.CustomerEmail
	}

	txReq := &paddle.CreateTransactionRequest{
		Items:      []paddle.CreateTransactionItems{*item},
		CustomData: custom,
	}
	if req.SuccessURL != "" {
		txReq.Checkout = &paddle.TransactionCheckout{URL: paddle.PtrTo(req.SuccessURL)}
	}

	tx, err := p.transactions.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, fmt.Errorf("paddle: create transaction: %w", err)
	}
	if tx.Checkout == nil || tx.Checkout.URL == nil || *tx.Checkout.URL == "" {
		return nil, ErrNoCheckoutURL
	}
	return &CheckoutSession{ID: tx.ID, URL: *tx.Checkout.URL}, nil
}

func (p *PaddleProvider) CancelSubscription(ctx context.Context, providerSubscriptionID string) error {
	if providerSubscriptionID == "" {
		return nil
	}
	_, err := p.subscriptions.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: providerSubscriptionID,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromImmediately),
	})
	if err != nil {
		return fmt.Errorf("paddle: cancel subscription: %w", err)
	}
	return nil
}

func (p *PaddleProvider) SignatureHeader() string { return "Paddle-Signature" }

type paddleNotification struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Data      struct {
		ID             string         `json:"id"`
		SubscriptionID string         `json:"subscription_id"`
		Status         string         `json:"status"`
		CustomData     map[string]any `json:"custom_data"`
	} `json:"data"`
}

// ParseWebhook verifies the Paddle-Signature header and maps transaction and
// subscription notifications to WebhookEvent.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	if p.verifier == nil {
		return nil, fmt.Errorf("%w: paddle webhook secret", ErrMissingCredentials)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set(p.SignatureHeader(), signature)
	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	var n paddleNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}

	out := &WebhookEvent{Provider: ProviderPaddle, ProviderEventType: n.EventType}
	if id, ok := n.Data.CustomData[MetadataSubscriptionID].(string); ok {
		out.SubscriptionID = id
	}
	switch n.EventType {
	case "transaction.completed":
		out.Kind = EventPaymentSucceeded
		out.ProviderSubscriptionID = n.Data.SubscriptionID
	case "transaction.payment_failed":
		out.Kind = EventPaymentFailed
		out.ProviderSubscriptionID = n.Data.SubscriptionID
	case "subscription.canceled":
		out.Kind = EventSubscriptionCancelled
		out.ProviderSubscriptionID = n.Data.ID
	default:
		out.Kind = EventIgnored
	}
	return out, nil
}
