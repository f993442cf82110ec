package stripe

import (
	"context"
	"errors"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.uber.org/zap"

	"github.com/billfold/checkout-service/internal/domain"
	"github.com/billfold/checkout-service/internal/domain/ports"
	"github.com/billfold/checkout-service/pkg/observability"
)

// Gateway implements ports.ProcessorGateway against the Stripe API. The
// client handle is held per Gateway instance and threaded through explicitly,
// never installed as a process-global key.
type Gateway struct {
	sc     *client.API
	logger *zap.Logger
}

// NewGateway creates a Stripe gateway with its own API client
func NewGateway(apiKey string, logger *zap.Logger) *Gateway {
	return &Gateway{
		sc:     client.New(apiKey, nil),
		logger: logger,
	}
}

// CreateCustomer creates a processor customer, optionally attaching a card
// token as its default source
func (g *Gateway) CreateCustomer(ctx context.Context, params ports.CreateCustomerParams) (*domain.ProcessorCustomer, error) {
	defer observability.TimeGatewayCall("customer_create")()

	custParams := &stripe.CustomerParams{
		Email: stripe.String(params.Email),
	}
	custParams.Context = ctx
	if params.Token != "" {
		custParams.Source = stripe.String(params.Token)
	}
	custParams.AddExpand("default_source")

	cust, err := g.sc.Customers.New(custParams)
	if err != nil {
		return nil, g.fail("customer_create", err)
	}
	return CustomerFromStripe(cust), nil
}

// GetCustomer retrieves a processor customer with its default source expanded
func (g *Gateway) GetCustomer(ctx context.Context, customerID string) (*domain.ProcessorCustomer, error) {
	defer observability.TimeGatewayCall("customer_get")()

	custParams := &stripe.CustomerParams{}
	custParams.Context = ctx
	custParams.AddExpand("default_source")

	cust, err := g.sc.Customers.Get(customerID, custParams)
	if err != nil {
		return nil, g.fail("customer_get", err)
	}
	return CustomerFromStripe(cust), nil
}

// UpdateCustomerSource swaps the default payment source and re-reads the
// customer so callers see the stored variant shape, not the submitted token
func (g *Gateway) UpdateCustomerSource(ctx context.Context, customerID, token string) (*domain.ProcessorCustomer, error) {
	defer observability.TimeGatewayCall("customer_update_source")()

	updateParams := &stripe.CustomerParams{
		Source: stripe.String(token),
	}
	updateParams.Context = ctx
	if _, err := g.sc.Customers.Update(customerID, updateParams); err != nil {
		return nil, g.fail("customer_update_source", err)
	}

	return g.GetCustomer(ctx, customerID)
}

// CreateCharge creates a one-time charge with the balance transaction
// expanded so the fee is available inline when the processor reports it
func (g *Gateway) CreateCharge(ctx context.Context, params ports.CreateChargeParams) (*domain.ProcessorCharge, error) {
	defer observability.TimeGatewayCall("charge_create")()

	chargeParams := &stripe.ChargeParams{
		Amount:      stripe.Int64(params.Amount),
		Currency:    stripe.String(params.Currency),
		Customer:    stripe.String(params.CustomerID),
		Description: stripe.String(params.Description),
	}
	chargeParams.Context = ctx
	chargeParams.AddExpand("balance_transaction")

	ch, err := g.sc.Charges.New(chargeParams)
	if err != nil {
		return nil, g.fail("charge_create", err)
	}
	return ChargeFromStripe(ch), nil
}

// GetCharge retrieves a charge with its balance transaction expanded
func (g *Gateway) GetCharge(ctx context.Context, chargeID string) (*domain.ProcessorCharge, error) {
	defer observability.TimeGatewayCall("charge_get")()

	chargeParams := &stripe.ChargeParams{}
	chargeParams.Context = ctx
	chargeParams.AddExpand("balance_transaction")

	ch, err := g.sc.Charges.Get(chargeID, chargeParams)
	if err != nil {
		return nil, g.fail("charge_get", err)
	}
	return ChargeFromStripe(ch), nil
}

// GetFee resolves the processor fee from a balance transaction
func (g *Gateway) GetFee(ctx context.Context, balanceTxnID string) (int64, error) {
	defer observability.TimeGatewayCall("balance_txn_get")()

	btParams := &stripe.BalanceTransactionParams{}
	btParams.Context = ctx

	bt, err := g.sc.BalanceTransactions.Get(balanceTxnID, btParams)
	if err != nil {
		return 0, g.fail("balance_txn_get", err)
	}
	return bt.Fee, nil
}

// CreateRefund refunds a charge in full
func (g *Gateway) CreateRefund(ctx context.Context, chargeID string) error {
	defer observability.TimeGatewayCall("refund_create")()

	refundParams := &stripe.RefundParams{
		Charge: stripe.String(chargeID),
	}
	refundParams.Context = ctx

	if _, err := g.sc.Refunds.New(refundParams); err != nil {
		return g.fail("refund_create", err)
	}
	return nil
}

// CreateSubscription creates a processor subscription. The caller decides
// beforehand whether the reported status activates the local record.
func (g *Gateway) CreateSubscription(ctx context.Context, params ports.CreateSubscriptionParams) (*domain.ProcessorSubscription, error) {
	defer observability.TimeGatewayCall("subscription_create")()

	subParams := &stripe.SubscriptionParams{
		Customer: stripe.String(params.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{
				Price:    stripe.String(params.PlanID),
				Quantity: stripe.Int64(params.Quantity),
			},
		},
	}
	subParams.Context = ctx
	if params.TrialEnd > 0 {
		subParams.TrialEnd = stripe.Int64(params.TrialEnd)
	}
	if params.Coupon != "" {
		subParams.Discounts = []*stripe.SubscriptionDiscountParams{
			{Coupon: stripe.String(params.Coupon)},
		}
	}
	if params.TaxPercent != "" {
		subParams.AddMetadata("tax_percent", params.TaxPercent)
	}

	sub, err := g.sc.Subscriptions.New(subParams)
	if err != nil {
		return nil, g.fail("subscription_create", err)
	}
	return SubscriptionFromStripe(sub), nil
}

// GetSubscription retrieves a processor subscription
func (g *Gateway) GetSubscription(ctx context.Context, subscriptionID string) (*domain.ProcessorSubscription, error) {
	defer observability.TimeGatewayCall("subscription_get")()

	subParams := &stripe.SubscriptionParams{}
	subParams.Context = ctx

	sub, err := g.sc.Subscriptions.Get(subscriptionID, subParams)
	if err != nil {
		return nil, g.fail("subscription_get", err)
	}
	return SubscriptionFromStripe(sub), nil
}

// UpdateSubscription mutates a processor subscription. A plan change targets
// the subscription's first item, which is the only item this system creates.
func (g *Gateway) UpdateSubscription(ctx context.Context, subscriptionID string, params ports.UpdateSubscriptionParams) (*domain.ProcessorSubscription, error) {
	defer observability.TimeGatewayCall("subscription_update")()

	subParams := &stripe.SubscriptionParams{}
	subParams.Context = ctx

	if params.PlanID != nil || params.Quantity != nil {
		current, err := g.sc.Subscriptions.Get(subscriptionID, &stripe.SubscriptionParams{Params: stripe.Params{Context: ctx}})
		if err != nil {
			return nil, g.fail("subscription_update", err)
		}
		if current.Items == nil || len(current.Items.Data) == 0 {
			return nil, domain.NewDomainError(domain.ErrorCodeGatewayError, "subscription has no items to update")
		}
		item := &stripe.SubscriptionItemsParams{
			ID: stripe.String(current.Items.Data[0].ID),
		}
		if params.PlanID != nil {
			item.Price = stripe.String(*params.PlanID)
		}
		if params.Quantity != nil {
			item.Quantity = stripe.Int64(*params.Quantity)
		}
		subParams.Items = []*stripe.SubscriptionItemsParams{item}
	}
	if params.Coupon != nil {
		subParams.Discounts = []*stripe.SubscriptionDiscountParams{
			{Coupon: stripe.String(*params.Coupon)},
		}
	}
	if params.TrialEnd != nil {
		subParams.TrialEnd = stripe.Int64(*params.TrialEnd)
	}
	if params.CancelAtPeriodEnd != nil {
		subParams.CancelAtPeriodEnd = stripe.Bool(*params.CancelAtPeriodEnd)
	}
	if params.Prorate != nil {
		behavior := "none"
		if *params.Prorate {
			behavior = "create_prorations"
		}
		subParams.ProrationBehavior = stripe.String(behavior)
	}

	sub, err := g.sc.Subscriptions.Update(subscriptionID, subParams)
	if err != nil {
		return nil, g.fail("subscription_update", err)
	}
	return SubscriptionFromStripe(sub), nil
}

// CancelSubscription cancels a processor subscription immediately. Deferred
// cancellation goes through UpdateSubscription with CancelAtPeriodEnd instead.
func (g *Gateway) CancelSubscription(ctx context.Context, subscriptionID string) (*domain.ProcessorSubscription, error) {
	defer observability.TimeGatewayCall("subscription_cancel")()

	cancelParams := &stripe.SubscriptionCancelParams{}
	cancelParams.Context = ctx

	sub, err := g.sc.Subscriptions.Cancel(subscriptionID, cancelParams)
	if err != nil {
		return nil, g.fail("subscription_cancel", err)
	}
	return SubscriptionFromStripe(sub), nil
}

// GetAuthenticationSecret resolves the client secret the browser needs to
// complete a card authentication challenge for an incomplete subscription
func (g *Gateway) GetAuthenticationSecret(ctx context.Context, subscriptionID string) (string, error) {
	defer observability.TimeGatewayCall("auth_secret_get")()

	subParams := &stripe.SubscriptionParams{}
	subParams.Context = ctx
	subParams.AddExpand("latest_invoice.confirmation_secret")

	sub, err := g.sc.Subscriptions.Get(subscriptionID, subParams)
	if err != nil {
		return "", g.fail("auth_secret_get", err)
	}
	if sub.LatestInvoice == nil || sub.LatestInvoice.ConfirmationSecret == nil {
		return "", nil
	}
	return sub.LatestInvoice.ConfirmationSecret.ClientSecret, nil
}

// CreateInvoiceItem adds a one-time invoice line, used for setup fees
func (g *Gateway) CreateInvoiceItem(ctx context.Context, params ports.CreateInvoiceItemParams) error {
	defer observability.TimeGatewayCall("invoice_item_create")()

	itemParams := &stripe.InvoiceItemParams{
		Customer:    stripe.String(params.CustomerID),
		Amount:      stripe.Int64(params.Amount),
		Currency:    stripe.String(params.Currency),
		Description: stripe.String(params.Description),
	}
	itemParams.Context = ctx

	if _, err := g.sc.InvoiceItems.New(itemParams); err != nil {
		return g.fail("invoice_item_create", err)
	}
	return nil
}

// fail logs the call failure and translates it into a GATEWAY_* domain error
func (g *Gateway) fail(operation string, err error) error {
	observability.RecordGatewayError(operation)
	g.logger.Warn("processor call failed",
		zap.String("operation", operation),
		zap.Error(err),
	)
	return translateError(err)
}

// translateError converts SDK and transport failures into domain errors so
// nothing above the gateway depends on processor types
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		msg := sErr.Msg
		switch {
		case sErr.Type == stripe.ErrorTypeCard:
			return domain.WrapError(domain.ErrorCodeGatewayDeclined, msg, err)
		case sErr.Code == stripe.ErrorCodeResourceMissing:
			return domain.WrapError(domain.ErrorCodeGatewayError, msg, err)
		default:
			return domain.WrapError(domain.ErrorCodeGatewayError, msg, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrorCodeGatewayTimeout, "processor request timed out", err)
	}

	return domain.WrapError(domain.ErrorCodeGatewayError, "processor request failed", err)
}

var _ ports.ProcessorGateway = (*Gateway)(nil)
