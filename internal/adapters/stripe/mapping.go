package stripe

import (
	stripe "github.com/stripe/stripe-go/v82"

	"github.com/billfold/checkout-service/internal/domain"
	"github.com/billfold/checkout-service/pkg/timeutil"
)

// CustomerFromStripe maps a Stripe customer into the domain representation
func CustomerFromStripe(cust *stripe.Customer) *domain.ProcessorCustomer {
	pc := &domain.ProcessorCustomer{
		ID:      cust.ID,
		Email:   cust.Email,
		Deleted: cust.Deleted,
	}
	pc.DefaultSource = sourceFromPaymentSource(cust.DefaultSource)
	return pc
}

// sourceFromPaymentSource maps the polymorphic stored source of a customer.
// Legacy tokenized sources carry their card data in the Source's Card field.
func sourceFromPaymentSource(ps *stripe.PaymentSource) *domain.PaymentSource {
	if ps == nil {
		return nil
	}

	switch ps.Type {
	case stripe.PaymentSourceTypeCard:
		if ps.Card == nil {
			return nil
		}
		return &domain.PaymentSource{
			Kind: domain.PaymentSourceKindCard,
			Card: &domain.SourceCard{
				Brand:    string(ps.Card.Brand),
				Last4:    ps.Card.Last4,
				ExpMonth: int(ps.Card.ExpMonth),
				ExpYear:  int(ps.Card.ExpYear),
			},
		}
	case stripe.PaymentSourceTypeBankAccount:
		if ps.BankAccount == nil {
			return nil
		}
		return &domain.PaymentSource{
			Kind: domain.PaymentSourceKindBankAccount,
			BankAccount: &domain.SourceBankAccount{
				BankName: ps.BankAccount.BankName,
				Last4:    ps.BankAccount.Last4,
			},
		}
	case stripe.PaymentSourceTypeSource:
		if ps.Source == nil {
			return nil
		}
		return sourceFromSourceCard(ps.Source.Card)
	default:
		return nil
	}
}

func sourceFromSourceCard(sc *stripe.SourceCard) *domain.PaymentSource {
	if sc == nil {
		return nil
	}
	card := &domain.SourceCard{
		Brand:    sc.Brand,
		Last4:    sc.Last4,
		ExpMonth: int(sc.ExpMonth),
		ExpYear:  int(sc.ExpYear),
	}
	if card.Last4 == "" {
		return nil
	}
	return &domain.PaymentSource{
		Kind: domain.PaymentSourceKindTokenized,
		Card: card,
	}
}

// ChargeFromStripe maps a Stripe charge into the domain representation
func ChargeFromStripe(ch *stripe.Charge) *domain.ProcessorCharge {
	pc := &domain.ProcessorCharge{
		ID:       ch.ID,
		Currency: string(ch.Currency),
		Amount:   ch.Amount,
	}
	if ch.Customer != nil {
		pc.CustomerID = ch.Customer.ID
	}
	if ch.BalanceTransaction != nil {
		pc.BalanceTxnID = ch.BalanceTransaction.ID
		pc.Fee = ch.BalanceTransaction.Fee
		pc.FeeKnown = true
	}
	pc.Source = sourceFromChargeDetails(ch.PaymentMethodDetails)
	return pc
}

// sourceFromChargeDetails maps how a settled charge was actually paid
func sourceFromChargeDetails(pmd *stripe.ChargePaymentMethodDetails) *domain.PaymentSource {
	if pmd == nil {
		return nil
	}
	if pmd.Card != nil {
		return &domain.PaymentSource{
			Kind: domain.PaymentSourceKindCard,
			Card: &domain.SourceCard{
				Brand:    string(pmd.Card.Brand),
				Last4:    pmd.Card.Last4,
				ExpMonth: int(pmd.Card.ExpMonth),
				ExpYear:  int(pmd.Card.ExpYear),
			},
		}
	}
	if pmd.ACHDebit != nil {
		return &domain.PaymentSource{
			Kind: domain.PaymentSourceKindBankAccount,
			BankAccount: &domain.SourceBankAccount{
				BankName: pmd.ACHDebit.BankName,
				Last4:    pmd.ACHDebit.Last4,
			},
		}
	}
	if pmd.USBankAccount != nil {
		return &domain.PaymentSource{
			Kind: domain.PaymentSourceKindBankAccount,
			BankAccount: &domain.SourceBankAccount{
				BankName: pmd.USBankAccount.BankName,
				Last4:    pmd.USBankAccount.Last4,
			},
		}
	}
	return nil
}

// SubscriptionFromStripe maps a Stripe subscription into the domain
// representation, reading period bounds from the first item
func SubscriptionFromStripe(sub *stripe.Subscription) *domain.ProcessorSubscription {
	ps := &domain.ProcessorSubscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		Quantity:          1,
	}
	if sub.Customer != nil {
		ps.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Quantity > 0 {
			ps.Quantity = item.Quantity
		}
		ps.CurrentPeriodStart = timeutil.FromUnix(item.CurrentPeriodStart)
		ps.CurrentPeriodEnd = timeutil.FromUnix(item.CurrentPeriodEnd)
	}
	ps.TrialStart = timeutil.FromUnix(sub.TrialStart)
	ps.TrialEnd = timeutil.FromUnix(sub.TrialEnd)
	ps.CanceledAt = timeutil.FromUnix(sub.CanceledAt)
	for _, d := range sub.Discounts {
		if d != nil && d.Coupon != nil {
			ps.Coupon = d.Coupon.ID
			break
		}
	}
	return ps
}
