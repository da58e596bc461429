package services

import (
	"context"
	"epaybg/entity"
)

type Payments interface {
	// PaymentForm builds the signed submission form for an order.
	PaymentForm(ctx context.Context, orderId int) (*entity.SubmissionForm, error)
	// IssueEasyPayCode registers the order with ePay.bg and returns the
	// offline payment code.
	IssueEasyPayCode(ctx context.Context, orderId int) (*entity.EasyPayCode, error)
	// Notify processes one inbound IPN callback. The returned flag is the
	// protocol acknowledgement: true maps to the "1" response body.
	Notify(ctx context.Context, notification *entity.IpnNotification) bool
}
