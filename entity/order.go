package entity

// Order is the storefront order record as this service sees it.
// The order lifecycle belongs to the host shop; this service only reads
// the payment-relevant fields and stamps the payment attributes below.
type Order struct {
	Id            int     `json:"order_id" bson:"order_id"`
	Total         float64 `json:"total" bson:"total"`
	Currency      string  `json:"currency" bson:"currency"`
	Description   string  `json:"description" bson:"description"`
	PaymentMethod Method  `json:"payment_method" bson:"payment_method"`
	BillingEmail  string  `json:"billing_email,omitempty" bson:"billing_email,omitempty"`

	// LastStatus is the idempotency stamp: the last notification status
	// applied to this order. A status equal to LastStatus is never re-applied.
	LastStatus string `json:"last_status" bson:"last_status"`

	IsPaid         bool   `json:"is_paid" bson:"is_paid"`
	PaidDate       string `json:"paid_date,omitempty" bson:"paid_date,omitempty"`
	TransactionRef string `json:"transaction_ref,omitempty" bson:"transaction_ref,omitempty"`

	IsCancelled  bool   `json:"is_cancelled" bson:"is_cancelled"`
	CancelReason string `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`

	// EasyPay holds the offline payment code issued for this order, if any
	EasyPay *EasyPayCode `json:"easypay,omitempty" bson:"easypay,omitempty"`
	// InstructionsSent is the unix time the how-to-pay mail went out, 0 if never
	InstructionsSent int64 `json:"easypay_instructions_sent,omitempty" bson:"easypay_instructions_sent,omitempty"`

	Notes []string `json:"notes" bson:"notes"`
}
