package entity

// Status is a payment state reported by an ePay.bg notification.
type Status string

const (
	StatusPaid    Status = "PAID"
	StatusDenied  Status = "DENIED"
	StatusExpired Status = "EXPIRED"
)

// StatusRecord is one parsed, signature-verified line of a notification
// body. PayTime, Stan and BCode are present only for PAID records.
type StatusRecord struct {
	// Invoice is the full invoice number including the merchant prefix
	Invoice string `json:"invoice" bson:"invoice"`
	Status  Status `json:"status" bson:"status"`
	// PayTime is a 14-digit yyyymmddhhmmss timestamp
	PayTime string `json:"pay_time,omitempty" bson:"pay_time,omitempty"`
	// Stan is the system trace audit number issued by the card network
	Stan string `json:"stan,omitempty" bson:"stan,omitempty"`
	// BCode is the BORICA approval code
	BCode string `json:"bcode,omitempty" bson:"bcode,omitempty"`
}
