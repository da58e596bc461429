// Package entity defines data models for the ePay.bg payment service.
package entity

// Method selects which ePay.bg payment page handles a submission.
type Method string

const (
	// MethodPayLogin sends the buyer to the full card-entry form on ePay.bg.
	MethodPayLogin Method = "paylogin"
	// MethodDirectPay sends the buyer straight to the BORICA card page.
	MethodDirectPay Method = "credit_paydirect"
	// MethodEasyPay registers an offline payment code instead of a browser form.
	MethodEasyPay Method = "ezp"
)

// PaymentRequest holds the fields of one outbound payment descriptor.
// Built fresh per submission, never persisted by this service.
type PaymentRequest struct {
	// ClientId is the merchant customer number (MIN) assigned by ePay.bg
	ClientId string
	// Invoice is the cross-reference key: invoice prefix + order id
	Invoice string
	// Amount as a decimal string with two fraction digits
	Amount string
	// ExpTime is the request expiry in "dd.mm.yyyy hh:mm" form
	ExpTime string
	// Currency is one of BGN, USD, EUR
	Currency string
	// Description is free text shown to the buyer; must not contain newlines
	Description string
}

// SignedPayload is the outbound wire form of a PaymentRequest:
// the Base64 text of the line pack and its checksum. Immutable once built;
// recomputing the checksum over Encoded is the sole verification mechanism.
type SignedPayload struct {
	Encoded  string `json:"ENCODED"`
	Checksum string `json:"CHECKSUM"`
}

// SubmissionForm is everything the storefront needs to render the
// payment form that posts the buyer to ePay.bg.
type SubmissionForm struct {
	Url       string `json:"url"`
	Page      string `json:"PAGE"`
	Lang      string `json:"LANG"`
	Encoded   string `json:"ENCODED"`
	Checksum  string `json:"CHECKSUM"`
	UrlOk     string `json:"URL_OK"`
	UrlCancel string `json:"URL_CANCEL"`
}

// IpnNotification is one raw inbound callback from ePay.bg.
// Untrusted until the checksum is verified.
type IpnNotification struct {
	Token    string `json:"hash"`
	Encoded  string `json:"encoded"`
	Checksum string `json:"checksum"`
}

// EasyPayCode is the offline payment reference (IDN) a buyer presents
// at an EasyPay office or a B-Pay ATM, with its validity limit.
type EasyPayCode struct {
	Idn    string `json:"idn" bson:"idn"`
	Expire string `json:"expire" bson:"expire"`
}
