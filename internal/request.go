package internal

import (
	"fmt"
	"time"

	"epaybg/entity"
)

// ePay.bg submission endpoints. The browser-facing methods post to the
// portal root; EasyPay registration has its own CGI endpoint.
const (
	liveUrl        = "https://www.epay.bg/"
	testUrl        = "https://demo.epay.bg/"
	liveEasyPayUrl = "https://www.epay.bg/ezp/reg_bill.cgi"
	testEasyPayUrl = "https://demo.epay.bg/ezp/reg_bill.cgi"
)

// expiryLayout is the "dd.mm.yyyy hh:mm" form EXP_TIME must use.
const expiryLayout = "02.01.2006 15:04"

// supportedCurrencies are the only currencies ePay.bg settles.
var supportedCurrencies = map[string]bool{
	"BGN": true,
	"USD": true,
	"EUR": true,
}

func SupportedCurrency(currency string) bool {
	return supportedCurrencies[currency]
}

// FormatExpiry renders a request expiry timestamp for the EXP_TIME field.
func FormatExpiry(t time.Time) string {
	return t.Format(expiryLayout)
}

// FormatAmount renders an order total the way the AMOUNT field expects it.
func FormatAmount(total float64) string {
	return fmt.Sprintf("%.2f", total)
}

// FormatPayTime converts the 14-digit yyyymmddhhmmss timestamp of a PAID
// record into a display timestamp. Values of unexpected length are
// returned unchanged rather than dropped.
func FormatPayTime(payTime string) string {
	if len(payTime) != 14 {
		return payTime
	}
	return fmt.Sprintf("%s-%s-%s %s:%s:%s",
		payTime[0:4], payTime[4:6], payTime[6:8],
		payTime[8:10], payTime[10:12], payTime[12:14])
}

// BuildPayload packs, encodes and signs one payment request. Pure
// construction; the caller decides where the payload is submitted.
func BuildPayload(request *entity.PaymentRequest, secretKey string) *entity.SignedPayload {
	encoded := EncodeBody(PackPayment(request))
	return &entity.SignedPayload{
		Encoded:  encoded,
		Checksum: Sign(SHA1, []byte(encoded), []byte(secretKey)),
	}
}
