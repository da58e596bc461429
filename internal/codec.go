package internal

import (
	"fmt"
	"strings"

	"gitee.com/golang-module/dongle"

	"epaybg/entity"
)

// PackPayment serializes a payment request into the line-oriented pack the
// ePay.bg API consumes. Field order is fixed and every line starts with a
// newline, including the first one, matching the wire format bit for bit.
func PackPayment(request *entity.PaymentRequest) string {
	var pack strings.Builder
	pack.WriteString("\nMIN=" + request.ClientId)
	pack.WriteString("\nINVOICE=" + request.Invoice)
	pack.WriteString("\nAMOUNT=" + request.Amount)
	pack.WriteString("\nEXP_TIME=" + request.ExpTime)
	pack.WriteString("\nCURRENCY=" + request.Currency)
	pack.WriteString("\nENCODING=utf-8")
	pack.WriteString("\nDESCR=" + request.Description)
	return pack.String()
}

// EncodeBody encodes a line pack to the Base64 text that gets signed and
// transmitted.
func EncodeBody(pack string) string {
	return dongle.Encode.FromString(pack).ByBase64().ToString()
}

// DecodeBody reverses EncodeBody for an inbound notification body.
func DecodeBody(encoded string) (string, error) {
	decoded := dongle.Decode.FromString(encoded).ByBase64()
	if decoded.Error != nil {
		return "", fmt.Errorf("decode body: %w", decoded.Error)
	}
	return decoded.ToString(), nil
}
