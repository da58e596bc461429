package internal

import (
	"encoding/base64"
	"testing"

	"epaybg/entity"
)

func TestPackPayment_FieldOrderAndLeadingNewline(t *testing.T) {
	request := &entity.PaymentRequest{
		ClientId:    "D1234567",
		Invoice:     "0000012345",
		Amount:      "49.90",
		ExpTime:     "15.01.2023 10:30",
		Currency:    "BGN",
		Description: "Order: 12345",
	}

	// the remote service signs the pack byte for byte, so the leading
	// newline and the field order are part of the contract
	expected := "\nMIN=D1234567" +
		"\nINVOICE=0000012345" +
		"\nAMOUNT=49.90" +
		"\nEXP_TIME=15.01.2023 10:30" +
		"\nCURRENCY=BGN" +
		"\nENCODING=utf-8" +
		"\nDESCR=Order: 12345"

	if got := PackPayment(request); got != expected {
		t.Errorf("PackPayment:\n got %q\nwant %q", got, expected)
	}
}

func TestEncodeBody_IsStandardBase64(t *testing.T) {
	pack := "\nMIN=D1234567\nINVOICE=0000012345"
	expected := base64.StdEncoding.EncodeToString([]byte(pack))
	if got := EncodeBody(pack); got != expected {
		t.Errorf("EncodeBody = %s, expected %s", got, expected)
	}
}

func TestDecodeBody_RoundTrip(t *testing.T) {
	pack := "INVOICE=0000012345:STATUS=PAID"
	decoded, err := DecodeBody(EncodeBody(pack))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != pack {
		t.Errorf("round trip lost data: %q", decoded)
	}
}

func TestDecodeBody_RejectsInvalidInput(t *testing.T) {
	if _, err := DecodeBody("!!!not-base64!!!"); err == nil {
		t.Error("expected error for invalid base64 input")
	}
}
