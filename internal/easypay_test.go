package internal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"epaybg/entity"
)

// easyPayServer fakes the registration endpoint with a canned response and
// captures the submitted form for later inspection.
func easyPayServer(t *testing.T, response string, captured *map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse registration form: %v", err)
		}
		if captured != nil {
			*captured = map[string]string{
				"ENCODED":  r.PostFormValue("ENCODED"),
				"CHECKSUM": r.PostFormValue("CHECKSUM"),
			}
		}
		_, _ = w.Write([]byte(response))
	}))
}

func easyPayOrder(id int) *entity.Order {
	order := cardOrder(id)
	order.PaymentMethod = entity.MethodEasyPay
	order.BillingEmail = "buyer@example.com"
	return order
}

func TestIssueEasyPayCode_Success(t *testing.T) {
	captured := map[string]string{}
	server := easyPayServer(t, "IDN=98765\n", &captured)
	defer server.Close()

	store := newMemStore(easyPayOrder(12345))
	notifier := &recordingNotifier{}
	payments := newTestPayments(store)
	payments.SetNotifier(notifier)
	payments.easyPayUrl = server.URL

	before := time.Now().Add(48 * time.Hour)
	code, err := payments.IssueEasyPayCode(context.Background(), 12345)
	after := time.Now().Add(48 * time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if code.Idn != "98765" {
		t.Errorf("idn = %s", code.Idn)
	}
	// expiry is now + configured hours, at minute precision
	if code.Expire != FormatExpiry(before) && code.Expire != FormatExpiry(after) {
		t.Errorf("expire = %s, expected around %s", code.Expire, FormatExpiry(before))
	}

	// the submitted payload must verify with the merchant secret
	if Sign(SHA1, []byte(captured["ENCODED"]), []byte(testSecret)) != captured["CHECKSUM"] {
		t.Error("registration payload checksum does not verify")
	}

	order := store.get(12345)
	if order.EasyPay == nil || order.EasyPay.Idn != "98765" {
		t.Errorf("code not persisted: %+v", order.EasyPay)
	}
	if len(order.Notes) != 1 || !strings.Contains(order.Notes[0], "98765") {
		t.Errorf("expected an awaiting-payment note with the code, got %v", order.Notes)
	}
	if order.InstructionsSent == 0 {
		t.Error("instructions-sent stamp missing")
	}
	if len(notifier.texts) != 1 || !strings.Contains(notifier.texts[0], "98765") {
		t.Errorf("instructions not delivered: %v", notifier.texts)
	}
}

func TestIssueEasyPayCode_ReissueOverwritesButMailsOnce(t *testing.T) {
	first := easyPayServer(t, "IDN=11111", nil)
	defer first.Close()
	second := easyPayServer(t, "IDN=22222", nil)
	defer second.Close()

	store := newMemStore(easyPayOrder(12345))
	notifier := &recordingNotifier{}
	payments := newTestPayments(store)
	payments.SetNotifier(notifier)

	payments.easyPayUrl = first.URL
	if _, err := payments.IssueEasyPayCode(context.Background(), 12345); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	payments.easyPayUrl = second.URL
	code, err := payments.IssueEasyPayCode(context.Background(), 12345)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}

	if code.Idn != "22222" {
		t.Errorf("re-issue should return the new code, got %s", code.Idn)
	}
	if store.get(12345).EasyPay.Idn != "22222" {
		t.Error("re-issue must overwrite the stored code")
	}
	if len(notifier.texts) != 1 {
		t.Errorf("instructions are sent once per order, got %d sends", len(notifier.texts))
	}
}

func TestIssueEasyPayCode_RemoteRejected(t *testing.T) {
	server := easyPayServer(t, "ERR=invalid amount", nil)
	defer server.Close()

	payments := newTestPayments(newMemStore(easyPayOrder(12345)))
	payments.easyPayUrl = server.URL

	_, err := payments.IssueEasyPayCode(context.Background(), 12345)
	if !errors.Is(err, ErrRemoteRejected) {
		t.Fatalf("expected ErrRemoteRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid amount") {
		t.Errorf("rejection reason lost: %v", err)
	}
}

func TestIssueEasyPayCode_EmptyResponse(t *testing.T) {
	server := easyPayServer(t, "", nil)
	defer server.Close()

	payments := newTestPayments(newMemStore(easyPayOrder(12345)))
	payments.easyPayUrl = server.URL

	if _, err := payments.IssueEasyPayCode(context.Background(), 12345); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestIssueEasyPayCode_TransportFailure(t *testing.T) {
	server := easyPayServer(t, "IDN=98765", nil)
	server.Close() // connection refused from here on

	payments := newTestPayments(newMemStore(easyPayOrder(12345)))
	payments.easyPayUrl = server.URL

	if _, err := payments.IssueEasyPayCode(context.Background(), 12345); err == nil {
		t.Error("transport failure must surface as an error")
	}
}

func TestIssueEasyPayCode_UnknownOrder(t *testing.T) {
	payments := newTestPayments(newMemStore())

	if _, err := payments.IssueEasyPayCode(context.Background(), 404); !errors.Is(err, ErrUnknownOrder) {
		t.Errorf("expected ErrUnknownOrder, got %v", err)
	}
}
