package internal

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epaybg/entity"
	"epaybg/services"
)

func newTestServer(t *testing.T, store services.Database) *httptest.Server {
	t.Helper()

	payments := newTestPayments(store)

	server := NewServer(testConfig())
	server.SetLogger(NewLogger("server-test", false, nil))
	server.SetPaymentsService(payments)

	router := httprouter.New()
	server.Register(router)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func postNotify(t *testing.T, ts *httptest.Server, token string, notification *entity.IpnNotification) string {
	t.Helper()
	form := url.Values{
		"encoded":  {notification.Encoded},
		"checksum": {notification.Checksum},
	}
	response, err := http.PostForm(ts.URL+"/notify?hash="+token, form)
	require.NoError(t, err)
	defer response.Body.Close()

	require.Equal(t, http.StatusOK, response.StatusCode)
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNotifyEndpoint_AcknowledgesAppliedPayment(t *testing.T) {
	store := newMemStore(cardOrder(12345))
	ts := newTestServer(t, store)

	notification := signNotification("INVOICE=0000012345:STATUS=PAID:PAY_TIME=20230115103000:STAN=123456:BCODE=ABC123")
	token := IpnToken("salt", testSecret)

	assert.Equal(t, "1", postNotify(t, ts, token, notification))
	assert.True(t, store.get(12345).IsPaid)

	// redelivery of the same status acknowledges 0 and changes nothing
	assert.Equal(t, "0", postNotify(t, ts, token, notification))
	assert.Len(t, store.get(12345).Notes, 1)
}

func TestNotifyEndpoint_RejectsBadToken(t *testing.T) {
	store := newMemStore(cardOrder(12345))
	ts := newTestServer(t, store)

	notification := signNotification("INVOICE=0000012345:STATUS=PAID:PAY_TIME=20230115103000:STAN=123456:BCODE=ABC123")

	assert.Equal(t, "0", postNotify(t, ts, "wrong-token", notification))
	assert.False(t, store.get(12345).IsPaid)
}

func TestNotifyEndpoint_RejectsForgedChecksum(t *testing.T) {
	store := newMemStore(cardOrder(12345))
	ts := newTestServer(t, store)

	notification := signNotification("INVOICE=0000012345:STATUS=PAID:PAY_TIME=20230115103000:STAN=123456:BCODE=ABC123")
	notification.Checksum = Sign(SHA1, []byte(notification.Encoded), []byte("other-secret"))

	assert.Equal(t, "0", postNotify(t, ts, IpnToken("salt", testSecret), notification))
	assert.False(t, store.get(12345).IsPaid)
}

func TestPayEndpoint_ReturnsSignedForm(t *testing.T) {
	ts := newTestServer(t, newMemStore(cardOrder(12345)))

	response, err := http.Get(ts.URL + "/pay/12345")
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, http.StatusOK, response.StatusCode)

	var form entity.SubmissionForm
	require.NoError(t, json.NewDecoder(response.Body).Decode(&form))

	assert.Equal(t, string(entity.MethodPayLogin), form.Page)
	assert.Equal(t, testUrl, form.Url)
	assert.Equal(t, Sign(SHA1, []byte(form.Encoded), []byte(testSecret)), form.Checksum)
}

func TestPayEndpoint_InvalidOrderId(t *testing.T) {
	ts := newTestServer(t, newMemStore())

	response, err := http.Get(ts.URL + "/pay/not-a-number")
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestPayEndpoint_UnknownOrder(t *testing.T) {
	ts := newTestServer(t, newMemStore())

	response, err := http.Get(ts.URL + "/pay/777")
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, response.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, newMemStore())

	response, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, http.StatusOK, response.StatusCode)
}
