package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"epaybg/config"
	"epaybg/entity"
	"epaybg/services"
)

// easyPayOfflineStan is the placeholder trace number ePay.bg reports for
// payments settled offline; the issued IDN code is the real reference then.
const easyPayOfflineStan = "000000"

// Issuance failures for the EasyPay registration call.
var (
	ErrUnknownOrder   = errors.New("order not found")
	ErrRemoteRejected = errors.New("registration rejected by payment service")
	ErrEmptyResponse  = errors.New("empty registration response")
)

var (
	idnResponse = regexp.MustCompile(`^IDN=(\d+)$`)
	errResponse = regexp.MustCompile(`^ERR=(.*)$`)
)

// Action is the single outcome of reconciling one status record.
type Action int

const (
	ActionPaid Action = iota
	ActionDenied
	ActionExpired
	ActionDuplicate
	ActionUnknownOrder
)

func (a Action) String() string {
	switch a {
	case ActionPaid:
		return "paid"
	case ActionDenied:
		return "denied"
	case ActionExpired:
		return "expired"
	case ActionDuplicate:
		return "duplicate"
	case ActionUnknownOrder:
		return "unknown_order"
	}
	return "unknown"
}

// Payments handles payment processing with the ePay.bg gateway.
// It uses fine-grained locking per order to allow concurrent callbacks for
// different orders while serializing callbacks for the same one.
type Payments struct {
	conf       *config.Config
	database   services.Database
	notifier   services.Notifier
	logger     services.LogHandler
	locks      sync.Map // map[int]*sync.Mutex for per-order locking
	easyPayUrl string
	httpClient *http.Client
}

// NewPayments creates a new payment processing service with a configured
// HTTP client. The client carries the 30s timeout the EasyPay registration
// call must observe; nothing retries silently.
func NewPayments(conf *config.Config) *Payments {
	easyPayUrl := liveEasyPayUrl
	if conf.Merchant.TestMode {
		easyPayUrl = testEasyPayUrl
	}
	return &Payments{
		conf:       conf,
		easyPayUrl: easyPayUrl,
		locks:      sync.Map{},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				DisableKeepAlives:   false,
			},
		},
	}
}

// lockOrder acquires a lock for a specific order to prevent concurrent
// modifications. Different orders proceed in parallel.
func (p *Payments) lockOrder(id int) *sync.Mutex {
	value, _ := p.locks.LoadOrStore(id, &sync.Mutex{})
	mutex := value.(*sync.Mutex)
	mutex.Lock()
	return mutex
}

// unlockOrder releases the lock for an order and cleans up the mutex
// from the map to prevent unbounded growth.
func (p *Payments) unlockOrder(id int, mutex *sync.Mutex) {
	mutex.Unlock()
	p.locks.Delete(id)
}

func (p *Payments) SetDatabase(database services.Database) {
	p.database = database
}

func (p *Payments) SetNotifier(notifier services.Notifier) {
	p.notifier = notifier
}

func (p *Payments) SetLogger(logger services.LogHandler) {
	p.logger = logger
	if p.conf.Merchant.TestMode {
		p.logger.Warn("running against the demo portal")
	} else {
		p.logger.Info("running against the live portal")
	}
}

func (p *Payments) merchantConfigured() error {
	if p.conf.Merchant.ClientId == "" || p.conf.Merchant.SecretKey == "" {
		return fmt.Errorf("merchant not configured")
	}
	return nil
}

// PaymentForm builds the signed submission form for an order. The form is
// returned to the storefront, which renders it and posts the buyer to
// ePay.bg; nothing is transmitted here.
func (p *Payments) PaymentForm(ctx context.Context, orderId int) (*entity.SubmissionForm, error) {
	if err := p.merchantConfigured(); err != nil {
		return nil, err
	}
	if p.database == nil {
		return nil, fmt.Errorf("database not set")
	}

	order, err := p.database.GetOrder(ctx, orderId)
	if err != nil || order == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOrder, orderId)
	}

	method := order.PaymentMethod
	if method == "" {
		method = entity.MethodPayLogin
	}
	if method == entity.MethodEasyPay {
		return nil, fmt.Errorf("order %d pays offline, no submission form", orderId)
	}
	if !SupportedCurrency(order.Currency) {
		return nil, fmt.Errorf("unsupported currency %s", order.Currency)
	}

	expires := time.Now().Add(time.Duration(p.conf.Merchant.ExpTimeHours) * time.Hour)
	payload := BuildPayload(p.newPaymentRequest(order, expires), p.conf.Merchant.SecretKey)

	submitUrl := liveUrl
	if p.conf.Merchant.TestMode {
		submitUrl = testUrl
	}

	if err := p.database.AddOrderNote(ctx, orderId, "Awaiting payment from ePay.bg"); err != nil {
		p.logger.Error("add order note", err)
	}

	return &entity.SubmissionForm{
		Url:       submitUrl,
		Page:      string(method),
		Lang:      p.conf.Merchant.Language,
		Encoded:   payload.Encoded,
		Checksum:  payload.Checksum,
		UrlOk:     p.conf.Merchant.UrlOk,
		UrlCancel: p.conf.Merchant.UrlCancel,
	}, nil
}

// IssueEasyPayCode registers the order with the EasyPay endpoint and
// persists the returned IDN code. Re-issuing overwrites the previous code;
// no retry happens on failure.
func (p *Payments) IssueEasyPayCode(ctx context.Context, orderId int) (*entity.EasyPayCode, error) {
	if err := p.merchantConfigured(); err != nil {
		return nil, err
	}
	if p.database == nil {
		return nil, fmt.Errorf("database not set")
	}

	mutex := p.lockOrder(orderId)
	defer p.unlockOrder(orderId, mutex)

	order, err := p.database.GetOrder(ctx, orderId)
	if err != nil || order == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOrder, orderId)
	}
	if !SupportedCurrency(order.Currency) {
		return nil, fmt.Errorf("unsupported currency %s", order.Currency)
	}

	expires := time.Now().Add(time.Duration(p.conf.EasyPay.ExpTimeHours) * time.Hour)
	payload := BuildPayload(p.newPaymentRequest(order, expires), p.conf.Merchant.SecretKey)

	body, err := p.postRegistration(ctx, payload)
	if err != nil {
		issuanceTotal.WithLabelValues("transport_failure").Inc()
		return nil, fmt.Errorf("easypay registration: %w", err)
	}

	response := strings.TrimSpace(body)
	if response == "" {
		issuanceTotal.WithLabelValues("empty_response").Inc()
		return nil, ErrEmptyResponse
	}
	if groups := errResponse.FindStringSubmatch(response); groups != nil {
		issuanceTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %s", ErrRemoteRejected, groups[1])
	}
	groups := idnResponse.FindStringSubmatch(response)
	if groups == nil {
		issuanceTotal.WithLabelValues("unrecognized").Inc()
		return nil, fmt.Errorf("unrecognized registration response: %s", secret(response))
	}

	code := &entity.EasyPayCode{
		Idn:    groups[1],
		Expire: FormatExpiry(expires),
	}
	if err := p.database.SetEasyPayCode(ctx, orderId, code); err != nil {
		return nil, fmt.Errorf("save easypay code: %w", err)
	}
	note := fmt.Sprintf("Awaiting payment from EasyPay/B-Pay with code: %s", code.Idn)
	if err := p.database.AddOrderNote(ctx, orderId, note); err != nil {
		p.logger.Error("add order note", err)
	}
	issuanceTotal.WithLabelValues("issued").Inc()
	p.logger.Info(fmt.Sprintf("order %d got easypay code %s, valid until %s", orderId, code.Idn, code.Expire))

	order.EasyPay = code
	p.sendInstructions(ctx, order)

	return code, nil
}

// sendInstructions delivers the how-to-pay text once per order. Failures
// are logged, never surfaced: the code is already issued and displayed.
func (p *Payments) sendInstructions(ctx context.Context, order *entity.Order) {
	if !p.conf.EasyPay.SendInstructions || p.notifier == nil {
		return
	}
	first, err := p.database.MarkInstructionsSent(ctx, order.Id)
	if err != nil {
		p.logger.Error("mark instructions sent", err)
		return
	}
	if !first {
		return
	}
	if err := p.notifier.SendInstructions(ctx, order, Instructions(order)); err != nil {
		p.logger.Error("send instructions", err)
	}
}

func (p *Payments) postRegistration(ctx context.Context, payload *entity.SignedPayload) (string, error) {
	form := url.Values{
		"ENCODED":  {payload.Encoded},
		"CHECKSUM": {payload.Checksum},
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, p.easyPayUrl, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create http request: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := p.httpClient.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("request timeout or cancelled: %w", ctx.Err())
		}
		return "", err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			p.logger.Error("close response body", err)
		}
	}(response.Body)

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	return string(body), nil
}

// Notify processes one inbound IPN callback. Every status record in the
// body is reconciled independently; the returned acknowledgement is true
// only when at least one record completed a PAID transition, so the remote
// retry policy keeps governing everything else.
func (p *Payments) Notify(ctx context.Context, notification *entity.IpnNotification) bool {
	expectedToken := IpnToken(p.conf.Merchant.ServerSalt, p.conf.Merchant.SecretKey)
	enforceToken := !p.conf.Merchant.DisableIpnKeyCheck

	records, err := VerifyAndParse(notification, expectedToken, p.conf.Merchant.SecretKey, enforceToken)
	if err != nil {
		p.logger.Warn(fmt.Sprintf("notification rejected: %v", err))
		notificationsTotal.WithLabelValues(rejectionOutcome(err)).Inc()
		return false
	}
	if len(records) == 0 {
		p.logger.Warn("notification body contained no status records")
		notificationsTotal.WithLabelValues("no_records").Inc()
		return false
	}

	ack := false
	for _, record := range records {
		action, err := p.reconcile(ctx, record)
		notificationsTotal.WithLabelValues(action.String()).Inc()
		if err != nil {
			p.logger.Error(fmt.Sprintf("invoice %s: %s", record.Invoice, action), err)
			continue
		}
		if action == ActionDuplicate {
			p.logger.Info(fmt.Sprintf("invoice %s: same status %s, nothing to do", record.Invoice, record.Status))
			continue
		}
		p.logger.Info(fmt.Sprintf("invoice %s: %s", record.Invoice, action))
		if action == ActionPaid {
			ack = true
		}
	}
	return ack
}

func rejectionOutcome(err error) string {
	switch {
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrSignatureMismatch):
		return "signature_mismatch"
	default:
		return "malformed"
	}
}

// reconcile applies one verified status record to its order exactly once.
// The per-order mutex plus the compare-and-swap on last_status guarantee a
// given status value mutates an order at most one time, however often the
// remote service redelivers it.
func (p *Payments) reconcile(ctx context.Context, record entity.StatusRecord) (Action, error) {
	orderId, err := p.orderIdFromInvoice(record.Invoice)
	if err != nil {
		return ActionUnknownOrder, err
	}
	if p.database == nil {
		return ActionUnknownOrder, fmt.Errorf("database not set")
	}

	mutex := p.lockOrder(orderId)
	defer p.unlockOrder(orderId, mutex)

	order, err := p.database.GetOrder(ctx, orderId)
	if err != nil || order == nil {
		return ActionUnknownOrder, fmt.Errorf("%w: invoice %s", ErrUnknownOrder, record.Invoice)
	}

	status := string(record.Status)
	if order.LastStatus == status {
		return ActionDuplicate, nil
	}
	swapped, err := p.database.CompareAndSwapStatus(ctx, orderId, order.LastStatus, status)
	if err != nil {
		return ActionDuplicate, fmt.Errorf("swap status: %w", err)
	}
	if !swapped {
		// lost the race against a concurrent callback carrying the same status
		return ActionDuplicate, nil
	}

	switch record.Status {
	case entity.StatusPaid:
		paidDate := FormatPayTime(record.PayTime)
		reference := record.Stan
		if order.PaymentMethod == entity.MethodEasyPay && record.Stan == easyPayOfflineStan && order.EasyPay != nil {
			reference = order.EasyPay.Idn
		}
		note := fmt.Sprintf("ePay.bg approved payment on %s with BORICA code: %s, transaction id: %s", paidDate, record.BCode, record.Stan)
		if err := p.database.AddOrderNote(ctx, orderId, note); err != nil {
			p.logger.Error("add order note", err)
		}
		if err := p.database.MarkOrderPaid(ctx, orderId, reference, paidDate); err != nil {
			return ActionPaid, fmt.Errorf("mark order paid: %w", err)
		}
		return ActionPaid, nil

	case entity.StatusDenied:
		return ActionDenied, p.cancelOrder(ctx, orderId, status, "Order is denied by the payment service.")

	case entity.StatusExpired:
		return ActionExpired, p.cancelOrder(ctx, orderId, status, "Order is cancelled due to expiration.")
	}

	return ActionDuplicate, fmt.Errorf("unhandled status %s", status)
}

// cancelOrder runs the shared cancellation path of DENIED and EXPIRED:
// one audit note, the host-side cancel, and removal of any EasyPay code so
// a stale IDN cannot be paid against a dead order.
func (p *Payments) cancelOrder(ctx context.Context, orderId int, status, reason string) error {
	note := fmt.Sprintf("ePay.bg set invoice status to: %s", status)
	if err := p.database.AddOrderNote(ctx, orderId, note); err != nil {
		p.logger.Error("add order note", err)
	}
	if err := p.database.CancelOrder(ctx, orderId, reason); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if err := p.database.ClearEasyPayCode(ctx, orderId); err != nil {
		p.logger.Error("clear easypay code", err)
	}
	return nil
}

// orderIdFromInvoice strips the configured invoice prefix and parses the
// remainder as the host order id.
func (p *Payments) orderIdFromInvoice(invoice string) (int, error) {
	prefix := p.conf.Merchant.InvoicePrefix
	if len(invoice) <= len(prefix) {
		return 0, fmt.Errorf("invoice %s shorter than prefix", invoice)
	}
	orderId, err := strconv.Atoi(invoice[len(prefix):])
	if err != nil {
		return 0, fmt.Errorf("invalid order id in invoice %s: %v", invoice, err)
	}
	return orderId, nil
}

func (p *Payments) newPaymentRequest(order *entity.Order, expires time.Time) *entity.PaymentRequest {
	description := order.Description
	if description == "" {
		description = fmt.Sprintf("Order: %d", order.Id)
	}
	// the pack is line-oriented; a newline in free text would break it
	description = strings.ReplaceAll(description, "\n", " ")

	return &entity.PaymentRequest{
		ClientId:    p.conf.Merchant.ClientId,
		Invoice:     fmt.Sprintf("%s%d", p.conf.Merchant.InvoicePrefix, order.Id),
		Amount:      FormatAmount(order.Total),
		ExpTime:     FormatExpiry(expires),
		Currency:    order.Currency,
		Description: description,
	}
}

func secret(some string) string {
	if len(some) > 5 {
		return fmt.Sprintf("%s***", some[0:5])
	}
	if some == "" {
		return "?"
	}
	return "***"
}
