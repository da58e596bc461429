package internal

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"epaybg/config"
	"epaybg/entity"
	"epaybg/services"
)

const (
	paymentForm   = "/pay/:order_id"
	easyPayIssue  = "/easypay/:order_id"
	paymentNotify = "/notify"
	metricsPath   = "/metrics"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	payments   services.Payments
	logger     services.LogHandler
}

func NewServer(conf *config.Config) *Server {

	server := Server{
		conf: conf,
	}

	// register itself as a router for httpServer handler
	router := httprouter.New()
	server.Register(router)
	server.httpServer = &http.Server{
		Handler: router,
	}

	return &server
}

func (s *Server) Register(router *httprouter.Router) {
	router.GET(paymentForm, s.paymentForm)
	router.POST(easyPayIssue, s.issueEasyPayCode)
	router.POST(paymentNotify, s.paymentNotify)
	router.Handler(http.MethodGet, metricsPath, promhttp.Handler())
}

func (s *Server) SetPaymentsService(payments services.Payments) {
	s.payments = payments
}

func (s *Server) SetLogger(logger services.LogHandler) {
	s.logger = logger
}

func (s *Server) Start() error {
	if s.conf == nil {
		return fmt.Errorf("configuration not loaded")
	}

	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIP, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	if s.conf.Listen.TLS {
		s.logger.Info(fmt.Sprintf("starting https TLS on %s", serverAddress))
		err = s.httpServer.ServeTLS(listener, s.conf.Listen.CertFile, s.conf.Listen.KeyFile)
	} else {
		s.logger.Info(fmt.Sprintf("starting http on %s", serverAddress))
		err = s.httpServer.Serve(listener)
	}

	return err
}

// paymentForm returns the signed submission form the storefront renders
// for the browser-facing payment methods.
func (s *Server) paymentForm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := WithRequestID(r.Context())
	reqID := GetRequestID(ctx)

	orderId, ok := s.orderIdParam(w, ps, reqID)
	if !ok {
		return
	}

	form, err := s.payments.PaymentForm(ctx, orderId)
	if err != nil {
		s.logger.Error(fmt.Sprintf("[%s] payment form for order %v", reqID, orderId), err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.writeJson(w, form, reqID)
}

// issueEasyPayCode registers the order for offline payment and returns the
// issued IDN code.
func (s *Server) issueEasyPayCode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := WithRequestID(r.Context())
	reqID := GetRequestID(ctx)

	orderId, ok := s.orderIdParam(w, ps, reqID)
	if !ok {
		return
	}

	code, err := s.payments.IssueEasyPayCode(ctx, orderId)
	if err != nil {
		s.logger.Error(fmt.Sprintf("[%s] issue easypay code for order %v", reqID, orderId), err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.writeJson(w, code, reqID)
}

// paymentNotify handles the asynchronous IPN callback from ePay.bg.
// The response body is the protocol acknowledgement: "1" on an applied
// payment, "0" for everything else. The HTTP status stays 200 either way;
// the digit is the only signal the remote service reads.
func (s *Server) paymentNotify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := WithRequestID(r.Context())
	reqID := GetRequestID(ctx)

	if err := r.ParseForm(); err != nil {
		s.logger.Error(fmt.Sprintf("[%s] payment notify: parse form", reqID), err)
		s.writeAck(w, false)
		return
	}

	notification := &entity.IpnNotification{
		Token:    r.URL.Query().Get("hash"),
		Encoded:  r.PostFormValue("encoded"),
		Checksum: r.PostFormValue("checksum"),
	}

	s.logger.Debug(fmt.Sprintf("[%s] payment notify from %s", reqID, r.RemoteAddr))
	s.writeAck(w, s.payments.Notify(ctx, notification))
}

func (s *Server) writeAck(w http.ResponseWriter, ok bool) {
	body := "0"
	if ok {
		body = "1"
	}
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.Error("write ack", err)
	}
}

func (s *Server) writeJson(w http.ResponseWriter, payload interface{}, reqID string) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error(fmt.Sprintf("[%s] encode response", reqID), err)
	}
}

func (s *Server) orderIdParam(w http.ResponseWriter, ps httprouter.Params, reqID string) (int, bool) {
	raw := ps.ByName("order_id")
	if raw == "" {
		s.logger.Warn(fmt.Sprintf("[%s] empty order id", reqID))
		w.WriteHeader(http.StatusBadRequest)
		return 0, false
	}
	orderId, err := strconv.Atoi(raw)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("[%s] invalid order id: %s; %v", reqID, raw, err))
		w.WriteHeader(http.StatusBadRequest)
		return 0, false
	}
	return orderId, true
}
