package internal

import (
	"context"
	"fmt"

	"epaybg/entity"
	"epaybg/services"
)

// SendFunc delivers one rendered message to a recipient. The host shop
// plugs its mailer in here; the core never talks to a mail server itself.
type SendFunc func(recipient, subject, body string) error

// Notifier hands payment instructions to a host-provided send function.
// Without one it only logs, which keeps test and demo setups working.
type Notifier struct {
	logger services.LogHandler
	send   SendFunc
}

func NewNotifier(logger services.LogHandler, send SendFunc) *Notifier {
	return &Notifier{
		logger: logger,
		send:   send,
	}
}

func (n *Notifier) SendInstructions(_ context.Context, order *entity.Order, text string) error {
	if n.send == nil || order.BillingEmail == "" {
		n.logger.Info(fmt.Sprintf("instructions for order %d ready, no mail transport configured", order.Id))
		return nil
	}
	subject := fmt.Sprintf("Payment instructions for order %d", order.Id)
	if err := n.send(order.BillingEmail, subject, text); err != nil {
		return fmt.Errorf("send instructions: %w", err)
	}
	n.logger.Info(fmt.Sprintf("instructions for order %d sent", order.Id))
	return nil
}
