package services

import (
	"context"
	"epaybg/entity"
)

// Notifier delivers payment instructions to the buyer. Rendering and
// transport belong to the host shop; the core only hands over the text.
type Notifier interface {
	SendInstructions(ctx context.Context, order *entity.Order, text string) error
}
