package services

import (
	"context"
	"epaybg/entity"
)

// Database is the narrow order-store surface the payment core needs from
// the host shop. Orders are owned by the host; this service only reads them
// and stamps payment attributes.
type Database interface {
	WriteLogMessage(data Data) error

	GetOrder(ctx context.Context, id int) (*entity.Order, error)
	AddOrderNote(ctx context.Context, id int, note string) error

	// CompareAndSwapStatus atomically replaces the order's last notification
	// status, but only while it still equals old. Returns false when another
	// writer got there first and the stored status no longer matches.
	CompareAndSwapStatus(ctx context.Context, id int, old, new string) (bool, error)

	MarkOrderPaid(ctx context.Context, id int, transactionRef, paidDate string) error
	CancelOrder(ctx context.Context, id int, reason string) error

	SetEasyPayCode(ctx context.Context, id int, code *entity.EasyPayCode) error
	ClearEasyPayCode(ctx context.Context, id int) error
	// MarkInstructionsSent stamps the send time and reports whether this
	// call was the first one for the order.
	MarkInstructionsSent(ctx context.Context, id int) (bool, error)
}

type Data interface {
	DataType() string
}
