// Package queue_publisher publishes booking domain events to
// RabbitMQ. It is the fire-and-forget notification boundary: errors
// are logged and swallowed so a broker outage never rolls back or
// fails a booking.
package queue_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/imanzi/transit-seat-booking/internal/model"
	q "github.com/imanzi/transit-seat-booking/internal/queue"
)

// Notifier publishes booking outcomes after the fact. It satisfies
// the ledger's Notifier interface.
type Notifier struct{}

// New returns a broker-backed Notifier.
func New() *Notifier { return &Notifier{} }

// BookingConfirmed publishes a BookingConfirmedEvent for b.
func (n *Notifier) BookingConfirmed(ctx context.Context, b model.Booking) {
	var seat uint32
	if b.SeatNumber != nil {
		seat = *b.SeatNumber
	}
	ev := q.BookingConfirmedEvent{
		BookingID:   b.ID,
		TripID:      b.TripID,
		CustomerID:  b.CustomerID,
		SeatNumber:  seat,
		PriceCents:  b.PriceCents,
		Method:      b.PaymentMethod,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	}
	publish(ctx, q.BookingConfirmedQueue, ev)
}

// BookingCancelled publishes a BookingCancelledEvent for b.
func (n *Notifier) BookingCancelled(ctx context.Context, b model.Booking, reason string) {
	ev := q.BookingCancelledEvent{
		BookingID:     b.ID,
		TripID:        b.TripID,
		CustomerID:    b.CustomerID,
		PaymentStatus: b.PaymentStatus,
		Reason:        reason,
		CancelledAt:   time.Now().UTC().Format(time.RFC3339),
	}
	publish(ctx, q.BookingCancelledQueue, ev)
}

// publish marshals the event and sends it to the named durable
// queue. The connection is dialed per publish; at this fleet's
// booking volume that is simpler than pooling channels, and a dial
// failure only costs a notification.
func publish(ctx context.Context, queueName string, event any) {
	conn, err := amqp.Dial(q.BrokerURL())
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(pubCtx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		log.Printf("rabbitmq: publish to %s failed: %v", queueName, err)
	}
}
