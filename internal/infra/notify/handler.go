package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"rentspace/internal/domain/shared/money"
	"rentspace/internal/infra/broker/kafka"
	"rentspace/internal/infra/inbox"
)

// Notification is a user-facing message derived from a booking lifecycle event.
type Notification struct {
	EventID   string
	EventType string
	BookingID string
	Recipient string
	Text      string
	At        time.Time
}

type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

// LogSink writes notifications to the structured log.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Deliver(ctx context.Context, n Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification",
		"event_id", n.EventID, "type", n.EventType, "booking_id", n.BookingID, "recipient", n.Recipient, "text", n.Text)
	return nil
}

type cloudEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Subject string          `json:"subject"`
	Time    time.Time       `json:"time"`
	Data    json.RawMessage `json:"data"`
}

type eventData struct {
	BookingID string       `json:"BookingID"`
	ReviewID  string       `json:"ReviewID"`
	ListingID string       `json:"ListingID"`
	RenterID  string       `json:"RenterID"`
	ActorID   string       `json:"ActorID"`
	Reason    string       `json:"Reason"`
	Rating    int          `json:"Rating"`
	Status    string       `json:"Status"`
	Total     *money.Money `json:"Total"`
}

var ErrMalformedEvent = errors.New("notify: malformed cloud event")

// Handler turns relayed outbox events into notifications, skipping events
// the inbox has already seen.
type Handler struct {
	Inbox  inbox.Deduper
	Sink   Sink
	Logger *slog.Logger
}

func (h *Handler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt cloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		h.logger().Warn("dropping undecodable event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	if evt.ID == "" {
		evt.ID = kafka.Header(msg, "ce_id")
	}
	if evt.ID == "" || evt.Type == "" {
		h.logger().Warn("dropping event without id or type", "topic", msg.Topic, "offset", msg.Offset)
		return nil
	}
	seen, err := h.Inbox.Seen(ctx, evt.ID)
	if err != nil {
		return fmt.Errorf("inbox: %w", err)
	}
	if seen {
		h.logger().Debug("duplicate event skipped", "event_id", evt.ID, "type", evt.Type)
		return nil
	}
	n, ok, err := render(evt)
	if err != nil {
		h.logger().Warn("dropping event", "event_id", evt.ID, "type", evt.Type, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return h.Sink.Deliver(ctx, n)
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func render(evt cloudEvent) (Notification, bool, error) {
	var data eventData
	if len(evt.Data) > 0 {
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			return Notification{}, false, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
	}
	n := Notification{
		EventID:   evt.ID,
		EventType: evt.Type,
		BookingID: data.BookingID,
		At:        evt.Time,
	}
	if n.BookingID == "" && !strings.HasPrefix(evt.Type, "review.") {
		n.BookingID = evt.Subject
	}
	switch strings.TrimSuffix(evt.Type, ".v1") {
	case "booking.requested":
		n.Recipient = data.RenterID
		if data.Status == "CONFIRMED" {
			n.Text = fmt.Sprintf("Booking %s is confirmed%s.", n.BookingID, totalSuffix(data))
		} else {
			n.Text = fmt.Sprintf("Booking %s is waiting for the host%s.", n.BookingID, totalSuffix(data))
		}
	case "booking.confirmed":
		n.Text = fmt.Sprintf("The host confirmed booking %s.", n.BookingID)
	case "booking.paid":
		n.Text = fmt.Sprintf("Payment received for booking %s.", n.BookingID)
	case "booking.cancelled":
		n.Recipient = data.ActorID
		n.Text = fmt.Sprintf("Booking %s was cancelled.", n.BookingID)
		if data.Reason != "" {
			n.Text = fmt.Sprintf("Booking %s was cancelled: %s.", n.BookingID, data.Reason)
		}
	case "booking.refunded":
		n.Text = fmt.Sprintf("Booking %s was refunded.", n.BookingID)
	case "review.submitted":
		n.Text = fmt.Sprintf("Listing %s received a %d-star review.", data.ListingID, data.Rating)
	default:
		return Notification{}, false, nil
	}
	return n, true, nil
}

func totalSuffix(d eventData) string {
	if d.Total == nil || d.Total.Currency == "" {
		return ""
	}
	return " (" + d.Total.String() + ")"
}
