package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/hotelbooking/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	switch event.Type {
	case "booking_created":
		fmt.Printf("send email to %s: booking %s received for room %d, awaiting confirmation\n",
			event.Email, event.Code, event.RoomID)
	case "booking_confirmed":
		fmt.Printf("send email to %s: booking %s confirmed, check-in %s\n",
			event.Email, event.Code, event.CheckIn.Format("2006-01-02"))
	case "booking_cancelled", "booking_expired":
		fmt.Printf("send email to %s: booking %s cancelled\n", event.Email, event.Code)
	default:
		fmt.Printf("send email to %s about %s for booking %s\n", event.Email, event.Type, event.Code)
	}
	return nil
}
