package booking

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/kafka"
	"github.com/Domenick1991/hotelbooking/internal/repository"
	"github.com/google/uuid"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	UpdateBooking(ctx context.Context, id int64, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	ListBookings(ctx context.Context) ([]domain.Booking, error)
	ListActiveByRoom(ctx context.Context, roomID int64) ([]domain.Booking, error)
	CheckAvailability(ctx context.Context, roomID int64, checkIn, checkOut string) (bool, error)
	TransitionStatus(ctx context.Context, id int64, target domain.BookingStatus) (*domain.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
	ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error)
}

type Cache interface {
	AcquireRoomHold(ctx context.Context, roomID int64, ttl time.Duration) (bool, error)
	ReleaseRoomHold(ctx context.Context, roomID int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	rooms              repository.RoomRepository
	cache              Cache
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	holdTTL            time.Duration
	pendingTTL         time.Duration
	now                func() time.Time
}

type CreateBookingInput struct {
	RoomID          int64  `json:"room_id"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	NumGuests       int    `json:"num_guests"`
	SpecialRequests string `json:"special_requests"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

// WithClock overrides the service clock, used by tests to pin "today" for the
// check-in window precondition.
func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	rooms repository.RoomRepository,
	cache Cache,
	producer Producer,
	eventsTopic string,
	holdTTL, pendingTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:    bookings,
		rooms:       rooms,
		cache:       cache,
		producer:    producer,
		eventsTopic: eventsTopic,
		holdTTL:     holdTTL,
		pendingTTL:  pendingTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

const dateLayout = "2006-01-02"

// validate collects every violated field before failing, so one response
// carries the complete list instead of the first problem encountered.
func validate(input CreateBookingInput) (domain.DateRange, *domain.ValidationError) {
	verr := domain.NewValidationError()

	if input.RoomID <= 0 {
		verr.Add("room_id", "room id is required")
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		verr.Add("customer_name", "name is required")
	}
	email := strings.TrimSpace(input.CustomerEmail)
	if email == "" {
		verr.Add("customer_email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		verr.Add("customer_email", "email is not valid")
	}
	if strings.TrimSpace(input.CustomerPhone) == "" {
		verr.Add("customer_phone", "phone is required")
	}
	if input.NumGuests < 1 {
		verr.Add("num_guests", "at least one guest is required")
	}

	var rng domain.DateRange
	checkIn, inErr := time.Parse(dateLayout, input.CheckIn)
	if inErr != nil {
		verr.Add("check_in", "check-in date must be YYYY-MM-DD")
	}
	checkOut, outErr := time.Parse(dateLayout, input.CheckOut)
	if outErr != nil {
		verr.Add("check_out", "check-out date must be YYYY-MM-DD")
	}
	if inErr == nil && outErr == nil {
		r, err := domain.NewDateRange(checkIn, checkOut)
		if err != nil {
			verr.Add("check_out", "check-out must be after check-in")
		} else {
			rng = r
		}
	}

	if verr.HasErrors() {
		return domain.DateRange{}, verr
	}
	return rng, nil
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	rng, verr := validate(input)
	if verr != nil {
		return nil, verr
	}

	room, err := s.rooms.GetByID(ctx, input.RoomID)
	if err != nil {
		return nil, err
	}

	total, err := domain.TotalPriceCents(room.PriceCents, rng)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		ok, err := s.cache.AcquireRoomHold(ctx, room.ID, s.holdTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrRoomNotAvailable
		}
		defer func() {
			_ = s.cache.ReleaseRoomHold(ctx, room.ID)
		}()
	}

	booking := &domain.Booking{
		RoomID:          room.ID,
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerEmail:   strings.TrimSpace(input.CustomerEmail),
		CustomerPhone:   strings.TrimSpace(input.CustomerPhone),
		CheckIn:         rng.CheckIn,
		CheckOut:        rng.CheckOut,
		NumGuests:       input.NumGuests,
		TotalPriceCents: total,
		SpecialRequests: input.SpecialRequests,
	}

	// One retry with a fresh code: a conflict here is either a code collision
	// or a concurrent insert that raced past the availability check. The
	// second conflict is surfaced as-is.
	if err := s.createWithCode(ctx, booking); err != nil {
		if !errors.Is(err, domain.ErrPersistenceConflict) {
			return nil, err
		}
		if err := s.createWithCode(ctx, booking); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, "booking_created", booking)
	return booking, nil
}

func (s *BookingService) createWithCode(ctx context.Context, booking *domain.Booking) error {
	code, err := domain.NewBookingCode(booking.RoomID)
	if err != nil {
		return err
	}
	booking.Code = code
	return s.bookings.Create(ctx, booking)
}

func (s *BookingService) UpdateBooking(ctx context.Context, id int64, input CreateBookingInput) (*domain.Booking, error) {
	rng, verr := validate(input)
	if verr != nil {
		return nil, verr
	}

	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// GetRate doubles as the room existence check; the price is always
	// recomputed from the room's current rate, never taken from the client.
	rate, err := s.rooms.GetRate(ctx, input.RoomID)
	if err != nil {
		return nil, err
	}

	total, err := domain.TotalPriceCents(rate, rng)
	if err != nil {
		return nil, err
	}

	updated := *current
	updated.RoomID = input.RoomID
	updated.CustomerName = strings.TrimSpace(input.CustomerName)
	updated.CustomerEmail = strings.TrimSpace(input.CustomerEmail)
	updated.CustomerPhone = strings.TrimSpace(input.CustomerPhone)
	updated.CheckIn = rng.CheckIn
	updated.CheckOut = rng.CheckOut
	updated.NumGuests = input.NumGuests
	updated.TotalPriceCents = total
	updated.SpecialRequests = input.SpecialRequests

	// The repository excludes the booking itself from the overlap check, so an
	// update that keeps its own dates never conflicts with itself.
	if err := s.bookings.Update(ctx, &updated); err != nil {
		return nil, err
	}

	s.publish(ctx, "booking_updated", &updated)
	return &updated, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *BookingService) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	return s.bookings.List(ctx)
}

// ListActiveByRoom returns the bookings still occupying a room's calendar,
// ordered by check-in.
func (s *BookingService) ListActiveByRoom(ctx context.Context, roomID int64) ([]domain.Booking, error) {
	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		return nil, err
	}
	return s.bookings.FindActiveByRoom(ctx, roomID)
}

func (s *BookingService) CheckAvailability(ctx context.Context, roomID int64, checkIn, checkOut string) (bool, error) {
	verr := domain.NewValidationError()
	in, inErr := time.Parse(dateLayout, checkIn)
	if inErr != nil {
		verr.Add("check_in", "check-in date must be YYYY-MM-DD")
	}
	out, outErr := time.Parse(dateLayout, checkOut)
	if outErr != nil {
		verr.Add("check_out", "check-out date must be YYYY-MM-DD")
	}
	var rng domain.DateRange
	if inErr == nil && outErr == nil {
		r, err := domain.NewDateRange(in, out)
		if err != nil {
			verr.Add("check_out", "check-out must be after check-in")
		} else {
			rng = r
		}
	}
	if verr.HasErrors() {
		return false, verr
	}

	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		return false, err
	}

	overlaps, err := s.bookings.ExistsOverlapping(ctx, roomID, rng, nil)
	if err != nil {
		return false, err
	}
	return !overlaps, nil
}

func (s *BookingService) TransitionStatus(ctx context.Context, id int64, target domain.BookingStatus) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	event, err := domain.Transition(current.Status, target)
	if err != nil {
		return nil, err
	}

	var roomStatus *domain.RoomStatus
	switch event {
	case domain.EventCheckIn:
		today := domain.ToDay(s.now())
		if !current.Range().Contains(today) {
			return nil, domain.ErrInvalidTransition
		}
		occupied := domain.RoomStatusOccupied
		roomStatus = &occupied
	case domain.EventCheckOut:
		// The room goes back to available unless another active booking
		// covers today, in which case it stays occupied for the next guest.
		today := domain.ToDay(s.now())
		todayRange := domain.DateRange{CheckIn: today, CheckOut: today.AddDate(0, 0, 1)}
		another, err := s.bookings.ExistsOverlapping(ctx, current.RoomID, todayRange, &current.ID)
		if err != nil {
			return nil, err
		}
		if !another {
			available := domain.RoomStatusAvailable
			roomStatus = &available
		}
	}

	updated, err := s.bookings.UpdateStatus(ctx, id, target, roomStatus)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, eventTypeFor(event), updated)
	return updated, nil
}

func eventTypeFor(event domain.TransitionEvent) string {
	switch event {
	case domain.EventConfirm:
		return "booking_confirmed"
	case domain.EventCheckIn:
		return "booking_checked_in"
	case domain.EventCheckOut:
		return "booking_checked_out"
	case domain.EventCancel:
		return "booking_cancelled"
	}
	return "booking_updated"
}

// DeleteBooking is the administrative escape hatch: a hard delete that
// bypasses the state machine entirely.
func (s *BookingService) DeleteBooking(ctx context.Context, id int64) error {
	return s.bookings.Delete(ctx, id)
}

// ExpirePendingBookings cancels pending bookings that were never confirmed
// within the configured TTL, so an abandoned reservation cannot hold a room's
// calendar forever. Run periodically by the worker.
func (s *BookingService) ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error) {
	deadline := s.now().Add(-s.pendingTTL)
	expired, err := s.bookings.ExpirePendingBefore(ctx, deadline)
	if err != nil {
		return nil, err
	}
	for i := range expired {
		s.publish(ctx, "booking_expired", &expired[i])
	}
	return expired, nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		EventID:         uuid.NewString(),
		Type:            eventType,
		BookingID:       booking.ID,
		Code:            booking.Code,
		RoomID:          booking.RoomID,
		Status:          string(booking.Status),
		CustomerName:    booking.CustomerName,
		Email:           booking.CustomerEmail,
		CheckIn:         booking.CheckIn,
		CheckOut:        booking.CheckOut,
		TotalPriceCents: booking.TotalPriceCents,
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, booking.Code, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for booking %s: %v", eventType, booking.Code, err)
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, booking.Code, event); err != nil {
			log.Printf("WARNING: failed to publish %s notification for booking %s: %v", eventType, booking.Code, err)
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
