package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) FindActiveByRoom(ctx context.Context, roomID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ExistsOverlapping(ctx context.Context, roomID int64, rng domain.DateRange, excludeID *int64) (bool, error) {
	args := m.Called(ctx, roomID, rng, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus, roomStatus *domain.RoomStatus) (*domain.Booking, error) {
	args := m.Called(ctx, id, status, roomStatus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookingRepository) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, deadline)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) List(ctx context.Context) ([]domain.Room, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Room), args.Error(1)
}

func (m *MockRoomRepository) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}

func (m *MockRoomRepository) GetRate(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRoomRepository) SetStatus(ctx context.Context, id int64, status domain.RoomStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) AcquireRoomHold(ctx context.Context, roomID int64, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, roomID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) ReleaseRoomHold(ctx context.Context, roomID int64) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func testRoom() *domain.Room {
	return &domain.Room{ID: 4, RoomNumber: "101", RoomTypeID: 1, Status: domain.RoomStatusAvailable, PriceCents: 10000, MaxGuests: 3}
}

func validInput() CreateBookingInput {
	return CreateBookingInput{
		RoomID:        4,
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		CustomerPhone: "+1-555-0101",
		CheckIn:       "2024-01-10",
		CheckOut:      "2024-01-13",
		NumGuests:     2,
	}
}

func TestBookingService_CreateBooking_Success(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockRoomRepo := &MockRoomRepository{}
	mockCache := &MockCache{}
	mockProducer := &MockProducer{}

	service := NewBookingService(mockBookingRepo, mockRoomRepo, mockCache, mockProducer,
		"booking-events", 30*time.Second, 24*time.Hour)

	ctx := context.Background()
	mockRoomRepo.On("GetByID", ctx, int64(4)).Return(testRoom(), nil).Once()
	mockCache.On("AcquireRoomHold", ctx, int64(4), 30*time.Second).Return(true, nil).Once()
	mockCache.On("ReleaseRoomHold", ctx, int64(4)).Return(nil).Once()
	mockBookingRepo.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).
		Run(func(args mock.Arguments) {
			b := args.Get(1).(*domain.Booking)
			b.ID = 1
			b.Status = domain.BookingStatusPending
		}).Return(nil).Once()
	mockProducer.On("Publish", ctx, "booking-events", mock.Anything, mock.Anything).Return(nil).Once()

	created, err := service.CreateBooking(ctx, validInput())

	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, created.Status)
	assert.Regexp(t, `^BK-4-[0-9a-f]{10}$`, created.Code)
	// 3 nights at 10000 cents, recomputed server-side
	assert.Equal(t, int64(30000), created.TotalPriceCents)

	mockBookingRepo.AssertExpectations(t)
	mockRoomRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestBookingService_CreateBooking_CollectsAllFieldErrors(t *testing.T) {
	service := NewBookingService(&MockBookingRepository{}, &MockRoomRepository{}, nil, nil,
		"booking-events", 30*time.Second, 24*time.Hour)

	input := validInput()
	input.CustomerName = ""
	input.CustomerPhone = ""
	input.CheckIn = "2024-01-13"
	input.CheckOut = "2024-01-10"

	_, err := service.CreateBooking(context.Background(), input)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "customer_name")
	assert.Contains(t, verr.Fields, "customer_phone")
	assert.Contains(t, verr.Fields, "check_out")
	assert.Len(t, verr.Fields, 3, "all violations reported at once, nothing else flagged")
}

func TestBookingService_CreateBooking_RoomNotFound(t *testing.T) {
	mockRoomRepo := &MockRoomRepository{}
	service := NewBookingService(&MockBookingRepository{}, mockRoomRepo, nil, nil,
		"booking-events", 30*time.Second, 24*time.Hour)

	ctx := context.Background()
	mockRoomRepo.On("GetByID", ctx, int64(4)).Return(nil, domain.ErrRoomNotFound).Once()

	_, err := service.CreateBooking(ctx, validInput())
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestBookingService_CreateBooking_RoomHoldBusy(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockRoomRepo := &MockRoomRepository{}
	mockCache := &MockCache{}

	service := NewBookingService(mockBookingRepo, mockRoomRepo, mockCache, nil,
		"booking-events", 30*time.Second, 24*time.Hour)

	ctx := context.Background()
	mockRoomRepo.On("GetByID", ctx, int64(4)).Return(testRoom(), nil).Once()
	mockCache.On("AcquireRoomHold", ctx, int64(4), 30*time.Second).Return(false, nil).Once()

	_, err := service.CreateBooking(ctx, validInput())

	assert.ErrorIs(t, err, domain.ErrRoomNotAvailable)
	mockBookingRepo.AssertNotCalled(t, "Create")
}

func TestBookingService_CreateBooking_RetriesOnceOnConflict(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockRoomRepo := &MockRoomRepository{}

	service := NewBookingService(mockBookingRepo, mockRoomRepo, nil, nil,
		"booking-events", 30*time.Second, 24*time.Hour)

	ctx := context.Background()
	mockRoomRepo.On("GetByID", ctx, int64(4)).Return(testRoom(), nil).Once()

	var codes []string
	mockBookingRepo.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).
		Run(func(args mock.Arguments) {
			codes = append(codes, args.Get(1).(*domain.Booking).Code)
		}).
		Return(domain.ErrPersistenceConflict).Once()
	mockBookingRepo.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).
		Run(func(args mock.Arguments) {
			b := args.Get(1).(*domain.Booking)
			codes = append(codes, b.Code)
			b.ID = 2
			b.Status = domain.BookingStatusPending
		}).
		Return(nil).Once()

	created, err := service.CreateBooking(ctx, validInput())

	require.NoError(t, err)
	assert.Equal(t, int64(2), created.ID)
	require.Len(t, codes, 2)
	assert.NotEqual(t, codes[0], codes[1], "retry mints a fresh code")
}

func TestBookingService_CreateBooking_SecondConflictSurfaces(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockRoomRepo := &MockRoomRepository{}

	service := NewBookingService(mockBookingRepo, mockRoomRepo, nil, nil,
		"booking-events", 30*time.Second, 24*time.Hour)

	ctx := context.Background()
	mockRoomRepo.On("GetByID", ctx, int64(4)).Return(testRoom(), nil).Once()
	mockBookingRepo.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).
		Return(domain.ErrPersistenceConflict).Twice()

	_, err := service.CreateBooking(ctx, validInput())
	assert.ErrorIs(t, err, domain.ErrPersistenceConflict)
	mockBookingRepo.AssertNumberOfCalls(t, "Create", 2)
}

func TestBookingService_UpdateBooking_NeverConflictsWithItself(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockRoomRepo := &MockRoomRepository{}

	service := NewBookingService(mockBookingRepo, mockRoomRepo, nil, nil,
		"booking-events", 30*time.Second, 24*time.Hour)

	ctx := context.Background()
	existing := &domain.Booking{
		ID: 9, Code: "BK-4-aabbccddee", RoomID: 4,
		CustomerName: "Jane Doe", CustomerEmail: "jane@example.com", CustomerPhone: "+1-555-0101",
		CheckIn: day("2024-01-10"), CheckOut: day("2024-01-13"),
		NumGuests: 2, TotalPriceCents: 30000, Status: domain.BookingStatusConfirmed,
	}

	mockBookingRepo.On("GetByID", ctx, int64(9)).Return(existing, nil).Once()
	mockRoomRepo.On("GetRate", ctx, int64(4)).Return(int64(10000), nil).Once()
	mockBookingRepo.On("Update", ctx, mock.MatchedBy(func(b *domain.Booking) bool {
		// unchanged dates, bumped guest count, identity preserved
		return b.ID == 9 && b.NumGuests == 3 && b.Code == "BK-4-aabbccddee" &&
			b.Status == domain.BookingStatusConfirmed
	})).Return(nil).Once()

	input := validInput()
	input.NumGuests = 3

	updated, err := service.UpdateBooking(ctx, 9, input)

	require.NoError(t, err)
	assert.Equal(t, 3, updated.NumGuests)
	mockBookingRepo.AssertExpectations(t)
}

func TestBookingService_ListActiveByRoom(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockRoomRepo := &MockRoomRepository{}

	service := NewBookingService(mockBookingRepo, mockRoomRepo, nil, nil,
		"booking-events", 30*time.Second, 24*time.Hour)

	ctx := context.Background()
	active := []domain.Booking{{ID: 1, RoomID: 4, Status: domain.BookingStatusConfirmed}}

	mockRoomRepo.On("GetByID", ctx, int64(4)).Return(testRoom(), nil).Once()
	mockBookingRepo.On("FindActiveByRoom", ctx, int64(4)).Return(active, nil).Once()

	result, err := service.ListActiveByRoom(ctx, 4)

	require.NoError(t, err)
	assert.Equal(t, active, result)
}

func TestBookingService_CheckAvailability(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockRoomRepo := &MockRoomRepository{}

	service := NewBookingService(mockBookingRepo, mockRoomRepo, nil, nil,
		"booking-events", 30*time.Second, 24*time.Hour)

	ctx := context.Background()
	mockRoomRepo.On("GetByID", ctx, int64(4)).Return(testRoom(), nil)
	mockBookingRepo.On("ExistsOverlapping", ctx, int64(4), mock.Anything, (*int64)(nil)).Return(false, nil).Once()

	available, err := service.CheckAvailability(ctx, 4, "2024-01-15", "2024-01-18")
	require.NoError(t, err)
	assert.True(t, available)

	mockBookingRepo.On("ExistsOverlapping", ctx, int64(4), mock.Anything, (*int64)(nil)).Return(true, nil).Once()

	available, err = service.CheckAvailability(ctx, 4, "2024-01-14", "2024-01-20")
	require.NoError(t, err)
	assert.False(t, available)
}

func TestBookingService_CheckAvailability_RejectsBadDates(t *testing.T) {
	service := NewBookingService(&MockBookingRepository{}, &MockRoomRepository{}, nil, nil,
		"booking-events", 30*time.Second, 24*time.Hour)

	_, err := service.CheckAvailability(context.Background(), 4, "2024-01-15", "2024-01-15")

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "check_out")
}

func confirmedBooking() *domain.Booking {
	return &domain.Booking{
		ID: 9, Code: "BK-4-aabbccddee", RoomID: 4,
		CustomerName: "Jane Doe", CustomerEmail: "jane@example.com",
		CheckIn: day("2024-01-10"), CheckOut: day("2024-01-13"),
		Status: domain.BookingStatusConfirmed,
	}
}

func TestBookingService_TransitionStatus_CheckInOccupiesRoom(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}

	service := NewBookingService(mockBookingRepo, &MockRoomRepository{}, nil, nil,
		"booking-events", 30*time.Second, 24*time.Hour,
		WithClock(func() time.Time { return day("2024-01-10") }))

	ctx := context.Background()
	current := confirmedBooking()
	checkedIn := *current
	checkedIn.Status = domain.BookingStatusCheckedIn

	mockBookingRepo.On("GetByID", ctx, int64(9)).Return(current, nil).Once()
	mockBookingRepo.On("UpdateStatus", ctx, int64(9), domain.BookingStatusCheckedIn,
		mock.MatchedBy(func(rs *domain.RoomStatus) bool {
			return rs != nil && *rs == domain.RoomStatusOccupied
		})).Return(&checkedIn, nil).Once()

	updated, err := service.TransitionStatus(ctx, 9, domain.BookingStatusCheckedIn)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCheckedIn, updated.Status)
	mockBookingRepo.AssertExpectations(t)
}

func TestBookingService_TransitionStatus_CheckInOutsideWindow(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}

	service := NewBookingService(mockBookingRepo, &MockRoomRepository{}, nil, nil,
		"booking-events", 30*time.Second, 24*time.Hour,
		WithClock(func() time.Time { return day("2024-01-09") }))

	ctx := context.Background()
	mockBookingRepo.On("GetByID", ctx, int64(9)).Return(confirmedBooking(), nil).Once()

	_, err := service.TransitionStatus(ctx, 9, domain.BookingStatusCheckedIn)

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	mockBookingRepo.AssertNotCalled(t, "UpdateStatus")
}

func TestBookingService_TransitionStatus_InvalidTransitions(t *testing.T) {
	testCases := []struct {
		name   string
		from   domain.BookingStatus
		target domain.BookingStatus
	}{
		{"check in from pending", domain.BookingStatusPending, domain.BookingStatusCheckedIn},
		{"cancel from checked out", domain.BookingStatusCheckedOut, domain.BookingStatusCancelled},
		{"cancel from checked in", domain.BookingStatusCheckedIn, domain.BookingStatusCancelled},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockBookingRepo := &MockBookingRepository{}
			service := NewBookingService(mockBookingRepo, &MockRoomRepository{}, nil, nil,
				"booking-events", 30*time.Second, 24*time.Hour)

			ctx := context.Background()
			current := confirmedBooking()
			current.Status = tc.from
			mockBookingRepo.On("GetByID", ctx, int64(9)).Return(current, nil).Once()

			_, err := service.TransitionStatus(ctx, 9, tc.target)

			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			mockBookingRepo.AssertNotCalled(t, "UpdateStatus")
		})
	}
}

func TestBookingService_TransitionStatus_CheckOutReleasesRoom(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}

	service := NewBookingService(mockBookingRepo, &MockRoomRepository{}, nil, nil,
		"booking-events", 30*time.Second, 24*time.Hour,
		WithClock(func() time.Time { return day("2024-01-13") }))

	ctx := context.Background()
	current := confirmedBooking()
	current.Status = domain.BookingStatusCheckedIn
	checkedOut := *current
	checkedOut.Status = domain.BookingStatusCheckedOut

	mockBookingRepo.On("GetByID", ctx, int64(9)).Return(current, nil).Once()
	mockBookingRepo.On("ExistsOverlapping", ctx, int64(4), mock.Anything, mock.MatchedBy(func(id *int64) bool {
		return id != nil && *id == 9
	})).Return(false, nil).Once()
	mockBookingRepo.On("UpdateStatus", ctx, int64(9), domain.BookingStatusCheckedOut,
		mock.MatchedBy(func(rs *domain.RoomStatus) bool {
			return rs != nil && *rs == domain.RoomStatusAvailable
		})).Return(&checkedOut, nil).Once()

	_, err := service.TransitionStatus(ctx, 9, domain.BookingStatusCheckedOut)

	require.NoError(t, err)
	mockBookingRepo.AssertExpectations(t)
}

func TestBookingService_TransitionStatus_CheckOutKeepsRoomForSameDayArrival(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}

	service := NewBookingService(mockBookingRepo, &MockRoomRepository{}, nil, nil,
		"booking-events", 30*time.Second, 24*time.Hour,
		WithClock(func() time.Time { return day("2024-01-13") }))

	ctx := context.Background()
	current := confirmedBooking()
	current.Status = domain.BookingStatusCheckedIn
	checkedOut := *current
	checkedOut.Status = domain.BookingStatusCheckedOut

	mockBookingRepo.On("GetByID", ctx, int64(9)).Return(current, nil).Once()
	mockBookingRepo.On("ExistsOverlapping", ctx, int64(4), mock.Anything, mock.Anything).Return(true, nil).Once()
	// another active booking covers today, so the room status is left alone
	mockBookingRepo.On("UpdateStatus", ctx, int64(9), domain.BookingStatusCheckedOut,
		(*domain.RoomStatus)(nil)).Return(&checkedOut, nil).Once()

	_, err := service.TransitionStatus(ctx, 9, domain.BookingStatusCheckedOut)

	require.NoError(t, err)
	mockBookingRepo.AssertExpectations(t)
}

func TestBookingService_ExpirePendingBookings(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockProducer := &MockProducer{}

	now := day("2024-01-20")
	service := NewBookingService(mockBookingRepo, &MockRoomRepository{}, nil, mockProducer,
		"booking-events", 30*time.Second, 24*time.Hour,
		WithClock(func() time.Time { return now }))

	ctx := context.Background()
	expired := []domain.Booking{{ID: 1, Code: "BK-4-0011223344", Status: domain.BookingStatusCancelled}}

	mockBookingRepo.On("ExpirePendingBefore", ctx, now.Add(-24*time.Hour)).Return(expired, nil).Once()
	mockProducer.On("Publish", ctx, "booking-events", "BK-4-0011223344", mock.Anything).Return(nil).Once()

	result, err := service.ExpirePendingBookings(ctx)

	require.NoError(t, err)
	assert.Len(t, result, 1)
	mockProducer.AssertExpectations(t)
}

// fakeBookingStore is an in-memory BookingRepository with the same contract
// as the Postgres one: overlap check and insert under one lock.
type fakeBookingStore struct {
	mu       sync.Mutex
	nextID   int64
	bookings []domain.Booking
}

func (f *fakeBookingStore) Create(ctx context.Context, booking *domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.bookings {
		if existing.RoomID != booking.RoomID {
			continue
		}
		active := existing.Status == domain.BookingStatusPending ||
			existing.Status == domain.BookingStatusConfirmed ||
			existing.Status == domain.BookingStatusCheckedIn
		if active && existing.Range().Overlaps(booking.Range()) {
			return domain.ErrRoomNotAvailable
		}
	}

	f.nextID++
	booking.ID = f.nextID
	booking.Status = domain.BookingStatusPending
	f.bookings = append(f.bookings, *booking)
	return nil
}

func (f *fakeBookingStore) Update(ctx context.Context, booking *domain.Booking) error { return nil }
func (f *fakeBookingStore) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return nil, domain.ErrBookingNotFound
}
func (f *fakeBookingStore) List(ctx context.Context) ([]domain.Booking, error) { return nil, nil }
func (f *fakeBookingStore) FindActiveByRoom(ctx context.Context, roomID int64) ([]domain.Booking, error) {
	return nil, nil
}
func (f *fakeBookingStore) ExistsOverlapping(ctx context.Context, roomID int64, rng domain.DateRange, excludeID *int64) (bool, error) {
	return false, nil
}
func (f *fakeBookingStore) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus, roomStatus *domain.RoomStatus) (*domain.Booking, error) {
	return nil, domain.ErrBookingNotFound
}
func (f *fakeBookingStore) Delete(ctx context.Context, id int64) error { return nil }
func (f *fakeBookingStore) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	return nil, nil
}

func TestBookingService_NoDoubleBookingUnderConcurrency(t *testing.T) {
	store := &fakeBookingStore{}
	mockRoomRepo := &MockRoomRepository{}
	mockRoomRepo.On("GetByID", mock.Anything, int64(4)).Return(testRoom(), nil)

	service := NewBookingService(store, mockRoomRepo, nil, nil,
		"", 30*time.Second, 24*time.Hour)

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.CreateBooking(context.Background(), validInput())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, conflicted int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case err == domain.ErrRoomNotAvailable || err == domain.ErrPersistenceConflict:
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded, "exactly one of the racing requests wins")
	assert.Equal(t, workers-1, conflicted)
}
