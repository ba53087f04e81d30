package storage

import (
	"sort"
	"sync"
	"time"

	"eventify-payments/internal/models"
)

// InMemoryStore mirrors the MySQL store's semantics, including the
// all-or-nothing ConfirmBooking unit, for tests and local runs without a
// database.
type InMemoryStore struct {
	mu        sync.Mutex
	events    map[string]*models.Event
	bookings  map[string]*models.Booking
	payments  map[string]*models.Payment
	bySession map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events:    make(map[string]*models.Event),
		bookings:  make(map[string]*models.Booking),
		payments:  make(map[string]*models.Payment),
		bySession: make(map[string]string),
	}
}

func (s *InMemoryStore) FindEventByID(eventID string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, ErrEventNotFound
	}
	copied := *event
	if event.AvailableTickets != nil {
		n := *event.AvailableTickets
		copied.AvailableTickets = &n
	}
	return &copied, nil
}

func (s *InMemoryStore) UpsertEvent(event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *event
	if event.AvailableTickets != nil {
		n := *event.AvailableTickets
		copied.AvailableTickets = &n
	}
	copied.UpdatedAt = time.Now()
	s.events[event.EventID] = &copied
	return nil
}

func (s *InMemoryStore) ResetEventInventory(eventID string, available int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	if available < 0 || available > event.TotalTickets {
		return ErrInvalidInventory
	}
	event.AvailableTickets = &available
	event.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) FindPaymentBySessionID(sessionID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.bySession[sessionID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	copied := *s.payments[id]
	return &copied, nil
}

func (s *InMemoryStore) GetPayment(paymentID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment, ok := s.payments[paymentID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	copied := *payment
	return &copied, nil
}

func (s *InMemoryStore) ListPaymentsByEmail(email string, limit, offset int) ([]*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.Payment
	for _, payment := range s.payments {
		if payment.CustomerEmail == email {
			copied := *payment
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *InMemoryStore) SavePayment(payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savePaymentLocked(payment)
}

func (s *InMemoryStore) savePaymentLocked(payment *models.Payment) error {
	if _, exists := s.bySession[payment.StripeSessionID]; exists {
		return ErrDuplicateSession
	}
	copied := *payment
	now := time.Now()
	copied.CreatedAt = now
	copied.UpdatedAt = now
	s.payments[payment.PaymentID] = &copied
	s.bySession[payment.StripeSessionID] = payment.PaymentID
	return nil
}

// ConfirmBooking validates every precondition before mutating anything, so a
// failure leaves no partial state behind.
func (s *InMemoryStore) ConfirmBooking(booking *models.Booking, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySession[payment.StripeSessionID]; exists {
		return ErrDuplicateSession
	}
	event, ok := s.events[booking.EventID]
	if !ok {
		return ErrEventNotFound
	}
	if event.AvailableTickets != nil && *event.AvailableTickets <= 0 {
		return ErrSoldOut
	}

	if err := s.savePaymentLocked(payment); err != nil {
		return err
	}
	copied := *booking
	now := time.Now()
	copied.CreatedAt = now
	copied.UpdatedAt = now
	s.bookings[booking.BookingID] = &copied
	if event.AvailableTickets != nil {
		n := *event.AvailableTickets - 1
		event.AvailableTickets = &n
	}
	return nil
}

func (s *InMemoryStore) GetBooking(bookingID string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.bookings[bookingID]
	if !ok {
		return nil, ErrBookingNotFound
	}
	copied := *booking
	return &copied, nil
}

func (s *InMemoryStore) HealthCheck() error { return nil }

func (s *InMemoryStore) Close() error { return nil }

// BookingCount and PaymentCount report row counts for test assertions.
func (s *InMemoryStore) BookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *InMemoryStore) PaymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}
