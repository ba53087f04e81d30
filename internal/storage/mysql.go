package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"eventify-payments/internal/config"
	"eventify-payments/internal/logger"
	"eventify-payments/internal/models"

	"github.com/go-sql-driver/mysql"
)

type MySQLStore struct {
	db  *sql.DB
	log *logger.Logger
}

func NewMySQLStore(cfg config.DatabaseConfig, log *logger.Logger) (*MySQLStore, error) {
	log.LogDatabase("CONNECT", "mysql", fmt.Sprintf("Connecting to MySQL at %s:%s", cfg.Host, cfg.Port))

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Error("DATABASE", "Failed to open MySQL connection: "+err.Error())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := db.Ping(); err != nil {
		log.Error("DATABASE", "Failed to ping MySQL: "+err.Error())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &MySQLStore{db: db, log: log}

	if err := store.initTables(); err != nil {
		log.Error("DATABASE", "Failed to initialize tables: "+err.Error())
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	log.LogDatabase("SUCCESS", "mysql", "MySQL connection established and tables initialized")
	return store, nil
}

func (s *MySQLStore) initTables() error {
	s.log.LogDatabase("MIGRATE", "mysql", "Creating ledger tables if not exists")

	queries := []string{
		`CREATE TABLE IF NOT EXISTS events (
            event_id VARCHAR(36) PRIMARY KEY,
            title VARCHAR(255) NOT NULL,
            description TEXT,
            category VARCHAR(100),
            location VARCHAR(255),
            start_date TIMESTAMP NULL,
            end_date TIMESTAMP NULL,
            cover_image VARCHAR(512),
            total_tickets INT NOT NULL DEFAULT 0,
            ticket_price DECIMAL(10,2) NOT NULL DEFAULT 0,
            available_tickets INT NULL,
            organizer_id VARCHAR(36),
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
        ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS bookings (
            booking_id VARCHAR(36) PRIMARY KEY,
            user_id VARCHAR(36) NOT NULL,
            event_id VARCHAR(36) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
            INDEX idx_bookings_user (user_id),
            INDEX idx_bookings_event (event_id)
        ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS payments (
            payment_id VARCHAR(64) PRIMARY KEY,
            stripe_session_id VARCHAR(255) NOT NULL,
            stripe_payment_intent_id VARCHAR(255),
            amount DECIMAL(10,2) NOT NULL,
            currency VARCHAR(10) NOT NULL,
            status VARCHAR(20) NOT NULL,
            payment_method VARCHAR(50),
            user_id VARCHAR(36),
            customer_email VARCHAR(255),
            customer_name VARCHAR(255),
            event_id VARCHAR(36) NOT NULL,
            event_title VARCHAR(255),
            ticket_price DECIMAL(10,2) NOT NULL DEFAULT 0,
            booking_id VARCHAR(36),
            payment_date TIMESTAMP NULL,
            error_message TEXT,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
            UNIQUE KEY ux_payments_session (stripe_session_id),
            INDEX idx_payments_email (customer_email),
            INDEX idx_payments_status (status),
            INDEX idx_payments_event (event_id)
        ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	s.log.LogDatabase("SUCCESS", "mysql", "Ledger tables ready")
	return nil
}

// isDuplicateEntry detects MySQL error 1062 (unique constraint violation).
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func (s *MySQLStore) FindEventByID(eventID string) (*models.Event, error) {
	s.log.LogDatabase("SELECT", "events", fmt.Sprintf("Fetching event %s", eventID))

	query := `
    SELECT event_id, title, description, category, location, start_date, end_date,
           cover_image, total_tickets, ticket_price, available_tickets, organizer_id,
           created_at, updated_at
    FROM events WHERE event_id = ?
    `

	event := &models.Event{}
	var (
		startDate, endDate sql.NullTime
		available          sql.NullInt64
	)
	err := s.db.QueryRow(query, eventID).Scan(
		&event.EventID, &event.Title, &event.Description, &event.Category, &event.Location,
		&startDate, &endDate, &event.CoverImage, &event.TotalTickets, &event.TicketPrice,
		&available, &event.OrganizerID, &event.CreatedAt, &event.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get event %s: %s", eventID, err.Error()))
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if startDate.Valid {
		event.StartDate = startDate.Time
	}
	if endDate.Valid {
		event.EndDate = endDate.Time
	}
	if available.Valid {
		n := int(available.Int64)
		event.AvailableTickets = &n
	}

	return event, nil
}

func (s *MySQLStore) UpsertEvent(event *models.Event) error {
	s.log.LogDatabase("UPSERT", "events", fmt.Sprintf("Upserting event %s", event.EventID))

	query := `
    INSERT INTO events (
        event_id, title, description, category, location, start_date, end_date,
        cover_image, total_tickets, ticket_price, available_tickets, organizer_id
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON DUPLICATE KEY UPDATE
        title = VALUES(title), description = VALUES(description),
        category = VALUES(category), location = VALUES(location),
        start_date = VALUES(start_date), end_date = VALUES(end_date),
        cover_image = VALUES(cover_image), total_tickets = VALUES(total_tickets),
        ticket_price = VALUES(ticket_price), organizer_id = VALUES(organizer_id)
    `

	var available interface{}
	if event.AvailableTickets != nil {
		available = *event.AvailableTickets
	}

	_, err := s.db.Exec(query,
		event.EventID, event.Title, event.Description, event.Category, event.Location,
		event.StartDate, event.EndDate, event.CoverImage, event.TotalTickets,
		event.TicketPrice, available, event.OrganizerID,
	)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to upsert event %s: %s", event.EventID, err.Error()))
		return fmt.Errorf("failed to upsert event: %w", err)
	}

	return nil
}

// ResetEventInventory is the administrative path that may move
// available_tickets in either direction, bounded by total_tickets.
func (s *MySQLStore) ResetEventInventory(eventID string, available int) error {
	s.log.LogDatabase("UPDATE", "events", fmt.Sprintf("Resetting inventory for event %s to %d", eventID, available))

	if available < 0 {
		return ErrInvalidInventory
	}

	res, err := s.db.Exec(
		`UPDATE events SET available_tickets = ? WHERE event_id = ? AND total_tickets >= ?`,
		available, eventID, available,
	)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to reset inventory for event %s: %s", eventID, err.Error()))
		return fmt.Errorf("failed to reset inventory: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to reset inventory: %w", err)
	}
	if rows == 0 {
		if _, err := s.FindEventByID(eventID); err != nil {
			return err
		}
		return ErrInvalidInventory
	}
	return nil
}

const paymentColumns = `
    payment_id, stripe_session_id, stripe_payment_intent_id, amount, currency,
    status, payment_method, user_id, customer_email, customer_name, event_id,
    event_title, ticket_price, booking_id, payment_date, error_message,
    created_at, updated_at
`

func (s *MySQLStore) scanPayment(row interface {
	Scan(dest ...interface{}) error
}) (*models.Payment, error) {
	payment := &models.Payment{}
	var (
		intentID, bookingID, errMsg sql.NullString
		paymentDate                 sql.NullTime
	)
	err := row.Scan(
		&payment.PaymentID, &payment.StripeSessionID, &intentID, &payment.Amount,
		&payment.Currency, &payment.Status, &payment.PaymentMethod, &payment.UserID,
		&payment.CustomerEmail, &payment.CustomerName, &payment.EventID,
		&payment.EventTitle, &payment.TicketPrice, &bookingID, &paymentDate,
		&errMsg, &payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	payment.StripePaymentIntentID = intentID.String
	payment.BookingID = bookingID.String
	payment.ErrorMessage = errMsg.String
	if paymentDate.Valid {
		payment.PaymentDate = paymentDate.Time
	}
	return payment, nil
}

func (s *MySQLStore) FindPaymentBySessionID(sessionID string) (*models.Payment, error) {
	s.log.LogDatabase("SELECT", "payments", fmt.Sprintf("Fetching payment for session %s", sessionID))

	row := s.db.QueryRow(`SELECT `+paymentColumns+` FROM payments WHERE stripe_session_id = ?`, sessionID)
	payment, err := s.scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get payment for session %s: %s", sessionID, err.Error()))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

func (s *MySQLStore) GetPayment(paymentID string) (*models.Payment, error) {
	s.log.LogDatabase("SELECT", "payments", fmt.Sprintf("Fetching payment %s", paymentID))

	row := s.db.QueryRow(`SELECT `+paymentColumns+` FROM payments WHERE payment_id = ?`, paymentID)
	payment, err := s.scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get payment %s: %s", paymentID, err.Error()))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

func (s *MySQLStore) ListPaymentsByEmail(email string, limit, offset int) ([]*models.Payment, error) {
	s.log.LogDatabase("SELECT", "payments", fmt.Sprintf("Listing payments for %s (limit: %d, offset: %d)", email, limit, offset))

	rows, err := s.db.Query(
		`SELECT `+paymentColumns+` FROM payments WHERE customer_email = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		email, limit, offset,
	)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to list payments: %s", err.Error()))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := s.scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return payments, nil
}

func (s *MySQLStore) SavePayment(payment *models.Payment) error {
	s.log.LogDatabase("INSERT", "payments", fmt.Sprintf("Saving payment %s for session %s", payment.PaymentID, payment.StripeSessionID))

	if err := s.insertPayment(s.db, payment); err != nil {
		if errors.Is(err, ErrDuplicateSession) {
			return err
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save payment %s: %s", payment.PaymentID, err.Error()))
		return err
	}
	return nil
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (s *MySQLStore) insertPayment(db execer, payment *models.Payment) error {
	query := `
    INSERT INTO payments (
        payment_id, stripe_session_id, stripe_payment_intent_id, amount, currency,
        status, payment_method, user_id, customer_email, customer_name, event_id,
        event_title, ticket_price, booking_id, payment_date, error_message
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	var paymentDate interface{}
	if !payment.PaymentDate.IsZero() {
		paymentDate = payment.PaymentDate
	}
	var bookingID interface{}
	if payment.BookingID != "" {
		bookingID = payment.BookingID
	}

	_, err := db.Exec(query,
		payment.PaymentID, payment.StripeSessionID, payment.StripePaymentIntentID,
		payment.Amount, payment.Currency, payment.Status, payment.PaymentMethod,
		payment.UserID, payment.CustomerEmail, payment.CustomerName, payment.EventID,
		payment.EventTitle, payment.TicketPrice, bookingID, paymentDate,
		payment.ErrorMessage,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateSession
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// ConfirmBooking creates the booking and payment rows and decrements the
// event inventory in one transaction. The unique index on stripe_session_id
// turns a concurrent duplicate delivery into ErrDuplicateSession, and the
// conditional decrement turns an exhausted inventory into ErrSoldOut; both
// roll the whole unit back.
func (s *MySQLStore) ConfirmBooking(booking *models.Booking, payment *models.Payment) error {
	s.log.LogDatabase("TX_BEGIN", "bookings", fmt.Sprintf("Confirming booking %s for session %s", booking.BookingID, payment.StripeSessionID))

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Row-lock the event for the duration of the transaction.
	var available sql.NullInt64
	err = tx.QueryRow(`SELECT available_tickets FROM events WHERE event_id = ? FOR UPDATE`, booking.EventID).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to lock event row: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO bookings (booking_id, user_id, event_id) VALUES (?, ?, ?)`,
		booking.BookingID, booking.UserID, booking.EventID,
	); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if err := s.insertPayment(tx, payment); err != nil {
		return err
	}

	if available.Valid {
		res, err := tx.Exec(
			`UPDATE events SET available_tickets = available_tickets - 1
             WHERE event_id = ? AND available_tickets > 0`,
			booking.EventID,
		)
		if err != nil {
			return fmt.Errorf("failed to decrement inventory: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to decrement inventory: %w", err)
		}
		if rows == 0 {
			return ErrSoldOut
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking transaction: %w", err)
	}

	s.log.LogDatabase("TX_COMMIT", "bookings", fmt.Sprintf("Booking %s confirmed", booking.BookingID))
	return nil
}

func (s *MySQLStore) GetBooking(bookingID string) (*models.Booking, error) {
	s.log.LogDatabase("SELECT", "bookings", fmt.Sprintf("Fetching booking %s", bookingID))

	booking := &models.Booking{}
	err := s.db.QueryRow(
		`SELECT booking_id, user_id, event_id, created_at, updated_at FROM bookings WHERE booking_id = ?`,
		bookingID,
	).Scan(&booking.BookingID, &booking.UserID, &booking.EventID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (s *MySQLStore) HealthCheck() error {
	return s.db.Ping()
}

func (s *MySQLStore) Close() error {
	s.log.LogDatabase("CLOSE", "mysql", "Closing MySQL connection")
	return s.db.Close()
}
