package models

// CheckoutRequest is the body of POST /api/v1/checkout.
type CheckoutRequest struct {
	Title       string  `json:"title" binding:"required"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Description string  `json:"description"`
	Email       string  `json:"email" binding:"required,email"`
	EventID     string  `json:"eventId" binding:"required"`
}

// UserIdentity is the authenticated purchaser, when present. Checkout is
// also permitted anonymously with just the request email.
type UserIdentity struct {
	ID    string
	Email string
	Name  string
}

// SessionDetails is the read-only settlement view served to the
// post-checkout confirmation page.
type SessionDetails struct {
	ID            string  `json:"id"`
	EventTitle    string  `json:"eventTitle"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail"`
	Created       int64   `json:"created"`
	EventDate     string  `json:"eventDate"`
	EventLocation string  `json:"eventLocation"`
	PaymentMethod string  `json:"paymentMethod"`
	Status        string  `json:"status"`
}
