package model

import "time"

// Gateway-side transaction states as stored locally.
const (
	TxPending = "PENDING"
	TxSuccess = "SUCCESS"
	TxFailed  = "FAILED"
)

// PaymentTransaction mirrors the `payment_transactions` table: the
// local record of a charge initiated against the external
// mobile-money gateway.  Rows are created when a charge is initiated,
// updated by the reconciliation poller and never deleted, so the
// table doubles as an audit trail.  ExternalRef is unique and is the
// idempotency key for confirmation.
//
// Fields:
//  ID           – primary key identifier.
//  ExternalRef  – gateway reference id, unique.
//  Phone        – payer phone number (MSISDN).
//  AmountCents  – charged amount in cents.
//  Status       – PENDING, SUCCESS or FAILED.
//  ErrorMessage – gateway failure detail (nullable).
//  BookingID    – booking this charge pays for (nullable).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type PaymentTransaction struct {
	ID           uint64     // payment_transactions.id
	ExternalRef  string     // payment_transactions.external_ref
	Phone        string     // payment_transactions.phone
	AmountCents  uint32     // payment_transactions.amount_cents
	Status       string     // payment_transactions.status
	ErrorMessage *string    // payment_transactions.error_message (nullable)
	BookingID    *uint64    // payment_transactions.booking_id (nullable)
	CreatedAt    time.Time  // payment_transactions.created_at
	UpdatedAt    time.Time  // payment_transactions.updated_at
}
