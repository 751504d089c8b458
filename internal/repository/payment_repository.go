package repository

import (
	"context"
	"database/sql"

	"github.com/imanzi/transit-seat-booking/internal/model"
)

// PaymentRepo provides data access to the `payment_transactions`
// table: the local ledger of charges initiated against the external
// gateway. Rows are never deleted.
type PaymentRepo struct{ DB *sql.DB }

// NewPaymentRepo returns a PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

const paymentCols = "id, external_ref, phone, amount_cents, status, error_message, booking_id, created_at, updated_at"

func scanPayment(row interface{ Scan(...any) error }, p *model.PaymentTransaction) error {
	var (
		errMsg    sql.NullString
		bookingID sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.ExternalRef, &p.Phone, &p.AmountCents, &p.Status,
		&errMsg, &bookingID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}
	if errMsg.Valid {
		p.ErrorMessage = &errMsg.String
	}
	if bookingID.Valid {
		v := uint64(bookingID.Int64)
		p.BookingID = &v
	}
	return nil
}

// CreateTx inserts a payment transaction within an existing
// transaction and populates its generated ID. Created alongside the
// booking so the charge record and the booking commit atomically.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.PaymentTransaction) error {
	var bookingID any
	if p.BookingID != nil {
		bookingID = *p.BookingID
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO payment_transactions (external_ref, phone, amount_cents, status, booking_id)
		VALUES (?,?,?,?,?)`,
		p.ExternalRef, p.Phone, p.AmountCents, p.Status, bookingID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByRef fetches a payment transaction by its external reference.
func (r *PaymentRepo) GetByRef(ctx context.Context, ref string) (model.PaymentTransaction, error) {
	var p model.PaymentTransaction
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+paymentCols+" FROM payment_transactions WHERE external_ref=? LIMIT 1", ref)
	if err := scanPayment(row, &p); err != nil {
		if err == sql.ErrNoRows {
			return model.PaymentTransaction{}, ErrPaymentNotFound
		}
		return model.PaymentTransaction{}, err
	}
	return p, nil
}

// SetStatusTx updates a payment transaction's status and optional
// error message inside an existing transaction.
func (r *PaymentRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, ref, status string, errMsg string) error {
	var msg any
	if errMsg != "" {
		msg = errMsg
	}
	_, err := tx.ExecContext(ctx,
		"UPDATE payment_transactions SET status=?, error_message=?, updated_at=NOW() WHERE external_ref=?",
		status, msg, ref)
	return err
}
