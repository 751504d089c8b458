package payment

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/imanzi/transit-seat-booking/internal/repository"
)

// Reconciler is the slice of the booking ledger the poller drives.
type Reconciler interface {
	ConfirmPayment(ctx context.Context, ref string) error
	FailPayment(ctx context.Context, ref, reason string) error
	ExpireStale(ctx context.Context, createdBefore time.Time) (int, error)
}

// StatusChecker is the slice of the gateway client the poller needs.
type StatusChecker interface {
	CheckStatus(ctx context.Context, ref string) (StatusResult, error)
}

// Poller reconciles pending mobile-money bookings against the
// gateway on two independent timers: a short verification cycle that
// polls recent holds, and a longer expiry cycle that closes out holds
// the gateway never resolved. Bookings are processed independently;
// one failure never aborts a cycle. Exactly-once confirmation comes
// from the ledger's idempotency check, not from anything here.
type Poller struct {
	Bookings *repository.BookingRepo
	Gateway  StatusChecker
	Ledger   Reconciler

	VerifyEvery  time.Duration // verification cycle period
	VerifyWindow time.Duration // only poll bookings younger than this
	ExpireEvery  time.Duration // expiry cycle period
	ExpireAfter  time.Duration // expire pending bookings older than this
}

// NewPoller constructs a Poller with the standard timings: verify
// every 15s over a 15-minute window, expire every 5 minutes at a
// 30-minute cutoff. Bookings between the window and the cutoff are
// simply not polled; the expiry cycle closes that gap.
func NewPoller(bookings *repository.BookingRepo, gateway StatusChecker, lgr Reconciler) *Poller {
	if bookings == nil || gateway == nil || lgr == nil {
		panic("nil dependency passed to payment.NewPoller")
	}
	return &Poller{
		Bookings:     bookings,
		Gateway:      gateway,
		Ledger:       lgr,
		VerifyEvery:  15 * time.Second,
		VerifyWindow: 15 * time.Minute,
		ExpireEvery:  5 * time.Minute,
		ExpireAfter:  30 * time.Minute,
	}
}

// Run blocks until ctx is cancelled, firing the two cycles on their
// timers. Callers run it in a goroutine.
func (p *Poller) Run(ctx context.Context) {
	verify := time.NewTicker(p.VerifyEvery)
	expire := time.NewTicker(p.ExpireEvery)
	defer verify.Stop()
	defer expire.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-verify.C:
			p.VerifyCycle(ctx)
		case <-expire.C:
			p.ExpireCycle(ctx)
		}
	}
}

// VerifyCycle polls the gateway for every booking still awaiting
// payment inside the verification window and applies the outcome.
func (p *Poller) VerifyCycle(ctx context.Context) {
	pending, err := p.Bookings.ListAwaitingVerification(ctx, time.Now().Add(-p.VerifyWindow))
	if err != nil {
		log.Printf("payment-poller: listing pending bookings failed: %v", err)
		return
	}
	for _, item := range pending {
		if err := p.verifyOne(ctx, item); err != nil {
			log.Printf("payment-poller: booking %d (ref %s): %v", item.BookingID, item.PaymentRef, err)
		}
	}
}

func (p *Poller) verifyOne(ctx context.Context, item repository.PendingPayment) error {
	res, err := p.Gateway.CheckStatus(ctx, item.PaymentRef)
	if err != nil {
		// Transient gateway trouble; the next cycle retries.
		return err
	}
	switch res.State {
	case StateSuccess:
		return p.Ledger.ConfirmPayment(ctx, item.PaymentRef)
	case StateFailed:
		return p.Ledger.FailPayment(ctx, item.PaymentRef, failureReason(res))
	default:
		return nil
	}
}

// failureReason renders the cancellation reason recorded on the
// booking, e.g. "payment rejected".
func failureReason(res StatusResult) string {
	word := strings.ToLower(res.Raw)
	if word == "" {
		word = "failed"
	}
	return "payment " + word
}

// ExpireCycle cancels pending bookings older than the cutoff as a
// safety net for charges the gateway never resolves.
func (p *Poller) ExpireCycle(ctx context.Context) {
	n, err := p.Ledger.ExpireStale(ctx, time.Now().Add(-p.ExpireAfter))
	if err != nil {
		log.Printf("payment-poller: expiry cycle failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("payment-poller: expired %d stale pending bookings", n)
	}
}
