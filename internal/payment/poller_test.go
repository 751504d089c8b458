package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imanzi/transit-seat-booking/internal/repository"
)

type fakeReconciler struct {
	confirmed []string
	failed    map[string]string
	expired   int
}

func (f *fakeReconciler) ConfirmPayment(ctx context.Context, ref string) error {
	f.confirmed = append(f.confirmed, ref)
	return nil
}

func (f *fakeReconciler) FailPayment(ctx context.Context, ref, reason string) error {
	if f.failed == nil {
		f.failed = map[string]string{}
	}
	f.failed[ref] = reason
	return nil
}

func (f *fakeReconciler) ExpireStale(ctx context.Context, createdBefore time.Time) (int, error) {
	f.expired++
	return 0, nil
}

type fakeChecker struct {
	results map[string]StatusResult
	err     error
}

func (f *fakeChecker) CheckStatus(ctx context.Context, ref string) (StatusResult, error) {
	if f.err != nil {
		return StatusResult{}, f.err
	}
	return f.results[ref], nil
}

func TestVerifyOneDispatch(t *testing.T) {
	rec := &fakeReconciler{}
	checker := &fakeChecker{results: map[string]StatusResult{
		"ref-ok":      {State: StateSuccess, Raw: "SUCCESS"},
		"ref-bad":     {State: StateFailed, Raw: "REJECTED"},
		"ref-waiting": {State: StatePending, Raw: "PENDING"},
	}}
	p := &Poller{Gateway: checker, Ledger: rec}

	for _, ref := range []string{"ref-ok", "ref-bad", "ref-waiting"} {
		require.NoError(t, p.verifyOne(context.Background(), repository.PendingPayment{BookingID: 1, PaymentRef: ref}))
	}

	assert.Equal(t, []string{"ref-ok"}, rec.confirmed)
	assert.Equal(t, map[string]string{"ref-bad": "payment rejected"}, rec.failed)
}

func TestVerifyOneGatewayErrorLeavesBookingPending(t *testing.T) {
	rec := &fakeReconciler{}
	p := &Poller{Gateway: &fakeChecker{err: errors.New("gateway down")}, Ledger: rec}

	err := p.verifyOne(context.Background(), repository.PendingPayment{BookingID: 1, PaymentRef: "ref-x"})
	require.Error(t, err)
	assert.Empty(t, rec.confirmed)
	assert.Empty(t, rec.failed)
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "payment rejected", failureReason(StatusResult{State: StateFailed, Raw: "REJECTED"}))
	assert.Equal(t, "payment timeout", failureReason(StatusResult{State: StateFailed, Raw: "TIMEOUT"}))
	assert.Equal(t, "payment failed", failureReason(StatusResult{State: StateFailed}))
}

func TestVerifyCyclePollsWindowOnly(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := &fakeReconciler{}
	checker := &fakeChecker{results: map[string]StatusResult{
		"ref-a": {State: StateSuccess, Raw: "SUCCESS"},
		"ref-b": {State: StatePending, Raw: "PENDING"},
	}}
	p := NewPoller(repository.NewBookingRepo(db), checker, rec)

	mock.ExpectQuery("FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"id", "payment_ref"}).
			AddRow(21, "ref-a").
			AddRow(22, "ref-b"))

	p.VerifyCycle(context.Background())

	assert.Equal(t, []string{"ref-a"}, rec.confirmed)
	assert.Empty(t, rec.failed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPollerDefaults(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p := NewPoller(repository.NewBookingRepo(db), &fakeChecker{}, &fakeReconciler{})
	assert.Equal(t, 15*time.Second, p.VerifyEvery)
	assert.Equal(t, 15*time.Minute, p.VerifyWindow)
	assert.Equal(t, 5*time.Minute, p.ExpireEvery)
	assert.Equal(t, 30*time.Minute, p.ExpireAfter)
}

func TestExpireCycleDelegatesToLedger(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := &fakeReconciler{}
	p := NewPoller(repository.NewBookingRepo(db), &fakeChecker{}, rec)

	p.ExpireCycle(context.Background())
	assert.Equal(t, 1, rec.expired)
}
