package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentwire/leadharvest/internal/backend"
	"github.com/talentwire/leadharvest/internal/harvest"
	"github.com/talentwire/leadharvest/internal/reconcile"
	"github.com/talentwire/leadharvest/internal/retry"
)

type fakeUpserter struct {
	batches [][]harvest.ContactRecord
	errs    []error
	calls   int
}

func (f *fakeUpserter) BulkUpsert(_ context.Context, contacts []harvest.ContactRecord) (backend.BulkResult, error) {
	f.batches = append(f.batches, contacts)
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return backend.BulkResult{}, err
		}
	}
	return backend.BulkResult{Inserted: len(contacts)}, nil
}

func newReconciler(u reconcile.Upserter, attempts int) *reconcile.Reconciler {
	return reconcile.New(u, retry.New(attempts, time.Millisecond, nil, nil), nil)
}

func TestFlushDeduplicatesByEmailCaseInsensitive(t *testing.T) {
	t.Parallel()

	u := &fakeUpserter{}
	r := newReconciler(u, 1)
	r.Add(
		harvest.ContactRecord{FullName: "First", Email: "A@x.com"},
		harvest.ContactRecord{FullName: "Second", Email: "a@x.com"},
		harvest.ContactRecord{FullName: "Other", Email: "b@x.com"},
	)

	result, err := r.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)

	require.Len(t, u.batches, 1)
	require.Len(t, u.batches[0], 2)
	// First occurrence wins.
	assert.Equal(t, "First", u.batches[0][0].FullName)
	assert.Equal(t, "A@x.com", u.batches[0][0].Email)
}

func TestAddDropsContactsWithoutEmail(t *testing.T) {
	t.Parallel()

	r := newReconciler(&fakeUpserter{}, 1)
	r.Add(
		harvest.ContactRecord{FullName: "No Address"},
		harvest.ContactRecord{FullName: "Has One", Email: "x@y.io"},
	)
	assert.Equal(t, 1, r.Pending())
}

func TestFlushEmptyBufferIsNoOp(t *testing.T) {
	t.Parallel()

	u := &fakeUpserter{}
	r := newReconciler(u, 3)
	result, err := r.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result)
	assert.Zero(t, u.calls)
}

func TestFlushClearsBufferEvenOnFailure(t *testing.T) {
	t.Parallel()

	u := &fakeUpserter{errs: []error{errors.New("boom")}}
	r := newReconciler(u, 1)
	r.Add(harvest.ContactRecord{Email: "x@y.io"})

	_, err := r.Flush(context.Background())
	require.Error(t, err)
	assert.Zero(t, r.Pending(), "failed batches are not requeued")
}

func TestFlushRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	u := &fakeUpserter{errs: []error{errors.New("flaky"), nil}}
	r := newReconciler(u, 3)
	r.Add(harvest.ContactRecord{Email: "x@y.io"})

	result, err := r.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 2, u.calls)
}

func TestFlushStopsOnCredentialExpiry(t *testing.T) {
	t.Parallel()

	u := &fakeUpserter{errs: []error{
		retry.Permanent(backend.ErrCredentialExpired),
		nil, nil,
	}}
	r := newReconciler(u, 3)
	r.Add(harvest.ContactRecord{Email: "x@y.io"})

	_, err := r.Flush(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrCredentialExpired)
	assert.Equal(t, 1, u.calls, "permanent errors must not be retried")
}
