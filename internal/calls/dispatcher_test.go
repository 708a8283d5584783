package calls

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/concierge-dialer/internal/places"
	"github.com/wolfman30/concierge-dialer/internal/slots"
	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

type fakePlacer struct {
	mu       sync.Mutex
	requests []Request
	result   PlaceResult
	err      error
}

func (f *fakePlacer) Place(_ context.Context, req Request) (PlaceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.result, f.err
}

type countingRecorder struct{ statuses []string }

func (c *countingRecorder) ObserveDispatch(status string) { c.statuses = append(c.statuses, status) }

type fakeFinder struct {
	res places.Resolution
	err error
}

func (f fakeFinder) Search(context.Context, string, string) (places.Resolution, error) {
	return f.res, f.err
}

func quietLogger() *logging.Logger { return logging.NewWithWriter("error", io.Discard) }

func completeDetails() slots.Details {
	return slots.Details{
		RestaurantName:   "Via Carota",
		PartySize:        2,
		Date:             "2024-11-08",
		TimeWindowStart:  "19:00",
		TimeWindowEnd:    "19:30",
		UserPhone:        "+15551234567",
		DestinationPhone: "+12125550100",
	}
}

func TestDispatch_PlacesExactlyOnce(t *testing.T) {
	placer := &fakePlacer{result: PlaceResult{CallID: "call-77", ProviderCallID: "vapi-77"}}
	store := NewMemoryStore()
	rec := &countingRecorder{}
	d := NewDispatcher(placer, WithStore(store), WithRecorder(rec), WithLogger(quietLogger()), WithSource("test"))

	res := d.Dispatch(context.Background(), "conv-1", completeDetails())

	require.True(t, res.Queued)
	assert.Equal(t, "call-77", res.CallID)
	require.Len(t, placer.requests, 1)
	assert.Equal(t, "+12125550100", placer.requests[0].TargetPhone)
	assert.Equal(t, "test", placer.requests[0].Source)
	assert.NotEmpty(t, placer.requests[0].RequestID)
	assert.Equal(t, []string{"queued"}, rec.statuses)

	stored, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, StatusQueued, stored[0].Status)
	assert.Equal(t, "conv-1", stored[0].ConversationID)
	assert.Equal(t, "vapi-77", stored[0].ProviderCallID)
	assert.Equal(t, res.RecordID, stored[0].ID.String())
}

func TestDispatch_IncompleteNeverPlaces(t *testing.T) {
	placer := &fakePlacer{}
	d := NewDispatcher(placer, WithLogger(quietLogger()))

	details := completeDetails()
	details.PartySize = 0
	res := d.Dispatch(context.Background(), "conv-1", details)

	assert.False(t, res.Queued)
	assert.Contains(t, res.Error, "partySize")
	assert.Empty(t, placer.requests)
}

func TestDispatch_PlacerFailureRecorded(t *testing.T) {
	placer := &fakePlacer{err: errors.New("calls: call-now returned 502: upstream")}
	store := NewMemoryStore()
	d := NewDispatcher(placer, WithStore(store), WithLogger(quietLogger()))

	res := d.Dispatch(context.Background(), "conv-1", completeDetails())

	assert.False(t, res.Queued)
	assert.Contains(t, res.Error, "502")
	require.Len(t, placer.requests, 1)
	stored, _ := store.ListRecent(context.Background(), 10)
	require.Len(t, stored, 1)
	assert.Equal(t, StatusFailed, stored[0].Status)
	assert.Contains(t, stored[0].Error, "upstream")
}

func TestDispatch_FallsBackToRecordID(t *testing.T) {
	d := NewDispatcher(&fakePlacer{}, WithLogger(quietLogger()))
	res := d.Dispatch(context.Background(), "", completeDetails())
	require.True(t, res.Queued)
	assert.Equal(t, res.RecordID, res.CallID)
}

func TestDispatchForm(t *testing.T) {
	valid := ReservationForm{
		RestaurantName: "Lilia",
		City:           "Brooklyn",
		PartySize:      4,
		Date:           "2024-11-09",
		Time:           "20:00",
		UserPhone:      "+15551234567",
		Consent:        true,
	}

	t.Run("resolves destination through finder", func(t *testing.T) {
		placer := &fakePlacer{}
		d := NewDispatcher(placer, WithLogger(quietLogger()),
			WithFinder(fakeFinder{res: places.Resolution{Phone: "+17185550111", Source: places.SourceKnown}}))
		res, problems := d.DispatchForm(context.Background(), valid)
		require.Empty(t, problems)
		assert.True(t, res.Queued)
		require.Len(t, placer.requests, 1)
		assert.Equal(t, "+17185550111", placer.requests[0].TargetPhone)
		assert.Equal(t, "20:00", placer.requests[0].Time)
		assert.Equal(t, "concierge", placer.requests[0].Source)
	})

	t.Run("unresolvable destination", func(t *testing.T) {
		placer := &fakePlacer{}
		d := NewDispatcher(placer, WithLogger(quietLogger()), WithFinder(fakeFinder{err: places.ErrNoPhone}))
		res, problems := d.DispatchForm(context.Background(), valid)
		assert.Equal(t, "missing_destination_phone", res.Error)
		assert.NotEmpty(t, problems)
		assert.Empty(t, placer.requests)
	})

	t.Run("invalid form", func(t *testing.T) {
		placer := &fakePlacer{}
		d := NewDispatcher(placer, WithLogger(quietLogger()))
		form := valid
		form.Consent = false
		res, problems := d.DispatchForm(context.Background(), form)
		assert.Equal(t, "invalid_reservation", res.Error)
		assert.Equal(t, []string{"consent to call"}, problems)
		assert.Empty(t, placer.requests)
	})

	t.Run("phone only", func(t *testing.T) {
		placer := &fakePlacer{}
		d := NewDispatcher(placer, WithLogger(quietLogger()))
		form := valid
		form.RestaurantName, form.City, form.TargetPhone = "", "", "+12125550133"
		res, problems := d.DispatchForm(context.Background(), form)
		require.Empty(t, problems)
		assert.True(t, res.Queued)
		assert.Equal(t, "+12125550133", placer.requests[0].TargetName)
	})
}

func TestNewDispatcher_NilPlacerPanics(t *testing.T) {
	assert.Panics(t, func() { NewDispatcher(nil) })
}
