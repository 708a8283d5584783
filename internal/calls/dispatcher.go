package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/wolfman30/concierge-dialer/internal/naturaldate"
	"github.com/wolfman30/concierge-dialer/internal/places"
	"github.com/wolfman30/concierge-dialer/internal/slots"
	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

// Placer places one outbound call.
type Placer interface {
	Place(ctx context.Context, req Request) (PlaceResult, error)
}

// DestinationFinder resolves a business's number from its name and city.
type DestinationFinder interface {
	Search(ctx context.Context, name, city string) (places.Resolution, error)
}

// DispatchRecorder observes dispatch outcomes.
type DispatchRecorder interface {
	ObserveDispatch(status string)
}

// Result is reported back into the transcript as a tool result.
type Result struct {
	Queued   bool   `json:"queued"`
	CallID   string `json:"callId,omitempty"`
	RecordID string `json:"recordId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Dispatcher turns resolved details into exactly one call attempt.
type Dispatcher struct {
	placer  Placer
	store   Store
	finder  DestinationFinder
	dates   *naturaldate.Parser
	metrics DispatchRecorder
	source  string
	logger  *logging.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithStore records every attempt in store.
func WithStore(store Store) DispatcherOption {
	return func(d *Dispatcher) { d.store = store }
}

// WithFinder enables name and city resolution for direct dispatch.
func WithFinder(finder DestinationFinder) DispatcherOption {
	return func(d *Dispatcher) { d.finder = finder }
}

// WithDates adds ISO window bounds in the parser's timezone.
func WithDates(p *naturaldate.Parser) DispatcherOption {
	return func(d *Dispatcher) { d.dates = p }
}

// WithRecorder observes dispatch outcomes.
func WithRecorder(r DispatchRecorder) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = r }
}

// WithSource sets the source tag sent with every call.
func WithSource(source string) DispatcherOption {
	return func(d *Dispatcher) {
		if source != "" {
			d.source = source
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a Dispatcher around placer.
func NewDispatcher(placer Placer, opts ...DispatcherOption) *Dispatcher {
	if placer == nil {
		panic("calls: placer cannot be nil")
	}
	d := &Dispatcher{placer: placer, source: "concierge", logger: logging.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch invokes the placer exactly once for complete details. Incomplete
// details never reach the placer. Store failures are logged and do not
// change the result.
func (d *Dispatcher) Dispatch(ctx context.Context, conversationID string, details slots.Details) Result {
	req, err := BuildRequest(details, d.source, d.dates)
	if err != nil {
		d.observe("rejected")
		return Result{Error: err.Error()}
	}
	req.RequestID = uuid.NewString()

	placed, placeErr := d.placer.Place(ctx, req)

	rec := &Record{
		ID:              uuid.New(),
		ConversationID:  conversationID,
		Status:          StatusQueued,
		TargetName:      req.TargetName,
		TargetPhone:     req.TargetPhone,
		Notes:           req.Notes,
		Script:          req.Script,
		PartySize:       details.PartySize,
		ReservationDate: details.Date,
		WindowStart:     details.TimeWindowStart,
		WindowEnd:       details.TimeWindowEnd,
		ProviderCallID:  placed.ProviderCallID,
	}
	if rec.ProviderCallID == "" {
		rec.ProviderCallID = placed.CallID
	}
	if placeErr != nil {
		rec.Status = StatusFailed
		rec.Error = placeErr.Error()
	}
	d.record(ctx, rec)

	logger := d.logger.With("conversation_id", conversationID, "record_id", rec.ID.String(), "to", logging.MaskPhone(req.TargetPhone))
	if placeErr != nil {
		d.observe(string(StatusFailed))
		logger.Error("call dispatch failed", "error", placeErr)
		return Result{RecordID: rec.ID.String(), Error: placeErr.Error()}
	}

	d.observe(string(StatusQueued))
	callID := placed.CallID
	if callID == "" {
		callID = rec.ID.String()
	}
	logger.Info("call dispatched", "call_id", callID)
	return Result{Queued: true, CallID: callID, RecordID: rec.ID.String()}
}

// DispatchForm validates a reservation form and dispatches it. Validation
// problems are returned as a list and nothing is dialed.
func (d *Dispatcher) DispatchForm(ctx context.Context, form ReservationForm) (Result, []string) {
	if problems := form.Validate(); len(problems) > 0 {
		return Result{Error: "invalid_reservation"}, problems
	}
	details := form.Details()
	if details.DestinationPhone == "" {
		if d.finder == nil {
			return Result{Error: "missing_destination_phone"}, []string{"restaurant phone"}
		}
		res, err := d.finder.Search(ctx, form.RestaurantName, form.City)
		if err != nil {
			if !errors.Is(err, places.ErrNoPhone) {
				d.logger.Warn("destination search failed", "name", form.RestaurantName, "city", form.City, "error", err)
			}
			return Result{Error: "missing_destination_phone"}, []string{fmt.Sprintf("restaurant phone for %s", strings.TrimSpace(form.RestaurantName))}
		}
		details.DestinationPhone = res.Phone
		if details.Address == "" {
			details.Address = res.Address
		}
	}
	if details.RestaurantName == "" {
		details.RestaurantName = details.DestinationPhone
	}
	return d.Dispatch(ctx, "", details), nil
}

// Store exposes the record store, which may be nil.
func (d *Dispatcher) Store() Store {
	return d.store
}

func (d *Dispatcher) record(ctx context.Context, rec *Record) {
	if d.store == nil {
		return
	}
	if err := d.store.Create(ctx, rec); err != nil {
		d.logger.Error("failed to record call", "record_id", rec.ID.String(), "error", err)
	}
}

func (d *Dispatcher) observe(status string) {
	if d.metrics != nil {
		d.metrics.ObserveDispatch(status)
	}
}
