package places

import (
	"context"
	"fmt"

	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

// Source names where a destination number came from.
type Source string

const (
	SourceSlot         Source = "slot"
	SourceKnown        Source = "known_business"
	SourcePlaceDetails Source = "place_details"
	SourcePlaceSearch  Source = "place_search"
)

// Lookup is the subset of Client the resolver needs.
type Lookup interface {
	Details(ctx context.Context, placeID string) (*Place, error)
	Find(ctx context.Context, query, city string, limit int) ([]Place, error)
}

// Query describes the business whose number is wanted.
type Query struct {
	Phone   string
	Name    string
	City    string
	PlaceID string
}

// Resolution is a resolved destination number and its provenance.
type Resolution struct {
	Phone   string
	Source  Source
	Address string
	Website string
	PlaceID string
}

// Resolver finds a destination number: an explicit value first, then the
// known-business table, then place details by id.
type Resolver struct {
	known  *Directory
	lookup Lookup
	logger *logging.Logger
}

// NewResolver builds a Resolver. Both known and lookup may be nil.
func NewResolver(known *Directory, lookup Lookup, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{known: known, lookup: lookup, logger: logger}
}

// Resolve returns ok=false when no source produced a number. Lookup
// failures are logged and treated as unresolved.
func (r *Resolver) Resolve(ctx context.Context, q Query) (Resolution, bool) {
	if q.Phone != "" {
		return Resolution{Phone: q.Phone, Source: SourceSlot}, true
	}
	if b, ok := r.known.Lookup(q.Name, q.City); ok {
		return Resolution{Phone: b.Phone, Source: SourceKnown, Address: b.Address, Website: b.Website, PlaceID: b.PlaceID}, true
	}
	if r.lookup == nil || q.PlaceID == "" {
		return Resolution{}, false
	}

	place, err := r.lookup.Details(ctx, q.PlaceID)
	if err != nil {
		r.logger.Warn("place details lookup failed", "place_id", q.PlaceID, "error", err)
		return Resolution{}, false
	}
	num := place.Phone()
	if num == "" {
		r.logger.Info("place has no phone", "place_id", q.PlaceID, "error", ErrNoPhone)
		return Resolution{}, false
	}
	return Resolution{Phone: num, Source: SourcePlaceDetails, Address: place.Address, Website: place.Website, PlaceID: place.PlaceID}, true
}

// Search resolves a business by name and city: the known table first, then
// the place search. It is used when no place id is available.
func (r *Resolver) Search(ctx context.Context, name, city string) (Resolution, error) {
	if b, ok := r.known.Lookup(name, city); ok {
		return Resolution{Phone: b.Phone, Source: SourceKnown, Address: b.Address, Website: b.Website, PlaceID: b.PlaceID}, nil
	}
	if r.lookup == nil {
		return Resolution{}, ErrNoPhone
	}
	items, err := r.lookup.Find(ctx, name, city, 3)
	if err != nil {
		return Resolution{}, fmt.Errorf("places: search %q: %w", name, err)
	}
	for _, p := range items {
		if num := p.Phone(); num != "" {
			return Resolution{Phone: num, Source: SourcePlaceSearch, Address: p.Address, Website: p.Website, PlaceID: p.PlaceID}, nil
		}
	}
	return Resolution{}, ErrNoPhone
}
