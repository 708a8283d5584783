package conversation

import (
	"context"

	"github.com/wolfman30/concierge-dialer/internal/brain"
	"github.com/wolfman30/concierge-dialer/internal/places"
	"github.com/wolfman30/concierge-dialer/internal/slots"
)

// outcome is a handler's effect on the turn.
type outcome struct {
	result  any
	display string
	halt    bool
	next    State
}

func (o *Orchestrator) handle(ctx context.Context, sess *Session, tc brain.ToolCall) outcome {
	switch call := tc.(type) {
	case brain.UpsertSlots:
		return o.handleUpsert(sess, call)
	case brain.AskUser:
		return o.handleAsk(sess, call)
	case brain.GuideUser:
		return outcome{result: map[string]any{"ok": true, "shown": len(call.Steps)}, display: guidePrompt(call.Title, call.Steps)}
	case brain.Confirm:
		return o.handleConfirm(sess, call)
	case brain.StartRequest:
		return o.handleStart(ctx, sess, call)
	default:
		return outcome{result: map[string]any{"error": "unknown_tool", "name": tc.ToolName()}}
	}
}

func (o *Orchestrator) handleUpsert(sess *Session, call brain.UpsertSlots) outcome {
	sess.Slots = o.normalizer.Apply(sess.Slots, call.Arguments())
	if sess.Slots.Details.DestinationPhone != "" {
		sess.Slots.UI.ExpectingDestPhone = false
	}
	return outcome{result: map[string]any{"ok": true, "slots": sess.Slots}}
}

func (o *Orchestrator) handleAsk(sess *Session, call brain.AskUser) outcome {
	question := call.Question
	if question == "" {
		if missing := sess.Slots.Details.MissingRequired(); sess.Slots.Mode == slots.ModeBooking && len(missing) > 0 {
			question = missingPrompt(missing)
		} else {
			question = followUpPrompt
		}
	}
	return outcome{
		result:  map[string]any{"ok": true, "asked": question},
		display: question,
		halt:    true,
		next:    StateAwaitingUser,
	}
}

func (o *Orchestrator) handleConfirm(sess *Session, call brain.Confirm) outcome {
	if call.Summary == "" {
		return outcome{result: map[string]any{"ok": true, "details": sess.Slots.Details}}
	}
	if args := confirmArgs(call.Summary, o.normalizer.Dates()); len(args) > 0 {
		sess.Slots.Details = o.normalizer.Normalize(sess.Slots.Details, args)
	}
	applyConfirmPhone(call.Summary, &sess.Slots)
	return outcome{
		result:  map[string]any{"ok": true, "details": sess.Slots.Details},
		display: call.Summary,
	}
}

func (o *Orchestrator) handleStart(ctx context.Context, sess *Session, call brain.StartRequest) outcome {
	if args := call.Arguments(); len(args) > 0 {
		sess.Slots = o.normalizer.Apply(sess.Slots, args)
	}
	o.normalizer.BackfillFromHints(&sess.Slots)
	sess.Slots.Details = o.normalizer.NormalizeDate(sess.Slots.Details)
	d := sess.Slots.Details

	if missing := d.MissingRequired(); len(missing) > 0 {
		return outcome{
			result:  map[string]any{"error": "missing_required_slots", "missing": missing},
			display: missingPrompt(missing),
			halt:    true,
			next:    StateAwaitingUser,
		}
	}

	res, ok := o.resolveDestination(ctx, d)
	if !ok {
		sess.Slots.UI.ExpectingDestPhone = true
		return outcome{
			result:  map[string]any{"error": "missing_destination_phone", "missing": []string{slots.FieldDestinationPhone}},
			display: destinationPrompt,
			halt:    true,
			next:    StateAwaitingUser,
		}
	}
	d.DestinationPhone = res.Phone
	if d.Address == "" {
		d.Address = res.Address
	}
	if d.Website == "" {
		d.Website = res.Website
	}
	if d.PlaceID == "" {
		d.PlaceID = res.PlaceID
	}
	sess.Slots.Details = d
	sess.Slots.UI.ExpectingDestPhone = false

	result := o.dispatcher.Dispatch(ctx, sess.ID, d)
	if !result.Queued {
		return outcome{
			result:  result,
			display: dispatchFailedPrompt(d, result.Error),
			halt:    true,
			next:    StateError,
		}
	}
	return outcome{
		result:  result,
		display: dispatchedPrompt(d),
		halt:    true,
		next:    StateCallDispatched,
	}
}

func (o *Orchestrator) resolveDestination(ctx context.Context, d slots.Details) (places.Resolution, bool) {
	if o.resolver == nil {
		if d.DestinationPhone == "" {
			return places.Resolution{}, false
		}
		return places.Resolution{Phone: d.DestinationPhone, Source: places.SourceSlot}, true
	}
	return o.resolver.Resolve(ctx, places.Query{
		Phone:   d.DestinationPhone,
		Name:    d.RestaurantName,
		City:    d.City,
		PlaceID: d.PlaceID,
	})
}
