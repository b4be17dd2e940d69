// Package status maps extraction output to a canonical service status. The
// resolver is a pure function of its explicit inputs: it reads no session
// state, performs no I/O, and is deterministic, so it can be tested without
// any browser interaction.
package status

import (
	"portalprobe/internal/extract"
	"portalprobe/internal/search"
)

// Location is which partition, if any, produced the matching record.
type Location string

const (
	LocationActive   Location = "active"
	LocationInactive Location = "inactive"
	LocationNotFound Location = "not_found"
	LocationError    Location = "error"
)

// Type is the canonical status classification.
type Type string

const (
	TypeNotFound                      Type = "not_found"
	TypeActiveValidated               Type = "active_validated"
	TypeActiveWithPendingCancellation Type = "active_with_pending_cancellation"
	TypeCancelledImplemented          Type = "cancelled_implemented"
	TypeFoundUnclearState             Type = "found_unclear_state"
)

// ServiceStatus is the resolved state of one subscriber service record.
// Invariant: Found is false exactly when Location is not_found or error.
type ServiceStatus struct {
	Found                          bool
	IsActive                       bool
	ServiceLocation                Location
	PendingCeaseOrder              bool
	CancellationCapturedID         string
	CancellationImplementationDate string
	StatusType                     Type
}

// Resolve applies the transition rules in order:
//
//  1. Nothing matched → not_found.
//  2. Active partition with an extraction → active; a captured cancellation in
//     the history, an independent deactivated-partition match, or a
//     non-default expiry date marks a pending cease order.
//  3. Inactive partition → cancelled and implemented; implementation date and
//     id come from the primary matched row, preferring a captured id.
//  4. Anything else found → found_unclear_state. The caller logs this as an
//     anomaly; it is never coerced to another status.
func Resolve(res *extract.Result, inactiveRow *extract.HistoryRecord, partition search.Partition) ServiceStatus {
	switch {
	case partition == search.PartitionNotFound:
		return ServiceStatus{
			Found:           false,
			ServiceLocation: LocationNotFound,
			StatusType:      TypeNotFound,
		}

	case partition == search.PartitionActive && res != nil:
		st := ServiceStatus{
			Found:           true,
			IsActive:        true,
			ServiceLocation: LocationActive,
			StatusType:      TypeActiveValidated,
		}
		if len(res.CapturedCancellationIDs) > 0 {
			st.StatusType = TypeActiveWithPendingCancellation
			st.PendingCeaseOrder = true
			st.CancellationCapturedID = res.CapturedCancellationIDs[0]
		} else if inactiveRow != nil {
			st.StatusType = TypeActiveWithPendingCancellation
			st.PendingCeaseOrder = true
			st.CancellationCapturedID = inactiveRow.ID
		}
		if expiry, ok := res.Fields[extract.FieldExpiryDate]; ok && !extract.IsDefaultExpiry(expiry) {
			st.StatusType = TypeActiveWithPendingCancellation
			st.PendingCeaseOrder = true
		}
		return st

	case partition == search.PartitionInactive:
		st := ServiceStatus{
			Found:           true,
			IsActive:        false,
			ServiceLocation: LocationInactive,
			StatusType:      TypeCancelledImplemented,
		}
		if inactiveRow != nil {
			st.CancellationImplementationDate = inactiveRow.DateTime
			st.CancellationCapturedID = inactiveRow.ID
		}
		if res != nil && len(res.CapturedCancellationIDs) > 0 {
			st.CancellationCapturedID = res.CapturedCancellationIDs[0]
		}
		return st

	default:
		// Found in the active partition but with no usable extraction.
		return ServiceStatus{
			Found:           true,
			ServiceLocation: LocationActive,
			StatusType:      TypeFoundUnclearState,
		}
	}
}
