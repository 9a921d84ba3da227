package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateInventoryUnit   OutboxAggregateType = "inventory_unit"
	AggregateTransferPackage OutboxAggregateType = "transfer_package"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateInventoryUnit,
	AggregateTransferPackage,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventUnitRegistered    OutboxEventType = "unit_registered"
	EventUnitConverted     OutboxEventType = "unit_converted"
	EventPortionSold       OutboxEventType = "portion_sold"
	EventTransferCreated   OutboxEventType = "transfer_created"
	EventTransferReceived  OutboxEventType = "transfer_received"
	EventTransferCancelled OutboxEventType = "transfer_cancelled"
)

var validOutboxEventTypes = []OutboxEventType{
	EventUnitRegistered,
	EventUnitConverted,
	EventPortionSold,
	EventTransferCreated,
	EventTransferReceived,
	EventTransferCancelled,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
