package enums

import "fmt"

// UnitStatus is the lifecycle state of a tracked inventory unit.
type UnitStatus string

const (
	UnitStatusAvailable UnitStatus = "available"
	UnitStatusInTransit UnitStatus = "in_transit"
	UnitStatusOnHold    UnitStatus = "on_hold"
	UnitStatusConsumed  UnitStatus = "consumed"
	UnitStatusSold      UnitStatus = "sold"
	UnitStatusDamaged   UnitStatus = "damaged"
)

var validUnitStatuses = []UnitStatus{
	UnitStatusAvailable,
	UnitStatusInTransit,
	UnitStatusOnHold,
	UnitStatusConsumed,
	UnitStatusSold,
	UnitStatusDamaged,
}

func (s UnitStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known UnitStatus.
func (s UnitStatus) IsValid() bool {
	for _, candidate := range validUnitStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the unit has left sellable inventory for good.
func (s UnitStatus) IsTerminal() bool {
	switch s {
	case UnitStatusConsumed, UnitStatusSold, UnitStatusDamaged:
		return true
	case UnitStatusAvailable, UnitStatusInTransit, UnitStatusOnHold:
		return false
	default:
		return false
	}
}

// ParseUnitStatus converts raw input into a UnitStatus.
func ParseUnitStatus(value string) (UnitStatus, error) {
	for _, candidate := range validUnitStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit status %q", value)
}

// UnitSourceType records how a unit came into existence.
type UnitSourceType string

const (
	UnitSourceRegistration UnitSourceType = "registration"
	UnitSourceConversion   UnitSourceType = "conversion"
)

func (s UnitSourceType) IsValid() bool {
	return s == UnitSourceRegistration || s == UnitSourceConversion
}
