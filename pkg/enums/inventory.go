package enums

import "fmt"

// LocationType classifies where inventory sits; tiers declare which types may hold them.
type LocationType string

const (
	LocationWarehouse          LocationType = "warehouse"
	LocationDistributionCenter LocationType = "distribution_center"
	LocationRetailStore        LocationType = "retail_store"
)

var validLocationTypes = []LocationType{
	LocationWarehouse,
	LocationDistributionCenter,
	LocationRetailStore,
}

// AllLocationTypes returns a copy of every known location type.
func AllLocationTypes() []LocationType {
	out := make([]LocationType, len(validLocationTypes))
	copy(out, validLocationTypes)
	return out
}

func (l LocationType) IsValid() bool {
	for _, candidate := range validLocationTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

func ParseLocationType(value string) (LocationType, error) {
	for _, candidate := range validLocationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid location type %q", value)
}

// InventoryTransactionType labels rows of the bulk quantity ledger.
type InventoryTransactionType string

const (
	InventoryTxReceiving   InventoryTransactionType = "receiving"
	InventoryTxTransferOut InventoryTransactionType = "transfer_out"
	InventoryTxTransferIn  InventoryTransactionType = "transfer_in"
	InventoryTxSale        InventoryTransactionType = "sale"
	InventoryTxAdjustment  InventoryTransactionType = "adjustment"
)

var validInventoryTransactionTypes = []InventoryTransactionType{
	InventoryTxReceiving,
	InventoryTxTransferOut,
	InventoryTxTransferIn,
	InventoryTxSale,
	InventoryTxAdjustment,
}

func (t InventoryTransactionType) IsValid() bool {
	for _, candidate := range validInventoryTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Sign is +1 for inflows, -1 for outflows and 0 when the row carries its own sign.
func (t InventoryTransactionType) Sign() int {
	switch t {
	case InventoryTxReceiving, InventoryTxTransferIn:
		return 1
	case InventoryTxTransferOut, InventoryTxSale:
		return -1
	case InventoryTxAdjustment:
		return 0
	default:
		return 0
	}
}

func ParseInventoryTransactionType(value string) (InventoryTransactionType, error) {
	for _, candidate := range validInventoryTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory transaction type %q", value)
}
