package enums

import "fmt"

// ScanOperation is the closed set of actions a barcode scan can record.
type ScanOperation string

const (
	ScanReceiving     ScanOperation = "receiving"
	ScanTransferOut   ScanOperation = "transfer_out"
	ScanTransferIn    ScanOperation = "transfer_in"
	ScanConversionIn  ScanOperation = "conversion_in"
	ScanConversionOut ScanOperation = "conversion_out"
	ScanAudit         ScanOperation = "audit"
	ScanSale          ScanOperation = "sale"
	ScanDamage        ScanOperation = "damage"
	ScanAdjustment    ScanOperation = "adjustment"
	ScanLookup        ScanOperation = "lookup"
	ScanReprint       ScanOperation = "reprint"
	ScanBinMove       ScanOperation = "bin_move"
)

var validScanOperations = []ScanOperation{
	ScanReceiving,
	ScanTransferOut,
	ScanTransferIn,
	ScanConversionIn,
	ScanConversionOut,
	ScanAudit,
	ScanSale,
	ScanDamage,
	ScanAdjustment,
	ScanLookup,
	ScanReprint,
	ScanBinMove,
}

func (o ScanOperation) String() string {
	return string(o)
}

// IsValid reports whether the value is a known ScanOperation.
func (o ScanOperation) IsValid() bool {
	for _, candidate := range validScanOperations {
		if candidate == o {
			return true
		}
	}
	return false
}

// MutatesPlacement reports whether the operation is a stock movement or state
// change. Consumed units only accept operations that are not.
func (o ScanOperation) MutatesPlacement() bool {
	switch o {
	case ScanReceiving, ScanTransferOut, ScanTransferIn,
		ScanConversionIn, ScanConversionOut,
		ScanSale, ScanDamage, ScanAdjustment, ScanBinMove:
		return true
	case ScanAudit, ScanLookup, ScanReprint:
		return false
	default:
		return false
	}
}

// ParseScanOperation converts raw input into a ScanOperation.
func ParseScanOperation(value string) (ScanOperation, error) {
	for _, candidate := range validScanOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid scan operation %q", value)
}
