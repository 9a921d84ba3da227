// Package qr encodes and decodes the payloads printed on unit and transfer labels.
//
// A unit payload is one class character followed by the unit UUID, for example
// "D3f1c...". A transfer payload uses the "P" prefix.
package qr

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
)

// Class is the magnitude class stamped as the first character of a unit code.
type Class string

const (
	ClassBulk         Class = "B"
	ClassDistribution Class = "D"
	ClassIndividual   Class = "I"
	ClassSaleCut      Class = "S"

	// TransferPrefix marks transfer package labels.
	TransferPrefix = "P"
)

var validClasses = []Class{ClassBulk, ClassDistribution, ClassIndividual, ClassSaleCut}

var (
	bulkThreshold         = decimal.NewFromInt(224)
	distributionThreshold = decimal.NewFromInt(28)
	individualThreshold   = decimal.RequireFromString("3.5")
)

func (c Class) IsValid() bool {
	for _, candidate := range validClasses {
		if candidate == c {
			return true
		}
	}
	return false
}

func ParseClass(value string) (Class, error) {
	for _, candidate := range validClasses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid qr class %q", value)
}

// ClassForQuantity derives the class from a tier magnitude in base units.
func ClassForQuantity(quantity decimal.Decimal) Class {
	switch {
	case quantity.GreaterThanOrEqual(bulkThreshold):
		return ClassBulk
	case quantity.GreaterThanOrEqual(distributionThreshold):
		return ClassDistribution
	case quantity.GreaterThanOrEqual(individualThreshold):
		return ClassIndividual
	default:
		return ClassSaleCut
	}
}

// EncodeUnit builds the label payload for a unit.
func EncodeUnit(class Class, id uuid.UUID) string {
	return string(class) + id.String()
}

// DecodeUnit splits a unit payload into its class and id.
func DecodeUnit(code string) (Class, uuid.UUID, error) {
	code = strings.TrimSpace(code)
	if len(code) < 2 {
		return "", uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "qr code is too short")
	}
	class, err := ParseClass(code[:1])
	if err != nil {
		return "", uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unrecognized qr code prefix")
	}
	id, err := uuid.Parse(code[1:])
	if err != nil {
		return "", uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "qr code does not carry a valid unit id")
	}
	return class, id, nil
}

// EncodeTransfer builds the label payload for a transfer package.
func EncodeTransfer(id uuid.UUID) string {
	return TransferPrefix + id.String()
}

// DecodeTransferCode extracts the package id from a transfer label.
func DecodeTransferCode(code string) (uuid.UUID, error) {
	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, TransferPrefix) {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "not a transfer code")
	}
	id, err := uuid.Parse(strings.TrimPrefix(code, TransferPrefix))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "transfer code does not carry a valid id")
	}
	return id, nil
}
