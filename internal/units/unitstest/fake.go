// Package unitstest provides a scripted units.ValidatedUnitOps for tests.
package unitstest

import (
	"context"
	"sync"

	"github.com/angelmondragon/packfinderz-inventory/internal/units"
)

// FakeOps records calls and answers through the configured funcs. A nil func
// returns zero values.
type FakeOps struct {
	mu sync.Mutex

	RegisterFn    func(ctx context.Context, input units.RegisterInput) (*units.Unit, error)
	ConvertFn     func(ctx context.Context, input units.ConvertInput) (*units.ConversionResult, error)
	LookupFn      func(ctx context.Context, input units.LookupInput) (*units.LookupResult, error)
	SellPortionFn func(ctx context.Context, input units.SellPortionInput) (*units.SaleResult, error)

	RegisterCalls []units.RegisterInput
	ConvertCalls  []units.ConvertInput
	LookupCalls   []units.LookupInput
	SaleCalls     []units.SellPortionInput
}

var _ units.ValidatedUnitOps = (*FakeOps)(nil)

func (f *FakeOps) Register(ctx context.Context, input units.RegisterInput) (*units.Unit, error) {
	f.mu.Lock()
	f.RegisterCalls = append(f.RegisterCalls, input)
	f.mu.Unlock()
	if f.RegisterFn == nil {
		return &units.Unit{TierID: input.TierID}, nil
	}
	return f.RegisterFn(ctx, input)
}

func (f *FakeOps) Convert(ctx context.Context, input units.ConvertInput) (*units.ConversionResult, error) {
	f.mu.Lock()
	f.ConvertCalls = append(f.ConvertCalls, input)
	f.mu.Unlock()
	if f.ConvertFn == nil {
		return &units.ConversionResult{}, nil
	}
	return f.ConvertFn(ctx, input)
}

func (f *FakeOps) Lookup(ctx context.Context, input units.LookupInput) (*units.LookupResult, error) {
	f.mu.Lock()
	f.LookupCalls = append(f.LookupCalls, input)
	f.mu.Unlock()
	if f.LookupFn == nil {
		return &units.LookupResult{Found: false, Source: units.LookupSourceValidated}, nil
	}
	return f.LookupFn(ctx, input)
}

func (f *FakeOps) SellPortion(ctx context.Context, input units.SellPortionInput) (*units.SaleResult, error) {
	f.mu.Lock()
	f.SaleCalls = append(f.SaleCalls, input)
	f.mu.Unlock()
	if f.SellPortionFn == nil {
		return &units.SaleResult{}, nil
	}
	return f.SellPortionFn(ctx, input)
}
