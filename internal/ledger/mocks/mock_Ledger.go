// Package mocks provides test doubles for the ledger.
package mocks

import (
	"context"

	ledger "github.com/sells-group/lead-scorer/internal/ledger"
	model "github.com/sells-group/lead-scorer/internal/model"
	mock "github.com/stretchr/testify/mock"
)

// MockLedger is a mock type for the Ledger interface.
type MockLedger struct {
	mock.Mock
}

// FetchBaseline provides a mock function with given fields: ctx, leadID
func (_m *MockLedger) FetchBaseline(ctx context.Context, leadID string) (*model.BaselineFacts, error) {
	ret := _m.Called(ctx, leadID)

	if len(ret) == 0 {
		panic("no return value specified for FetchBaseline")
	}

	var r0 *model.BaselineFacts
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.BaselineFacts, error)); ok {
		return rf(ctx, leadID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.BaselineFacts); ok {
		r0 = rf(ctx, leadID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.BaselineFacts)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, leadID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// FetchEnrichment provides a mock function with given fields: ctx, leadID
func (_m *MockLedger) FetchEnrichment(ctx context.Context, leadID string) (*model.EnrichmentFacts, error) {
	ret := _m.Called(ctx, leadID)

	if len(ret) == 0 {
		panic("no return value specified for FetchEnrichment")
	}

	var r0 *model.EnrichmentFacts
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.EnrichmentFacts, error)); ok {
		return rf(ctx, leadID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.EnrichmentFacts); ok {
		r0 = rf(ctx, leadID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.EnrichmentFacts)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, leadID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// WriteScore provides a mock function with given fields: ctx, leadID, result
func (_m *MockLedger) WriteScore(ctx context.Context, leadID string, result *model.ScoringResult) error {
	ret := _m.Called(ctx, leadID, result)

	if len(ret) == 0 {
		panic("no return value specified for WriteScore")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, *model.ScoringResult) error); ok {
		r0 = rf(ctx, leadID, result)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// WriteStatus provides a mock function with given fields: ctx, leadID, status
func (_m *MockLedger) WriteStatus(ctx context.Context, leadID string, status model.ScoringStatus) error {
	ret := _m.Called(ctx, leadID, status)

	if len(ret) == 0 {
		panic("no return value specified for WriteStatus")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, model.ScoringStatus) error); ok {
		r0 = rf(ctx, leadID, status)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ListLeadIDs provides a mock function with given fields: ctx, opts
func (_m *MockLedger) ListLeadIDs(ctx context.Context, opts ledger.ListOptions) ([]string, error) {
	ret := _m.Called(ctx, opts)

	if len(ret) == 0 {
		panic("no return value specified for ListLeadIDs")
	}

	var r0 []string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, ledger.ListOptions) ([]string, error)); ok {
		return rf(ctx, opts)
	}
	if rf, ok := ret.Get(0).(func(context.Context, ledger.ListOptions) []string); ok {
		r0 = rf(ctx, opts)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]string)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, ledger.ListOptions) error); ok {
		r1 = rf(ctx, opts)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockLedger creates a new instance of MockLedger. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockLedger(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockLedger {
	mock := &MockLedger{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
