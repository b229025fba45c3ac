package mocks

import (
	"context"

	"github.com/absmach/fedavg/coordinator"
	"github.com/absmach/fedavg/pkg/fl"
	"github.com/stretchr/testify/mock"
)

var _ coordinator.Service = (*MockService)(nil)

// MockService is a mock implementation of the coordinator.Service interface
type MockService struct {
	mock.Mock
}

// Start loads or creates the global model
func (m *MockService) Start(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Broadcast publishes the current global model
func (m *MockService) Broadcast(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// SubmitUpdate records a client update
func (m *MockService) SubmitUpdate(ctx context.Context, clientID int, payload []byte) (coordinator.Submission, error) {
	args := m.Called(ctx, clientID, payload)
	return args.Get(0).(coordinator.Submission), args.Error(1)
}

// Status reports the round in progress
func (m *MockService) Status(ctx context.Context) (coordinator.Status, error) {
	args := m.Called(ctx)
	return args.Get(0).(coordinator.Status), args.Error(1)
}

// GlobalModel returns the current global model
func (m *MockService) GlobalModel(ctx context.Context) (fl.GlobalModel, error) {
	args := m.Called(ctx)
	return args.Get(0).(fl.GlobalModel), args.Error(1)
}

// ListRounds lists archived rounds with pagination
func (m *MockService) ListRounds(ctx context.Context, offset, limit uint64) (coordinator.RoundPage, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).(coordinator.RoundPage), args.Error(1)
}

// GetRound returns an archived global model
func (m *MockService) GetRound(ctx context.Context, round uint64) (fl.GlobalModel, error) {
	args := m.Called(ctx, round)
	return args.Get(0).(fl.GlobalModel), args.Error(1)
}

// Done reports when the service has failed
func (m *MockService) Done() <-chan struct{} {
	args := m.Called()
	if ch, ok := args.Get(0).(chan struct{}); ok {
		return ch
	}
	return args.Get(0).(<-chan struct{})
}

// Err returns the error the service failed with
func (m *MockService) Err() error {
	args := m.Called()
	return args.Error(0)
}
