package mocks

import (
	"context"

	"github.com/phrazzld/taskr/internal/workflow"
	"github.com/stretchr/testify/mock"
)

// TestifyMockStarter is a mock of workflow.Starter for use with testify/mock
type TestifyMockStarter struct {
	mock.Mock
}

var _ workflow.Starter = (*TestifyMockStarter)(nil)

// StartExecution is a mock implementation of workflow.Starter.StartExecution
func (m *TestifyMockStarter) StartExecution(ctx context.Context, in workflow.Input) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}
