package cmd

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pragmatic.dev/pkg/pragmatic/internal/domain"
	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

type mockWorkflow struct {
	mock.Mock
}

func newMockWorkflow(t interface {
	mock.TestingT
	Cleanup(func())
}) *mockWorkflow {
	w := &mockWorkflow{}
	w.Test(t)

	t.Cleanup(func() { w.AssertExpectations(t) })

	return w
}

func (w *mockWorkflow) Audit(ctx context.Context, args domain.AuditArgs) (m.Report, error) {
	ret := w.Called(ctx, args)
	return ret.Get(0).(m.Report), ret.Error(1)
}

func (w *mockWorkflow) View(ctx context.Context, args domain.ViewArgs) error {
	return w.Called(ctx, args).Error(0)
}

// useWorkflow swaps the package workflow for the duration of the test.
func useWorkflow(t interface{ Cleanup(func()) }, wf domain.Workflow) {
	original := workflow
	workflow = wf

	t.Cleanup(func() { workflow = original })
}
