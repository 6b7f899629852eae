package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pragmatic.dev/pkg/pragmatic/internal/domain"
	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

func TestAuditCmd_PassesConfiguration(t *testing.T) {
	wf := newMockWorkflow(t)
	useWorkflow(t, wf)

	cmd := newTestRootCmd(t)
	cmd.AddCommand(newAuditCmd())

	wf.On("Audit", mock.Anything, mock.MatchedBy(func(args domain.AuditArgs) bool {
		return args.Root == m.Path("./shop") &&
			assert.ObjectsAreEqual([]string{"shop", "billing"}, args.Config.CheckModules) &&
			assert.ObjectsAreEqual([]m.CheckKind{m.CheckFilters, m.CheckSignals}, args.Checks) &&
			assert.ObjectsAreEqual(domain.DefaultExcludeModules, args.Config.ExcludeModules) &&
			args.Reports == m.Path("out") &&
			args.Watch
	})).Return(m.Report{Checks: []m.CheckKind{m.CheckFilters, m.CheckSignals}}, nil)

	cmd.SetArgs([]string{"audit", "./shop", "-m", "shop,billing", "--check", "filters", "--check", "signals", "--watch", "-o", "out"})
	require.NoError(t, cmd.Execute())
}

func TestAuditCmd_FindingsFailTheCommand(t *testing.T) {
	wf := newMockWorkflow(t)
	useWorkflow(t, wf)

	cmd := newTestRootCmd(t)
	cmd.AddCommand(newAuditCmd())

	wf.On("Audit", mock.Anything, mock.Anything).Return(m.Report{
		Checks:   m.AllChecks,
		Findings: []m.Finding{{Check: m.CheckAsserts, Message: "commented assert"}},
	}, nil)

	cmd.SetArgs([]string{"audit", "--module", "shop"})
	err := cmd.Execute()
	require.ErrorIs(t, err, errMissingTests)
	assert.Contains(t, err.Error(), "1 finding(s)")
}

func TestAuditCmd_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no modules", []string{"audit"}, "no modules to check"},
		{"unknown check", []string{"audit", "-m", "shop", "-c", "coverage"}, `unknown check "coverage"`},
		{"too many paths", []string{"audit", "a", "b"}, "accepts at most 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := newMockWorkflow(t)
			useWorkflow(t, wf)

			cmd := newTestRootCmd(t)
			cmd.AddCommand(newAuditCmd())
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAuditCmd_WorkflowError(t *testing.T) {
	wf := newMockWorkflow(t)
	useWorkflow(t, wf)

	cmd := newTestRootCmd(t)
	cmd.AddCommand(newAuditCmd())

	wf.On("Audit", mock.Anything, mock.Anything).Return(m.Report{}, assert.AnError)

	cmd.SetArgs([]string{"audit", "-m", "shop"})
	require.ErrorIs(t, cmd.Execute(), assert.AnError)
}
