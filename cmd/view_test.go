package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pragmatic.dev/pkg/pragmatic/internal/domain"
	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

func TestViewCmd_UsesRootOutputFlagByDefault(t *testing.T) {
	wf := newMockWorkflow(t)
	useWorkflow(t, wf)

	cmd := newTestRootCmd(t)
	cmd.AddCommand(newViewCmd())

	wf.On("View", mock.Anything, mock.MatchedBy(func(args domain.ViewArgs) bool {
		return args.Reports == m.Path(".pragmatic-reports")
	})).Return(nil)

	cmd.SetArgs([]string{"view"})
	require.NoError(t, cmd.Execute())
}

func TestViewCmd_RootOutputFlagIsPassedThrough(t *testing.T) {
	wf := newMockWorkflow(t)
	useWorkflow(t, wf)

	cmd := newTestRootCmd(t)
	cmd.AddCommand(newViewCmd())

	wf.On("View", mock.Anything, mock.MatchedBy(func(args domain.ViewArgs) bool {
		return args.Reports == m.Path("./reports-dir")
	})).Return(nil)

	cmd.SetArgs([]string{"view", "--output", "./reports-dir"})
	require.NoError(t, cmd.Execute())
}

func TestViewCmd_PositionalArgsAreRejected(t *testing.T) {
	wf := newMockWorkflow(t)
	useWorkflow(t, wf)

	cmd := newTestRootCmd(t)
	cmd.AddCommand(newViewCmd())
	cmd.SetOut(&bytes.Buffer{})

	cmd.SetArgs([]string{"view", "./custom-reports"})
	require.Error(t, cmd.Execute())
}
