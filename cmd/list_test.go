package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/felixpackard/testchanged/internal/domain"
	domainmocks "github.com/felixpackard/testchanged/internal/domain/mocks"
)

func TestListCmd_Defaults(t *testing.T) {
	mockWorkflow := domainmocks.NewMockWorkflow(t)

	cmd := newTestRootCmd()
	cmd.AddCommand(newListCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	originalWorkflow := workflow
	workflow = mockWorkflow
	defer func() { workflow = originalWorkflow }()

	mockWorkflow.On("List", mock.Anything, mock.MatchedBy(func(args domain.ListArgs) bool {
		return args.Dir != "" &&
			args.FromRef == "" &&
			args.ToRef == "" &&
			!args.SkipDependents
	})).Return(nil)

	cmd.SetArgs([]string{"list"})
	err := cmd.Execute()
	require.NoError(t, err)

	mockWorkflow.AssertExpectations(t)
}

func TestListCmd_RefRangeAndSkipDependents(t *testing.T) {
	mockWorkflow := domainmocks.NewMockWorkflow(t)

	cmd := newTestRootCmd()
	cmd.AddCommand(newListCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	originalWorkflow := workflow
	workflow = mockWorkflow
	defer func() { workflow = originalWorkflow }()

	mockWorkflow.On("List", mock.Anything, mock.MatchedBy(func(args domain.ListArgs) bool {
		return args.FromRef == "v1.2.0" &&
			args.ToRef == "" &&
			args.SkipDependents
	})).Return(nil)

	cmd.SetArgs([]string{"list", "--from", "v1.2.0", "-s"})
	err := cmd.Execute()
	require.NoError(t, err)

	mockWorkflow.AssertExpectations(t)
}

func TestListCmd_RejectsPositionalArgs(t *testing.T) {
	cmd := newTestRootCmd()
	cmd.AddCommand(newListCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	cmd.SetArgs([]string{"list", "stray"})
	err := cmd.Execute()
	require.Error(t, err)
}

func TestNewListCmd(t *testing.T) {
	cmd := newListCmd()

	assert.Equal(t, "list", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Equal(t, listLongDescription, cmd.Long)
	assert.NotNil(t, cmd.Flags().Lookup("from"))
	assert.NotNil(t, cmd.Flags().Lookup("to"))
	assert.NotNil(t, cmd.Flags().Lookup("skip-dependents"))
}
