package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodFlags(t *testing.T) {
	now := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		args      []string
		wantMonth int
		wantYear  int
		wantErr   bool
	}{
		{name: "defaults to current month", wantMonth: 4, wantYear: 2024},
		{name: "explicit january", args: []string{"--month", "0", "--year", "2023"}, wantMonth: 0, wantYear: 2023},
		{name: "month out of range", args: []string{"--month", "12"}, wantErr: true},
		{name: "negative year", args: []string{"--year", "-3"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test"}
			addPeriodFlags(cmd)
			require.NoError(t, cmd.ParseFlags(tt.args))

			month, year, err := periodFlags(cmd, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMonth, month)
			assert.Equal(t, tt.wantYear, year)
		})
	}
}

func TestCategoriesCommand(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "error")

	cmd := categoriesCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--owner", "alice", "--kind", "income"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Name")
	assert.Contains(t, out.String(), "income")
	assert.NotContains(t, out.String(), "expense")
}

func TestCategoriesCommandRejectsKind(t *testing.T) {
	cmd := categoriesCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--owner", "alice", "--kind", "transfer"})
	assert.Error(t, cmd.Execute())
}

func TestSummaryCommandRequiresOwner(t *testing.T) {
	cmd := summaryCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}

func TestSummaryCommand(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "error")

	cmd := summaryCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--owner", "alice", "--month", "1", "--year", "2024"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "February 2024")
	assert.Contains(t, out.String(), "(nothing recorded)")
}
