package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ELIG_DB", "")
	t.Setenv("ELIG_API_MOCK", "")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestImportSizesDryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sizes.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"naics,title,basis,threshold,unit,effective_fy\n"+
			"541511,Custom Computer Programming Services,receipts,34500000,USD,2025\n"+
			"336611,Ship Building and Repairing,employees,1300,employees,2025\n"), 0o600))

	out, err := execute(t, "import-sizes", "--dry-run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2 valid rows")
}

func TestImportSizesRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sizes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := execute(t, "import-sizes", "--dry-run", path)
	require.Error(t, err)
}

func TestImportSizesNeedsDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sizes.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"naics,title,basis,threshold,unit,effective_fy\n541511,,receipts,34500000,USD,2025\n"), 0o600))

	_, err := execute(t, "import-sizes", path)
	assert.ErrorIs(t, err, errNoDatabase)
}

func TestEvaluateMock(t *testing.T) {
	out, err := execute(t, "evaluate", "--mock",
		"--uei", "ABC123DEF456",
		"--naics", "541511",
		"--basis-kind", "receipts",
		"--basis-value", "12000000",
	)
	require.NoError(t, err)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, true, view["eligible"])
	assert.NotEmpty(t, view["audit_record_id"])
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	tests := map[string][]string{
		"no identifier":   {"evaluate", "--mock", "--naics", "541511"},
		"malformed naics": {"evaluate", "--mock", "--uei", "ABC123DEF456", "--naics", "5415"},
		"bad basis value": {"evaluate", "--mock", "--uei", "ABC123DEF456", "--naics", "541511", "--basis-kind", "receipts", "--basis-value", "lots"},
		"missing naics":   {"evaluate", "--mock", "--uei", "ABC123DEF456"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestJobShowNeedsDatabase(t *testing.T) {
	_, err := execute(t, "job", "show", "7d0e4c1e-6a2b-4f59-9d8e-0f3c2b1a4d5e")
	assert.ErrorIs(t, err, errNoDatabase)

	_, err = execute(t, "job", "show", "not-a-uuid")
	assert.Error(t, err)
}
