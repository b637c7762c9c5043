package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator() *FileValidator {
	return NewFileValidator(slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func TestFileValidator_ValidateDatasetFile(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantExt       string
		errorContains string
	}{
		{
			name: "csv file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "Online Sales Data.csv")
				require.NoError(t, os.WriteFile(path, []byte("Date\n"), 0644))
				return path
			},
			wantExt: ".csv",
		},
		{
			name: "upper case xlsx extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "sales.XLSX")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				return path
			},
			wantExt: ".xlsx",
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.csv")
			},
			errorContains: "does not exist",
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			errorContains: "is a directory",
		},
		{
			name: "unsupported extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "sales.json")
				require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
				return path
			},
			errorContains: "not a CSV or XLSX",
		},
		{
			name: "excel lock file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "~$sales.xlsx")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				return path
			},
			errorContains: "temporary Excel file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := newValidator().ValidateDatasetFile(tt.setupFunc(t))
			if tt.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports", "2024")

	require.NoError(t, newValidator().ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewFileValidatorNilLogger(t *testing.T) {
	assert.NotNil(t, NewFileValidator(nil).logger)
}
