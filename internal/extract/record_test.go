package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowFromCells(t *testing.T) {
	full := []string{
		" C-99 ", "2025-01-10 14:02", "Acme Ltd", "ACC-1", " 123456789 ",
		"0123 456 789", "ops@acme.example", "Cancellation", "Captured",
	}

	t.Run("well-formed row", func(t *testing.T) {
		rec, ok := RowFromCells(full, 2)
		require.True(t, ok)
		assert.Equal(t, "C-99", rec.ID)
		assert.Equal(t, "2025-01-10 14:02", rec.DateTime)
		assert.Equal(t, "Acme Ltd", rec.CustomerName)
		assert.Equal(t, "123456789", rec.TargetID)
		assert.Equal(t, "Cancellation", rec.RecordType)
		assert.Equal(t, 2, rec.RowIndex)
		assert.True(t, rec.IsCancellation)
		assert.True(t, rec.IsCaptured)
	})

	t.Run("short row dropped", func(t *testing.T) {
		_, ok := RowFromCells(full[:ExpectedColumns-1], 0)
		assert.False(t, ok)
	})

	t.Run("empty row dropped", func(t *testing.T) {
		_, ok := RowFromCells(nil, 0)
		assert.False(t, ok)
	})

	t.Run("extra columns tolerated", func(t *testing.T) {
		rec, ok := RowFromCells(append(append([]string{}, full...), "spare"), 0)
		require.True(t, ok)
		assert.Equal(t, "C-99", rec.ID)
	})
}

func TestRowFlagsAreCaseInsensitive(t *testing.T) {
	tests := []struct {
		name           string
		recordType     string
		upgradeFlag    string
		isCancellation bool
		isCaptured     bool
	}{
		{"canonical casing", "Cancellation", "Captured", true, true},
		{"upper", "CANCELLATION", "CAPTURED", true, true},
		{"lower", "cancellation", "captured", true, true},
		{"decorated", "Cease Cancellation (auto)", "captured [2025]", true, true},
		{"neither", "Provisioning", "Pending", false, false},
		{"empty", "", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := []string{"1", "d", "n", "a", "c", "p", "e", tt.recordType, tt.upgradeFlag}
			rec, ok := RowFromCells(cells, 0)
			require.True(t, ok)
			assert.Equal(t, tt.isCancellation, rec.IsCancellation)
			assert.Equal(t, tt.isCaptured, rec.IsCaptured)
		})
	}
}

func TestIsDefaultExpiry(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"-", true},
		{"31/12/9999", true},
		{"9999-12-31", true},
		{"  31/12/9999  ", true},
		{"31/03/2026", false},
		{"2026-03-31", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsDefaultExpiry(tt.value), "value %q", tt.value)
	}
}
