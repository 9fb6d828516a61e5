package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetrack/api/internal/apperr"
)

func TestParseDayParam(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name  string
		value string
		want  *time.Time
	}{
		{"empty", "", nil},
		{"calendar date", "2024-03-11", ptrTime(time.Date(2024, 3, 11, 0, 0, 0, 0, newYork))},
		{"instant", "2024-03-12T02:00:00Z", ptrTime(time.Date(2024, 3, 12, 2, 0, 0, 0, time.UTC))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDayParam("date", tt.value, newYork)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
		})
	}

	_, err = parseDayParam("date", "11/03/2024", newYork)
	require.Error(t, err)
	assert.Equal(t, "date", apperr.As(err).Fields[0].Field)
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
