package auth_test

import (
	"testing"
	"time"

	auth "github.com/goliatone/go-restaurant-auth"
	"github.com/stretchr/testify/assert"
)

func TestIsWithinThresholdPeriod(t *testing.T) {
	tests := []struct {
		name          string
		inputTime     time.Time
		thresholdExpr string
		expected      bool
		expectErr     bool
	}{
		{
			name:          "reauthenticated a minute ago",
			inputTime:     time.Now().Add(-1 * time.Minute),
			thresholdExpr: "5m",
			expected:      true,
		},
		{
			name:          "reauthenticated ten minutes ago",
			inputTime:     time.Now().Add(-10 * time.Minute),
			thresholdExpr: "5m",
			expected:      false,
		},
		{
			name:          "at exact threshold",
			inputTime:     time.Now().Add(-5 * time.Minute),
			thresholdExpr: "5m",
			expected:      false,
		},
		{
			name:          "never reauthenticated",
			inputTime:     time.Time{},
			thresholdExpr: "5m",
			expected:      false,
		},
		{
			name:          "invalid threshold expression",
			inputTime:     time.Now(),
			thresholdExpr: "invalid",
			expectErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := auth.IsWithinThresholdPeriod(tt.inputTime, tt.thresholdExpr)

			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestThresholdFunctionsComplementary(t *testing.T) {
	testTimes := []time.Time{
		time.Now().Add(-30 * time.Second),
		time.Now().Add(-2 * time.Hour),
	}

	for _, inputTime := range testTimes {
		within, err1 := auth.IsWithinThresholdPeriod(inputTime, "5m")
		outside, err2 := auth.IsOutsideThresholdPeriod(inputTime, "5m")

		assert.NoError(t, err1)
		assert.NoError(t, err2)
		assert.NotEqual(t, within, outside)
	}
}

func TestIsWithinWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, auth.IsWithinWindow(now.Add(-time.Minute), auth.RecentLoginWindow, now))
	assert.False(t, auth.IsWithinWindow(now.Add(-6*time.Minute), auth.RecentLoginWindow, now))
	assert.False(t, auth.IsWithinWindow(time.Time{}, auth.RecentLoginWindow, now))
}
