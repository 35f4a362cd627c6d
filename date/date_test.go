package date

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTime assert that the time() is cannonical and gives comparable times.
func TestTime(t *testing.T) {
	d1 := New(2025, 7, 31)
	d2 := New(2025, 7, 31)

	// Note that usually time.Time are not comparable (there is a pointer for the timezone) this
	// tests also checks that the property remain true
	assert.Equal(t, d1.time(), d2.time(), "same day gives two different time")
}

func TestNewNormalizes(t *testing.T) {
	assert.Equal(t, New(2025, time.March, 1), New(2025, time.February, 29))
	assert.Equal(t, New(2024, time.December, 31), New(2025, time.January, 0))
}

func TestSub(t *testing.T) {
	tests := []struct {
		name string
		from Date
		to   Date
		want int
	}{
		{"same day", New(2025, 1, 1), New(2025, 1, 1), 0},
		{"one year", New(2024, 1, 1), New(2025, 1, 1), 366}, // 2024 is a leap year
		{"non leap year", New(2023, 1, 1), New(2024, 1, 1), 365},
		{"backwards", New(2025, 1, 11), New(2025, 1, 1), -10},
		{"across dst", New(2025, 3, 1), New(2025, 4, 1), 31},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.to.Sub(tt.from))
			assert.Equal(t, tt.from.Add(tt.want), tt.to)
		})
	}
}

func TestParse(t *testing.T) {
	today := Today()
	tests := []struct {
		input    string
		expected Date
		err      bool
	}{
		{"2025-01-15", New(2025, time.January, 15), false},
		{"2025-7-1", New(2025, time.July, 1), false},
		{"invalid-date", Date{}, true},
		{"-30d", today.Add(-30), false},
		{"+31d", today.Add(31), false},
		{"30d", Date{}, true},
		{"0d", today, false},
		{"-2w", today.Add(-14), false},
		{"-1y", New(today.Year()-1, today.Month(), today.Day()), false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRange(t *testing.T) {
	r := Around(New(2025, 6, 15), 30)
	assert.Equal(t, New(2025, 5, 16), r.From)
	assert.Equal(t, New(2025, 7, 15), r.To)
	assert.Equal(t, 61, r.Days())
	assert.True(t, r.Contains(r.From))
	assert.True(t, r.Contains(r.To))
	assert.False(t, r.Contains(r.From.Add(-1)))
	assert.False(t, r.Contains(r.To.Add(1)))
}

func TestJSON(t *testing.T) {
	var got struct {
		On   Date `json:"on"`
		Zero Date `json:"zero"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"on":"2025-7-1","zero":""}`), &got))
	assert.Equal(t, New(2025, 7, 1), got.On)
	assert.True(t, got.Zero.IsZero())

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"on":"2025-07-01","zero":""}`, string(out))
}
