package naturaldate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTo24h(t *testing.T) {
	tests := map[string]string{
		"7pm":                "19:00",
		"7:30 pm":            "19:30",
		"at 7 p.m.":          "19:00",
		"7p":                 "19:00",
		"8am sharp":          "08:00",
		"12am":               "00:00",
		"12pm":               "12:00",
		"12:15 AM":           "00:15",
		"19:00":              "19:00",
		"7:30":               "07:30",
		"2024-11-05T19:00":   "19:00",
		"noon":               "12:00",
		"around midnight":    "00:00",
		"party of 7 a table": "",
		"13pm":               "",
		"no time here":       "",
		"":                   "",
	}
	for input, want := range tests {
		assert.Equal(t, want, To24h(input), input)
	}
}

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		input     string
		wantStart string
		wantEnd   string
		wantOK    bool
	}{
		{"7-9pm", "19:00", "21:00", true},
		{"7pm to 8:30pm", "19:00", "20:30", true},
		{"between 6 and 7pm", "18:00", "19:00", true},
		{"11-1pm", "11:00", "13:00", true},
		{"11-12pm", "11:00", "12:00", true},
		{"9am until 11am", "09:00", "11:00", true},
		{"party of 2 to 3 people", "", "", false},
		{"9pm-7pm", "", "", false},
	}
	for _, tt := range tests {
		start, end, ok := ParseTimeRange(tt.input)
		assert.Equal(t, tt.wantOK, ok, tt.input)
		assert.Equal(t, tt.wantStart, start, tt.input)
		assert.Equal(t, tt.wantEnd, end, tt.input)
	}
}

func TestAddMinutes(t *testing.T) {
	assert.Equal(t, "19:30", AddMinutes("19:00", 30))
	assert.Equal(t, "00:15", AddMinutes("23:45", 30))
	assert.Equal(t, "23:30", AddMinutes("00:00", -30))
	assert.Equal(t, "", AddMinutes("7pm", 30))
}

func TestIsHHMM(t *testing.T) {
	assert.True(t, IsHHMM("00:00"))
	assert.True(t, IsHHMM("23:59"))
	assert.False(t, IsHHMM("7:30"))
	assert.False(t, IsHHMM("24:00"))
	assert.False(t, IsHHMM("19:60"))
}

func TestPrettyFormatting(t *testing.T) {
	assert.Equal(t, "7:30 PM", PrettyTime("19:30"))
	assert.Equal(t, "12:00 AM", PrettyTime("00:00"))
	assert.Equal(t, "bogus", PrettyTime("bogus"))
	assert.Equal(t, "Tuesday, November 5", PrettyDate("2024-11-05"))
	assert.Equal(t, "7:00 PM - 7:30 PM", PrettyRange("19:00", "19:30"))
	assert.Equal(t, "7:00 PM", PrettyRange("19:00", ""))
	assert.Equal(t, "", PrettyRange("", ""))
}

func TestPrettyTimeRoundTrips(t *testing.T) {
	for _, clock := range []string{"00:00", "00:15", "11:59", "12:00", "12:30", "19:45", "23:59"} {
		assert.Equal(t, clock, To24h(PrettyTime(clock)), clock)
	}
}
