package calls

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestICS(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	rec := Record{
		ID:              uuid.MustParse("7f1c2c0e-3b1a-4d7e-9a55-2f0f1b7c9d11"),
		Status:          StatusCompleted,
		TargetName:      "Rubirosa",
		TargetPhone:     "+12125550133",
		Notes:           "Party of 2; window seat, please",
		PartySize:       2,
		ReservationDate: "2024-11-08",
		WindowStart:     "19:00",
		WindowEnd:       "19:30",
	}
	now := time.Date(2024, 11, 6, 20, 0, 0, 0, time.UTC)

	out, err := ICS(rec, loc, now)
	require.NoError(t, err)
	text := string(out)

	assert.True(t, strings.HasPrefix(text, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(text, "END:VCALENDAR\r\n"))
	assert.Contains(t, text, "DTSTART;TZID=America/New_York:20241108T190000\r\n")
	assert.Contains(t, text, "DTEND;TZID=America/New_York:20241108T193000\r\n")
	assert.Contains(t, text, "DTSTAMP:20241106T200000Z\r\n")
	assert.Contains(t, text, "SUMMARY:Reservation at Rubirosa (party of 2)\r\n")
	assert.Contains(t, text, `DESCRIPTION:Party of 2\; window seat\, please`)
	assert.Contains(t, text, "STATUS:CONFIRMED\r\n")
	assert.Contains(t, text, "UID:7f1c2c0e-3b1a-4d7e-9a55-2f0f1b7c9d11@concierge-dialer\r\n")
}

func TestICS_DefaultsAndErrors(t *testing.T) {
	rec := Record{ID: uuid.New(), TargetName: "Carbone", ReservationDate: "2024-11-08", WindowStart: "21:00"}
	out, err := ICS(rec, nil, time.Now())
	require.NoError(t, err)
	assert.Contains(t, string(out), "DTEND;TZID=UTC:20241108T223000")
	assert.Contains(t, string(out), "STATUS:TENTATIVE")

	_, err = ICS(Record{ID: uuid.New()}, time.UTC, time.Now())
	assert.Error(t, err)
}

func TestFoldICS(t *testing.T) {
	line := "DESCRIPTION:" + strings.Repeat("a", 100)
	folded := foldICS(line)
	parts := strings.Split(folded, "\r\n")
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 75)
	assert.True(t, strings.HasPrefix(parts[1], " "))
	assert.Equal(t, line, parts[0]+strings.TrimPrefix(parts[1], " "))
}
