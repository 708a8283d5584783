package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/concierge-dialer/internal/calls"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"iso date", []string{"parse", "date", "--tz", "America/New_York", "on", "2030-05-10"}, "2030-05-10 (Friday, May 10)"},
		{"time range", []string{"parse", "time", "7-8pm"}, "19:00-20:00"},
		{"single time gets default window", []string{"parse", "time", "7pm"}, "19:00-19:30"},
		{"destination phone", []string{"parse", "phone", "their number is (212) 555-0100"}, "+12125550100 (destination)"},
		{"user phone", []string{"parse", "phone", "my cell 555-123-4567"}, "+15551234567 (user)"},
		{"booking intent", []string{"parse", "intent", "let's book Lilia"}, "mode=booking"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestParseCommandsReportMisses(t *testing.T) {
	_, err := execute(t, "", "parse", "phone", "no digits here")
	assert.EqualError(t, err, "no phone number found")

	_, err = execute(t, "", "parse", "date", "--tz", "Mars/Olympus", "friday")
	assert.Error(t, err)
}

func TestChatDryRunDispatches(t *testing.T) {
	brainSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"message":{"role":"assistant","content":"","tool_calls":[
			{"id":"c1","type":"function","function":{"name":"upsert_request_slots","arguments":"{\"restaurantName\":\"Via Carota\",\"partySize\":2,\"date\":\"2030-05-10\",\"timeWindowStart\":\"19:00\"}"}},
			{"id":"c2","type":"function","function":{"name":"start_request","arguments":"{}"}}
		]}}`))
	}))
	defer brainSrv.Close()
	t.Setenv("BRAIN_URL", brainSrv.URL)
	t.Setenv("KNOWN_BUSINESSES_FILE", "")

	out, err := execute(t, "book Via Carota, my number is 555-123-4567\nexit\n", "chat", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "[dry-run] would place call:")
	assert.Contains(t, out, `"targetPhone": "+12125550100"`)
	assert.Contains(t, out, "Calling Via Carota now")
	assert.Contains(t, out, "[call dispatched in")
}

func TestChatRequiresBrainURL(t *testing.T) {
	t.Setenv("BRAIN_URL", "")
	_, err := execute(t, "", "chat", "--dry-run")
	assert.EqualError(t, err, "BRAIN_URL is required")
}

func TestPrintCalls(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	require.NoError(t, printCalls(cmd, nil))
	assert.Equal(t, "no calls yet\n", out.String())

	out.Reset()
	id := uuid.New()
	require.NoError(t, printCalls(cmd, []calls.Record{{
		ID:              id,
		Status:          calls.StatusCompleted,
		TargetName:      "Carbone",
		TargetPhone:     "+12125550122",
		PartySize:       4,
		ReservationDate: "2030-05-10",
		WindowStart:     "21:00",
		CreatedAt:       time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC),
	}}))
	text := out.String()
	assert.Contains(t, text, "STATUS")
	assert.Contains(t, text, "completed")
	assert.Contains(t, text, "2030-05-10 21:00")
	assert.Contains(t, text, id.String())
}
