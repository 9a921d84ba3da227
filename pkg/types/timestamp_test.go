package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
)

func TestParseTimestampFallbacks(t *testing.T) {
	want := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	cases := map[string]time.Time{
		"2026-01-15T10:30:00.000Z":   want,
		"2026-01-15T10:30:00Z":       want,
		"2026-01-15T12:30:00+02:00":  want,
		"2026-01-15T10:30:00.123456": want.Add(123456 * time.Microsecond),
		"2026-01-15T10:30:00":        want,
		"2026-01-15 10:30:00":        want,
		" 2026-01-15T10:30:00.5Z ":   want.Add(500 * time.Millisecond),
	}
	for input, expected := range cases {
		got, err := ParseTimestamp(input)
		require.NoError(t, err, "input %q", input)
		assert.True(t, expected.Equal(got), "input %q: got %s", input, got)
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "yesterday", "2026-13-45T00:00:00Z"} {
		_, err := ParseTimestamp(input)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDecode), "input %q", input)
	}
}

func TestTimestampJSON(t *testing.T) {
	var payload struct {
		At      Timestamp  `json:"at"`
		Maybe   *Timestamp `json:"maybe"`
		Missing Timestamp  `json:"missing"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"at":"2026-01-15T10:30:00","maybe":null,"missing":null}`), &payload))
	assert.Equal(t, 2026, payload.At.Year())
	assert.Nil(t, payload.Maybe)
	assert.True(t, payload.Missing.IsZero())

	out, err := json.Marshal(payload.At)
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-01-15T10:30:00Z"`, string(out))

	err = json.Unmarshal([]byte(`{"at":"not a date"}`), &payload)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDecode))

	err = json.Unmarshal([]byte(`{"at":12}`), &payload)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDecode))
}
