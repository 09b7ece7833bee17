package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputText(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutputTo("text", &buf)

	out.Print(AuthResult{
		Profile: Profile{
			ID:          "p_1",
			Username:    "alice",
			DisplayName: "Alice",
			Appearance:  Appearance{HatStyle: -1},
		},
		Token:     "tok",
		ExpiresAt: time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC),
	})

	text := buf.String()
	assert.Contains(t, text, "Profile: Alice (p_1)")
	assert.Contains(t, text, "hat=-1")
	assert.Contains(t, text, "Last position: never connected")
	assert.Contains(t, text, "Token: tok")
	assert.Contains(t, text, "Expires: 2024-01-08 12:00:00")
}

func TestOutputOnline(t *testing.T) {
	var buf bytes.Buffer
	NewOutputTo("text", &buf).Print(OnlineResult{
		Count: 1,
		Players: []OnlinePlayer{
			{ID: "c1", DisplayName: "Alice", Position: Position{X: 120, Y: 80}, Facing: "left", IsMoving: true},
		},
	})

	assert.Equal(t, "Online (1):\n  - Alice [c1] at (120, 80) facing left, moving\n", buf.String())
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	NewOutputTo("json", &buf).Print(HealthResult{Status: "ok"})

	var got HealthResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "ok", got.Status)
}
