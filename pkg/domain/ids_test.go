package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "dim/pkg/domain-errors"
)

// TestParseUUID_Invariants validates that IDs must be valid, non-empty, non-nil UUIDs.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseSessionID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseChallengeID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseSessionID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		raw := uuid.New()
		id, err := ParseSessionID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, SessionID(raw), id)
		assert.False(t, id.IsNil())
	})
}

func TestIDsMarshalAsText(t *testing.T) {
	sid := NewSessionID()
	raw, err := json.Marshal(struct {
		ID SessionID `json:"id"`
	}{sid})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+sid.String()+`"}`, string(raw))

	var out struct {
		ID SessionID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, sid, out.ID)

	var bad struct {
		ID ChallengeID `json:"id"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"id":"nope"}`), &bad))
}
