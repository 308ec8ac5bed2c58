package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "pacto/pkg/domain-errors"
)

// Parsing enforces the "valid, non-empty, non-nil UUID" invariant at trust
// boundaries; direct casting bypasses validation on purpose.
func TestParseUserID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseUserID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(valid), id)
	})
}

func TestParseConsentID(t *testing.T) {
	valid := uuid.New()
	id, err := ParseConsentID(valid.String())
	require.NoError(t, err)
	assert.Equal(t, valid.String(), id.String())

	_, err = ParseConsentID("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestIDJSONRoundTrip(t *testing.T) {
	userID := NewUserID()

	raw, err := json.Marshal(userID)
	require.NoError(t, err)
	assert.Equal(t, `"`+userID.String()+`"`, string(raw))

	var decoded UserID
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, userID, decoded)

	// Invalid text fails the same validation as explicit parsing.
	assert.Error(t, json.Unmarshal([]byte(`"not-a-uuid"`), &decoded))
}

func TestIsNil(t *testing.T) {
	assert.True(t, UserID{}.IsNil())
	assert.False(t, NewUserID().IsNil())
	assert.True(t, ConsentID{}.IsNil())
	assert.False(t, NewConsentID().IsNil())
}
