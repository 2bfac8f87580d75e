package verify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singhkkrish/traceit/internal/apperr"
	"github.com/singhkkrish/traceit/internal/model"
)

func TestAccepts(t *testing.T) {
	tests := []struct {
		name            string
		claimed, stored string
		want            bool
	}{
		{"exact", "red case", "red case", true},
		{"typo above threshold", "redcase", "red case", true},
		{"case and whitespace", " ReD Case ", "red case", true},
		{"claimed inside stored", "red", "the phone case is extremely red and scratched", true},
		{"stored inside claimed", "it has a red case with stickers", "red case", true},
		{"too different", "blue case", "red case", false},
		{"below threshold", "blue", "black", false},
		{"unicode fold", "CAFÉ", "café", true},
		{"empty stored", "anything", "", false},
		{"empty claimed", "   ", "red case", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Accepts(tt.claimed, tt.stored))
		})
	}
}

func TestAcceptsAtThreshold(t *testing.T) {
	// 7 of 10 characters kept: exactly the threshold.
	assert.InDelta(t, SimilarityThreshold, Similarity("abcdefgxyz", "abcdefghij"), 1e-9)
	assert.True(t, Accepts("abcdefgxyz", "abcdefghij"))
}

func TestValidateAnswer(t *testing.T) {
	assert.ErrorIs(t, ValidateAnswer(""), apperr.ErrMissingInput)
	assert.ErrorIs(t, ValidateAnswer(" \t\n"), apperr.ErrMissingInput)
	assert.ErrorIs(t, ValidateAnswer(strings.Repeat("a", MaxAnswerLength+1)), apperr.ErrValidation)
	assert.NoError(t, ValidateAnswer(strings.Repeat("a", MaxAnswerLength)))
}

func TestCheck(t *testing.T) {
	secret := &model.FoundItemSecret{
		ItemID:      "f1",
		Answer:      "red case",
		FinderName:  "Finn",
		FinderEmail: "finn@example.com",
		FinderPhone: "555-0199",
	}

	t.Run("accepted uses finder phone", func(t *testing.T) {
		contact, err := Check("redcase", secret)
		require.NoError(t, err)
		assert.Equal(t, "Finn", contact.Name)
		assert.Equal(t, "finn@example.com", contact.Email)
		require.NotNil(t, contact.Phone)
		assert.Equal(t, "555-0199", *contact.Phone)
	})

	t.Run("item phone wins", func(t *testing.T) {
		s := *secret
		s.ItemPhone = "555-0100"
		contact, err := Check("red case", &s)
		require.NoError(t, err)
		require.NotNil(t, contact.Phone)
		assert.Equal(t, "555-0100", *contact.Phone)
	})

	t.Run("no phone is null", func(t *testing.T) {
		s := *secret
		s.FinderPhone = ""
		contact, err := Check("red case", &s)
		require.NoError(t, err)
		assert.Nil(t, contact.Phone)
	})

	t.Run("rejected", func(t *testing.T) {
		contact, err := Check("blue case", secret)
		assert.Nil(t, contact)
		assert.ErrorIs(t, err, apperr.ErrIncorrectAnswer)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("missing answer before lookup", func(t *testing.T) {
		_, err := Check("  ", nil)
		assert.ErrorIs(t, err, apperr.ErrMissingInput)
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := Check("red case", nil)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}
