package distractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	t.Parallel()

	correct := "Article 17 abolishes untouchability"

	testCases := []struct {
		name      string
		candidate string
		accepted  []string
		wantErr   error
	}{
		{
			name:      "acceptable candidate",
			candidate: "Article 14 guarantees equality before law",
		},
		{
			name:      "duplicate of correct answer",
			candidate: "  article 17 ABOLISHES untouchability ",
			wantErr:   ErrDuplicateOfCorrect,
		},
		{
			name:      "duplicate of accepted option",
			candidate: "article 19 protects free speech",
			accepted:  []string{"Article 19 protects free speech"},
			wantErr:   ErrDuplicateOption,
		},
		{
			name:      "too short",
			candidate: "A 21",
			wantErr:   ErrTooShort,
		},
		{
			name:      "too long",
			candidate: strings.Repeat("x", MaxLength+1),
			wantErr:   ErrTooLong,
		},
		{
			name:      "generic absolute standalone",
			candidate: "None of the above",
			wantErr:   ErrGenericAbsolute,
		},
		{
			name:      "generic absolute different casing",
			candidate: "ALL OF THESE",
			wantErr:   ErrGenericAbsolute,
		},
		{
			name:      "garbled digit run",
			candidate: "The act was passed in 182935",
			wantErr:   ErrGarbledNumber,
		},
		{
			name:      "four digit year is fine",
			candidate: "The act was passed in 1935",
		},
		{
			name:      "absolute qualifier",
			candidate: "The President can never dissolve the Lok Sabha",
			wantErr:   ErrAbsoluteQualifier,
		},
		{
			name:      "qualifier inside a word does not trigger",
			candidate: "The Himalayas are geologically young mountains",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := Check(tc.candidate, correct, tc.accepted)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	correct := "Article 17"

	t.Run("keeps order and trims", func(t *testing.T) {
		t.Parallel()
		accepted := Filter([]string{
			"  Article 14 guarantees equality  ",
			"Article 19 protects speech",
		}, correct)
		assert.Equal(t, []string{
			"Article 14 guarantees equality",
			"Article 19 protects speech",
		}, accepted)
	})

	t.Run("drops rejected and duplicate candidates", func(t *testing.T) {
		t.Parallel()
		accepted := Filter([]string{
			"Article 14 guarantees equality",
			"article 14 GUARANTEES equality", // duplicate of the first
			"none of the above",              // generic
			"A 21",                           // too short
			"Article 17",                     // duplicate of correct (and too short anyway)
			"Article 21 protects personal liberty",
		}, correct)
		assert.Equal(t, []string{
			"Article 14 guarantees equality",
			"Article 21 protects personal liberty",
		}, accepted)
	})

	t.Run("empty input yields empty result", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, Filter(nil, correct))
	})
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "article 17", Normalize("  Article 17 "))
	assert.Equal(t, "", Normalize("   "))
}
