package validator_test

import (
	"anonchat/backend/internal/validator"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantErr error
	}{
		{
			name:    "plain message",
			message: "hello there, how are you?",
			wantErr: nil,
		},
		{
			name:    "unicode message",
			message: "Привіт! Як справи? 😀",
			wantErr: nil,
		},
		{
			name:    "empty",
			message: "",
			wantErr: validator.ErrEmptyMessage,
		},
		{
			name:    "whitespace only",
			message: "   ",
			wantErr: validator.ErrEmptyMessage,
		},
		{
			name:    "too long",
			message: strings.Repeat("ab", 501),
			wantErr: validator.ErrMessageTooLong,
		},
		{
			name:    "character run at the limit",
			message: "sooooo good",
			wantErr: nil,
		},
		{
			name:    "character run over the limit",
			message: "soooooo good",
			wantErr: validator.ErrRepeatedChars,
		},
		{
			name:    "word repeated at the limit",
			message: "spam spam spam",
			wantErr: nil,
		},
		{
			name:    "word repeated over the limit",
			message: "spam spam spam spam",
			wantErr: validator.ErrRepeatedWords,
		},
		{
			name:    "word repetition is case-insensitive",
			message: "Spam SPAM spam sPaM",
			wantErr: validator.ErrRepeatedWords,
		},
		{
			name:    "zalgo combining marks",
			message: "h" + strings.Repeat("́̀", 5) + "i",
			wantErr: validator.ErrTooManyDiacritics,
		},
		{
			name:    "control characters",
			message: "hello\x07world",
			wantErr: validator.ErrInvalidChars,
		},
		{
			name:    "url shields its characters from the repeat rule",
			message: "look at https://example.com/aaaaaaaaaa please",
			wantErr: nil,
		},
		{
			name:    "uppercase scheme is still a url",
			message: "look at HTTPS://example.com/aaaaaaaaaa please",
			wantErr: nil,
		},
		{
			name:    "repeats outside the url still count",
			message: "wooooooow https://example.com",
			wantErr: validator.ErrRepeatedChars,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.message)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, validator.IsValid("hello"))
	assert.False(t, validator.IsValid(""))
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{
			name:    "clean message passes through",
			message: "hello there",
			want:    "hello there",
		},
		{
			name:    "surrounding whitespace trimmed",
			message: "  hello  ",
			want:    "hello",
		},
		{
			name:    "character runs collapsed",
			message: "heeeeeeello",
			want:    "heeeeello",
		},
		{
			name:    "disallowed runes stripped",
			message: "hello\x07world",
			want:    "helloworld",
		},
		{
			name:    "url survives untouched",
			message: "see https://example.com/aaaaaaaaaa now",
			want:    "see https://example.com/aaaaaaaaaa now",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validator.Sanitize(tt.message))
		})
	}
}

func TestSanitizeTruncates(t *testing.T) {
	long := strings.Repeat("ab", validator.MaxMessageLength) // twice the cap
	got := validator.Sanitize(long)
	assert.Len(t, []rune(got), validator.MaxMessageLength)
}
