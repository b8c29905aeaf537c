// Package validator holds the content policy applied to chat messages before
// they are persisted and relayed: a length cap, spam heuristics, and a
// whitelist of Unicode categories. URLs are shielded from the other rules.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MaxMessageLength is the hard cap on message length in runes.
const MaxMessageLength = 1000

const (
	maxCharRepeats = 5
	maxWordRepeats = 3
	maxDiacritics  = 10
)

var (
	ErrEmptyMessage      = errors.New("message must not be empty")
	ErrMessageTooLong    = fmt.Errorf("message must not exceed %d characters", MaxMessageLength)
	ErrRepeatedChars     = errors.New("message contains too many repeated characters")
	ErrRepeatedWords     = errors.New("message contains too many consecutively repeated words")
	ErrTooManyDiacritics = errors.New("message contains too many combining marks")
	ErrInvalidChars      = errors.New("message contains invalid characters")
)

// urlRegex detects URLs (including @-prefixed ones) so they can be protected
// from the character rules.
var urlRegex = regexp.MustCompile(`(?i)@?https?://\S+`)

// allowedCategories are the Unicode categories a message may contain:
// letters, numbers, punctuation, spaces, symbols and combining marks.
var allowedCategories = []*unicode.RangeTable{
	unicode.L, unicode.N, unicode.P, unicode.Zs, unicode.So, unicode.Mn, unicode.Mc,
}

func isAllowedRune(r rune) bool {
	return unicode.In(r, allowedCategories...)
}

func isCombiningMark(r rune) bool {
	return unicode.In(r, unicode.Mn, unicode.Me)
}

// hasExcessiveRepeats reports whether any rune repeats more than max times
// in a row. Go's RE2 has no backreferences, so this is a plain rune scan.
func hasExcessiveRepeats(text string, max int) bool {
	var prev rune
	count := 0
	for _, r := range text {
		if r == prev {
			count++
			if count > max {
				return true
			}
		} else {
			prev = r
			count = 1
		}
	}
	return false
}

// hasRepeatedWords reports whether any word repeats more than max times in a
// row (case-insensitive).
func hasRepeatedWords(text string, max int) bool {
	words := strings.Fields(strings.ToLower(text))
	current := ""
	count := 1
	for _, w := range words {
		if w == current {
			count++
			if count > max {
				return true
			}
		} else {
			current = w
			count = 1
		}
	}
	return false
}

// hasExcessiveDiacritics reports whether the text contains a run of limit or
// more combining marks, a common zalgo-spam pattern.
func hasExcessiveDiacritics(text string, limit int) bool {
	run := 0
	for _, r := range text {
		if isCombiningMark(r) {
			run++
			if run >= limit {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// extractURLs replaces every URL with a placeholder so the remaining rules
// only see non-URL text. restoreURLs reverses the substitution.
func extractURLs(message string) (string, []string) {
	var urls []string
	processed := urlRegex.ReplaceAllStringFunc(message, func(match string) string {
		urls = append(urls, match)
		return fmt.Sprintf("[URL_%d]", len(urls)-1)
	})
	return processed, urls
}

func restoreURLs(processed string, urls []string) string {
	for i, u := range urls {
		processed = strings.Replace(processed, fmt.Sprintf("[URL_%d]", i), u, 1)
	}
	return processed
}

// Validate checks the message against the content policy and returns the
// first violated rule, or nil if the message is acceptable.
func Validate(message string) error {
	if len([]rune(message)) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}

	processed, _ := extractURLs(message)

	if hasExcessiveRepeats(processed, maxCharRepeats) {
		return ErrRepeatedChars
	}
	if hasRepeatedWords(processed, maxWordRepeats) {
		return ErrRepeatedWords
	}
	if hasExcessiveDiacritics(processed, maxDiacritics) {
		return ErrTooManyDiacritics
	}
	for _, r := range processed {
		if !isAllowedRune(r) {
			return ErrInvalidChars
		}
	}
	return nil
}

// IsValid is the boolean form of Validate.
func IsValid(message string) bool {
	return Validate(message) == nil
}

// Sanitize produces a safe rendition of the message: truncated to the length
// cap, stripped of disallowed runes, with character runs collapsed to the
// repeat limit. URLs pass through untouched.
func Sanitize(message string) string {
	runes := []rune(message)
	if len(runes) > MaxMessageLength {
		runes = runes[:MaxMessageLength]
	}

	processed, urls := extractURLs(string(runes))

	var b strings.Builder
	var prev rune
	run := 0
	for _, r := range processed {
		if !isAllowedRune(r) {
			continue
		}
		if r == prev {
			run++
			if run > maxCharRepeats {
				continue
			}
		} else {
			prev = r
			run = 1
		}
		b.WriteRune(r)
	}

	return strings.TrimSpace(restoreURLs(b.String(), urls))
}
