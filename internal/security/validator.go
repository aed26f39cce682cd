package security

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"skillswap/internal/config"
)

// ErrInvalidInput is wrapped by every validation failure.
var ErrInvalidInput = errors.New("invalid input")

const (
	MinRating = 1
	MaxRating = 5
)

// Spam heuristics only look at messages at least this long.
const (
	spamMinChars = 200
	spamMinWords = 30
)

// InputValidator checks user-supplied text. Accepted text is returned as
// sent, minus surrounding whitespace; escaping is left to whoever renders it.
type InputValidator struct {
	config *config.ServerConfig
}

// NewInputValidator creates a new input validator
func NewInputValidator(config *config.ServerConfig) *InputValidator {
	return &InputValidator{
		config: config,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ValidateMessage validates chat message text
func (v *InputValidator) ValidateMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", invalid("message cannot be empty")
	}

	if utf8.RuneCountInString(message) > v.config.MaxMessageLength {
		return "", invalid("message too long (max %d characters)", v.config.MaxMessageLength)
	}

	if isSpamMessage(message) {
		return "", invalid("message appears to be spam")
	}

	return message, nil
}

// ValidateComment validates review comment text. An empty comment is
// allowed; moderation treats it as unusable and hides it.
func (v *InputValidator) ValidateComment(comment string) (string, error) {
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > v.config.MaxCommentLength {
		return "", invalid("comment too long (max %d characters)", v.config.MaxCommentLength)
	}
	return comment, nil
}

// ValidateRating checks a review rating is on the 1–5 scale.
func (v *InputValidator) ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return invalid("rating must be between %d and %d", MinRating, MaxRating)
	}
	return nil
}

// isSpamMessage checks if a message appears to be spam
func isSpamMessage(message string) bool {
	// excessive repeated characters
	if length := utf8.RuneCountInString(message); length >= spamMinChars {
		charCount := make(map[rune]int)
		for _, char := range message {
			if char == ' ' {
				continue
			}
			charCount[char]++
			if charCount[char] > length/2 {
				return true
			}
		}
	}

	// excessive repeated words
	words := strings.Fields(message)
	if len(words) >= spamMinWords {
		wordCount := make(map[string]int)
		for _, word := range words {
			lower := strings.ToLower(word)
			wordCount[lower]++
			if wordCount[lower] > len(words)/2 {
				return true
			}
		}
	}

	return false
}
