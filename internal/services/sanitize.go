package services

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer strips markup from user supplied text. Output is plain text,
// so entities produced by the policy are decoded again before storage.
type TextSanitizer struct {
	policy *bluemonday.Policy
}

func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *TextSanitizer) Clean(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(input)))
}

// CleanPtr cleans an optional value and maps an empty result to nil.
func (s *TextSanitizer) CleanPtr(input *string) *string {
	if input == nil {
		return nil
	}
	cleaned := s.Clean(*input)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
