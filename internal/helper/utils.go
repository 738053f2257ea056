package helper

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"document-qa/internal/models"
)

var thinkRe = regexp.MustCompile(models.ThinkTag)

// GenerateUUID creates a random unique UUID string
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %w", err)
	}
	return id.String(), nil
}

// pretty print
func PrettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("Error pretty printing")
		return
	}
	fmt.Println(string(b))
}

// CreateFolder creates path and any missing parents.
func CreateFolder(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("creating folder %s: %w", path, err)
	}
	return nil
}

// StripThinking removes <think> blocks some chat models emit before the answer.
func StripThinking(s string) string {
	return strings.TrimSpace(thinkRe.ReplaceAllString(s, ""))
}

// Highlight marks every occurrence of answer inside context in markdown bold.
func Highlight(context, answer string) string {
	if answer == "" {
		return context
	}
	return strings.ReplaceAll(context, answer, fmt.Sprintf(models.HighlightPattern, answer))
}

// TruncateRunes returns at most n runes of s.
func TruncateRunes(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
