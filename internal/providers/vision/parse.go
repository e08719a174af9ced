package vision

import (
	"encoding/json"
	"errors"
	"strings"

	"charmforge/internal/domain"
)

// ParseDescription recovers a Description from model output. Candidates are
// attempted in order until one parses: the trimmed content as-is, the content
// with a surrounding code fence stripped, the substring between the first '{'
// and the last '}', and the substring between the first '[' and the last ']'.
func ParseDescription(raw string) (domain.Description, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return domain.Description{}, errors.New("empty payload")
	}
	for _, candidate := range candidates(text) {
		var desc domain.Description
		if err := json.Unmarshal([]byte(candidate), &desc); err == nil {
			return desc, nil
		}
		// An array payload wraps the object; take the first element.
		var list []domain.Description
		if err := json.Unmarshal([]byte(candidate), &list); err == nil && len(list) > 0 {
			return list[0], nil
		}
	}
	return domain.Description{}, errors.New("no parseable json payload")
}

func candidates(text string) []string {
	out := []string{text}
	if fenced := trimCodeFence(text); fenced != text && fenced != "" {
		out = append(out, fenced)
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		out = append(out, strings.TrimSpace(text[start:end+1]))
	}
	if start, end := strings.Index(text, "["), strings.LastIndex(text, "]"); start >= 0 && end > start {
		out = append(out, strings.TrimSpace(text[start:end+1]))
	}
	return out
}

// trimCodeFence strips a leading/trailing triple-backtick fence with an
// optional language tag.
func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexAny(trimmed, "\n{["); idx >= 0 && !strings.ContainsAny(trimmed[:idx], "{[") {
		trimmed = trimmed[idx:]
	}
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
