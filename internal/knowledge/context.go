package knowledge

import (
	"fmt"
	"strings"

	"github.com/monetizerai/creatorchat/internal/core"
)

// MinContextLength is the floor below which assembled context counts as "no
// usable knowledge", independent of what the relevance gate decided.
const MinContextLength = 10

// BuildContext flattens retrieved entries into the prompt text block.
// Entries are rendered in retrieval order and joined by blank lines.
func BuildContext(result core.SearchResult) string {
	if result.Empty() {
		return ""
	}

	parts := make([]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		parts = append(parts, formatEntry(e))
	}
	return strings.Join(parts, "\n\n")
}

// UsableContext reports whether the assembled text can ground an answer.
func UsableContext(context string) bool {
	return len(strings.TrimSpace(context)) >= MinContextLength
}

func formatEntry(e core.KnowledgeEntry) string {
	body := firstNonEmpty(e.Content, e.Description, e.Transcript)
	source := sourceLabel(e)

	switch {
	case e.Title != "":
		return fmt.Sprintf("Video: %s\n%s", e.Title, body)
	case source != "":
		return fmt.Sprintf("Source: %s\nContent: %s", source, body)
	default:
		return body
	}
}

// sourceLabel prefers the metadata source, then the row's own source
// column, then the title.
func sourceLabel(e core.KnowledgeEntry) string {
	if e.Metadata != nil {
		if v, ok := e.Metadata["source"].(string); ok && v != "" {
			return v
		}
	}
	return firstNonEmpty(e.Source, e.Title)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
