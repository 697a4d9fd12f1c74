package agent

import (
	"fmt"
	"strings"
)

// mentionStopWords end a mention when they appear as a standalone word after
// a space. They keep prose like "look at @notes.txt for details" from
// swallowing the trailing words into the path.
var mentionStopWords = map[string]bool{
	"and": true, "or": true, "is": true, "the": true, "a": true,
	"for": true, "to": true, "in": true, "on": true, "with": true,
	"by": true, "then": true,
}

func isMentionChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '.', c == '-', c == ' ', c == '/', c == '\\', c == ':':
		return true
	}
	return false
}

// ExtractFileMentions returns the file paths referenced with @-mentions in
// text, in order of appearance. Paths may contain spaces; a mention ends at
// punctuation, another mention, a stop word, or end of text.
func ExtractFileMentions(text string) []string {
	var mentions []string

	i := 0
	for i < len(text) {
		if text[i] != '@' {
			i++
			continue
		}
		start := i + 1
		j := start
		for j < len(text) && isMentionChar(text[j]) && text[j] != '@' {
			j++
		}
		raw := text[start:j]
		i = j

		path := trimMention(raw)
		if path != "" {
			mentions = append(mentions, path)
		}
	}
	return mentions
}

// trimMention cuts a raw mention run at the first standalone stop word and
// strips surrounding whitespace.
func trimMention(raw string) string {
	words := strings.Split(raw, " ")
	kept := words[:0]
	for n, word := range words {
		// The first word is always path material; stop words only terminate
		// once a candidate path exists.
		if n > 0 && mentionStopWords[strings.ToLower(word)] {
			break
		}
		kept = append(kept, word)
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

// ExpandFileMentions inlines the contents of @-mentioned files into a task
// string so the model sees them without a read_file round trip. Unreadable
// mentions are skipped. The returned paths are those successfully inlined.
func ExpandFileMentions(task string, ws Workspace) (string, []string) {
	mentions := ExtractFileMentions(task)
	if len(mentions) == 0 {
		return task, nil
	}

	var sb strings.Builder
	sb.WriteString(task)
	var inlined []string
	for _, path := range mentions {
		content, err := ws.ReadFile(path)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "\n\nContents of %s:\n%s", path, content)
		inlined = append(inlined, path)
	}
	return sb.String(), inlined
}
