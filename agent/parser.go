package agent

import "strings"

// SegmentKind discriminates between segment types.
type SegmentKind string

const (
	SegmentText       SegmentKind = "text"
	SegmentInvocation SegmentKind = "invocation"
)

// Invocation is a structured tool request extracted from model output.
// Start and End delimit the byte span of the block in the source text.
// Partial marks a block whose end marker was missing at end-of-text
// (truncated model output).
type Invocation struct {
	Name    string
	Params  *Params
	Start   int
	End     int
	Partial bool
}

// Segment is one unit of parsed model output, in source order.
type Segment struct {
	Kind       SegmentKind
	Text       string
	Invocation *Invocation
}

// TextSegment creates a text Segment.
func TextSegment(text string) Segment {
	return Segment{Kind: SegmentText, Text: text}
}

// InvocationSegment wraps an Invocation in a Segment.
func InvocationSegment(inv *Invocation) Segment {
	return Segment{Kind: SegmentInvocation, Invocation: inv}
}

// Parser converts raw model output into a Segment sequence. It recognizes
// only the tool names present in its registry; everything else, including
// tags that merely look like markup, passes through as text. Parsing is a
// pure function of the input text and the registry contents.
type Parser struct {
	registry *ToolRegistry
}

// NewParser creates a Parser over the given registry.
func NewParser(registry *ToolRegistry) *Parser {
	return &Parser{registry: registry}
}

// Parse scans text into an ordered Segment sequence.
//
// Tolerance rules: an invocation whose end marker never appears swallows the
// remainder of the text as its content and is flagged Partial; a new known
// start marker appearing before the open block's end marker closes the open
// block implicitly at that position; unknown marker names are plain text.
func (p *Parser) Parse(text string) []Segment {
	var segments []Segment

	names := p.registry.Names()
	i := 0
	textStart := 0

	for i < len(text) {
		lt := strings.IndexByte(text[i:], '<')
		if lt == -1 {
			break
		}
		lt += i

		gt := strings.IndexByte(text[lt:], '>')
		if gt == -1 {
			// No tag close before end-of-text: the rest is plain text.
			break
		}
		gt += lt

		tag := text[lt+1 : gt]
		spec := p.registry.Lookup(tag)
		if spec == nil {
			// Closing tags, prose mentions, and unknown names stay in the
			// current text run.
			i = gt + 1
			continue
		}

		if lt > textStart {
			segments = appendText(segments, text[textStart:lt])
		}

		contentStart := gt + 1
		closeMarker := "</" + tag + ">"

		innerEnd := -1
		resume := len(text)
		partial := false

		if pos := strings.Index(text[contentStart:], closeMarker); pos != -1 {
			innerEnd = contentStart + pos
			resume = innerEnd + len(closeMarker)
		}

		// A new invocation block starting before this one's end marker closes
		// this one implicitly at that position.
		if next := nextStartMarker(text, contentStart, names); next != -1 && (innerEnd == -1 || next < innerEnd) {
			innerEnd = next
			resume = next
		}

		if innerEnd == -1 {
			innerEnd = len(text)
			resume = len(text)
			partial = true
		}

		inner := text[contentStart:innerEnd]
		inv := &Invocation{
			Name:    tag,
			Params:  extractParams(inner, spec),
			Start:   lt,
			End:     resume,
			Partial: partial,
		}
		if partial {
			inv.End = len(text)
		}
		segments = append(segments, InvocationSegment(inv))

		i = resume
		textStart = resume
	}

	if textStart < len(text) {
		segments = appendText(segments, text[textStart:])
	}

	// Marker-free input round-trips as a single verbatim text segment.
	if len(segments) == 0 && len(text) > 0 {
		segments = append(segments, TextSegment(text))
	}
	return segments
}

// appendText emits a text segment verbatim, skipping whitespace-only runs
// between blocks.
func appendText(segments []Segment, text string) []Segment {
	if strings.TrimSpace(text) == "" {
		return segments
	}
	return append(segments, TextSegment(text))
}

// nextStartMarker returns the earliest position >= from of any known start
// marker, or -1.
func nextStartMarker(text string, from int, names []string) int {
	earliest := -1
	for _, name := range names {
		pos := strings.Index(text[from:], "<"+name+">")
		if pos == -1 {
			continue
		}
		abs := from + pos
		if earliest == -1 || abs < earliest {
			earliest = abs
		}
	}
	return earliest
}

// extractParams pulls the tool's declared parameter blocks out of an
// invocation body, ordered by their appearance in the text.
func extractParams(inner string, spec *ToolSpec) *Params {
	type found struct {
		name  string
		value string
		pos   int
	}
	var hits []found

	for _, param := range spec.Params {
		marker := "<" + param.Name + ">"
		pos := strings.Index(inner, marker)
		if pos == -1 {
			continue
		}
		value := extractParamValue(inner, pos+len(marker), param.Name)
		hits = append(hits, found{name: param.Name, value: value, pos: pos})
	}

	// Insertion sort by position keeps appearance order; parameter counts
	// are tiny.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	params := NewParams()
	for _, h := range hits {
		params.Set(h.name, h.value)
	}
	return params
}

// extractParamValue returns the trimmed literal text of a parameter block.
// No entity decoding is performed: values are the raw inner text, which is a
// documented limitation of the wire format. A missing end marker swallows
// the rest of the body.
func extractParamValue(inner string, valueStart int, name string) string {
	end := strings.Index(inner[valueStart:], "</"+name+">")
	if end == -1 {
		return strings.TrimSpace(inner[valueStart:])
	}
	return strings.TrimSpace(inner[valueStart : valueStart+end])
}

// FirstInvocation returns the first invocation segment and the number of
// additional invocations present. Only the first invocation in a reply is
// acted upon; the rest are discarded with a warning.
func FirstInvocation(segments []Segment) (*Invocation, int) {
	var first *Invocation
	extras := 0
	for _, seg := range segments {
		if seg.Kind != SegmentInvocation {
			continue
		}
		if first == nil {
			first = seg.Invocation
		} else {
			extras++
		}
	}
	return first, extras
}

// PlainText concatenates the text segments of a parsed reply.
func PlainText(segments []Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		if seg.Kind == SegmentText {
			sb.WriteString(seg.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
