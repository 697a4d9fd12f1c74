package agent

import (
	"reflect"
	"testing"
)

func testRegistry() *ToolRegistry {
	reg := NewToolRegistry()
	reg.Register(ToolSpec{
		Name: "read_file",
		Params: []ParamSpec{
			{Name: "path", Required: true},
		},
	})
	reg.Register(ToolSpec{
		Name: "execute_command",
		Params: []ParamSpec{
			{Name: "command", Required: true},
			{Name: "requires_approval"},
		},
		Approval:      ApprovalFromParam,
		ApprovalParam: "requires_approval",
		Strict:        true,
	})
	reg.Register(ToolSpec{
		Name: "attempt_completion",
		Params: []ParamSpec{
			{Name: "result", Required: true},
		},
	})
	return reg
}

func TestParseTextThenInvocation(t *testing.T) {
	p := NewParser(testRegistry())
	segments := p.Parse("Sure, <read_file><path>a.txt</path></read_file>")

	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segments), segments)
	}
	if segments[0].Kind != SegmentText || segments[0].Text != "Sure, " {
		t.Errorf("expected text segment %q, got %+v", "Sure, ", segments[0])
	}
	if segments[1].Kind != SegmentInvocation {
		t.Fatalf("expected invocation segment, got %+v", segments[1])
	}
	inv := segments[1].Invocation
	if inv.Name != "read_file" {
		t.Errorf("expected tool read_file, got %q", inv.Name)
	}
	if path, ok := inv.Params.Get("path"); !ok || path != "a.txt" {
		t.Errorf("expected path=a.txt, got %q (ok=%v)", path, ok)
	}
	if inv.Partial {
		t.Error("well-formed block must not be partial")
	}
}

func TestParseMarkerFreeTextRoundTrips(t *testing.T) {
	p := NewParser(testRegistry())
	input := "  just some prose, with <angle> brackets </angle> but no tools  "

	segments := p.Parse(input)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Kind != SegmentText || segments[0].Text != input {
		t.Errorf("text must round-trip verbatim, got %q", segments[0].Text)
	}
}

func TestParseEmptyInput(t *testing.T) {
	p := NewParser(testRegistry())
	if segments := p.Parse(""); len(segments) != 0 {
		t.Errorf("expected no segments for empty input, got %d", len(segments))
	}
}

func TestParseIsDeterministic(t *testing.T) {
	p := NewParser(testRegistry())
	input := "a <read_file><path>x</path></read_file> b <read_file><path>y</path></read_file>"

	first := p.Parse(input)
	second := p.Parse(input)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated parses of the same input must be identical")
	}
}

func TestParseUnknownTagsStayText(t *testing.T) {
	p := NewParser(testRegistry())
	segments := p.Parse("<thinking>hmm</thinking> done")

	if len(segments) != 1 || segments[0].Kind != SegmentText {
		t.Fatalf("unknown tags must remain text, got %+v", segments)
	}
	if segments[0].Text != "<thinking>hmm</thinking> done" {
		t.Errorf("unexpected text: %q", segments[0].Text)
	}
}

func TestParseUnterminatedBlockIsPartial(t *testing.T) {
	p := NewParser(testRegistry())
	segments := p.Parse("<read_file><path>a.txt</path> and some trailing prose")

	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d: %+v", len(segments), segments)
	}
	inv := segments[0].Invocation
	if inv == nil || !inv.Partial {
		t.Fatalf("unterminated block must be a partial invocation, got %+v", segments[0])
	}
	if path, _ := inv.Params.Get("path"); path != "a.txt" {
		t.Errorf("expected path=a.txt inside partial block, got %q", path)
	}
	if inv.End != len("<read_file><path>a.txt</path> and some trailing prose") {
		t.Errorf("partial block must swallow the remainder, End=%d", inv.End)
	}
}

func TestParseNewStartMarkerClosesOpenBlock(t *testing.T) {
	p := NewParser(testRegistry())
	segments := p.Parse("<read_file><path>a</path><execute_command><command>ls</command></execute_command>")

	if len(segments) != 2 {
		t.Fatalf("expected 2 invocations, got %d: %+v", len(segments), segments)
	}
	first := segments[0].Invocation
	if first == nil || first.Name != "read_file" {
		t.Fatalf("expected read_file first, got %+v", segments[0])
	}
	if first.Partial {
		t.Error("implicitly closed block must not be partial")
	}
	second := segments[1].Invocation
	if second == nil || second.Name != "execute_command" {
		t.Fatalf("expected execute_command second, got %+v", segments[1])
	}
	if cmd, _ := second.Params.Get("command"); cmd != "ls" {
		t.Errorf("expected command=ls, got %q", cmd)
	}
}

func TestParseSkipsWhitespaceBetweenBlocks(t *testing.T) {
	p := NewParser(testRegistry())
	segments := p.Parse("<read_file><path>a</path></read_file>\n\n<read_file><path>b</path></read_file>")

	if len(segments) != 2 {
		t.Fatalf("whitespace-only runs must be skipped, got %d segments", len(segments))
	}
	for _, seg := range segments {
		if seg.Kind != SegmentInvocation {
			t.Errorf("expected only invocations, got %+v", seg)
		}
	}
}

func TestParseNoEntityDecoding(t *testing.T) {
	p := NewParser(testRegistry())
	segments := p.Parse("<execute_command><command>echo a &amp;&amp; echo b</command></execute_command>")

	inv := segments[0].Invocation
	if cmd, _ := inv.Params.Get("command"); cmd != "echo a &amp;&amp; echo b" {
		t.Errorf("parameter values are raw inner text, got %q", cmd)
	}
}

func TestParseParamsOrderedByAppearance(t *testing.T) {
	p := NewParser(testRegistry())
	segments := p.Parse("<execute_command><requires_approval>true</requires_approval><command>rm x</command></execute_command>")

	inv := segments[0].Invocation
	var order []string
	for pair := inv.Params.Oldest(); pair != nil; pair = pair.Next() {
		order = append(order, pair.Key)
	}
	want := []string{"requires_approval", "command"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected appearance order %v, got %v", want, order)
	}
}

func TestParseTrimsParamValues(t *testing.T) {
	p := NewParser(testRegistry())
	segments := p.Parse("<read_file><path>\n  a.txt\n</path></read_file>")

	inv := segments[0].Invocation
	if path, _ := inv.Params.Get("path"); path != "a.txt" {
		t.Errorf("parameter values must be trimmed, got %q", path)
	}
}

func TestFirstInvocationDiscardsExtras(t *testing.T) {
	p := NewParser(testRegistry())
	segments := p.Parse("<read_file><path>a</path></read_file> then <read_file><path>b</path></read_file>")

	inv, extras := FirstInvocation(segments)
	if inv == nil {
		t.Fatal("expected an invocation")
	}
	if path, _ := inv.Params.Get("path"); path != "a" {
		t.Errorf("expected the first invocation, got path=%q", path)
	}
	if extras != 1 {
		t.Errorf("expected 1 extra invocation, got %d", extras)
	}
}

func TestFirstInvocationNone(t *testing.T) {
	p := NewParser(testRegistry())
	inv, extras := FirstInvocation(p.Parse("no tools here"))
	if inv != nil || extras != 0 {
		t.Errorf("expected no invocation, got %+v extras=%d", inv, extras)
	}
}

func TestPlainText(t *testing.T) {
	p := NewParser(testRegistry())
	segments := p.Parse("before <read_file><path>a</path></read_file> after")
	// Text segments stay verbatim; PlainText trims only the outer edges, so
	// the inner boundary keeps both spaces.
	if got := PlainText(segments); got != "before  after" {
		t.Errorf("unexpected plain text: %q", got)
	}
}
