package outputfmt

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/quailyquaily/slackqa/internal/qa"
)

func docs(sources ...string) []qa.SourceDocument {
	out := make([]qa.SourceDocument, 0, len(sources))
	for _, s := range sources {
		out = append(out, qa.SourceDocument{Metadata: map[string]string{"source": s}})
	}
	return out
}

func TestComposeReplyWithoutSources(t *testing.T) {
	got := ComposeReply(qa.Result{Answer: "Hello there"}, "U123")
	want := "<@U123>\nHello there"
	if got != want {
		t.Fatalf("ComposeReply() = %q, want %q", got, want)
	}
	if strings.Contains(got, SourcesHeader) {
		t.Fatalf("reply should not contain sources header: %q", got)
	}
}

func TestComposeReplyDeduplicatesLabels(t *testing.T) {
	res := qa.Result{
		Answer:          "See the docs.",
		SourceDocuments: docs("/data/a.pdf", "/other/a.pdf", "/data/b.pdf"),
	}
	got := ComposeReply(res, "U1")
	want := "<@U1>\nSee the docs.\n\n" + SourcesHeader + "\n- a.pdf\n- b.pdf"
	if got != want {
		t.Fatalf("ComposeReply() = %q, want %q", got, want)
	}
	if n := strings.Count(got, "\n- "); n != 2 {
		t.Fatalf("bullet count = %d, want 2", n)
	}
}

func TestComposeReplyFallsBackToResultKey(t *testing.T) {
	got := ComposeReply(qa.Result{Result: `"line one\nline two"`}, "U9")
	want := "<@U9>\nline one\nline two"
	if got != want {
		t.Fatalf("ComposeReply() = %q, want %q", got, want)
	}
}

func TestSourceLabels(t *testing.T) {
	cases := []struct {
		name string
		in   []qa.SourceDocument
		want []string
	}{
		{name: "nil", in: nil, want: nil},
		{name: "missing source skipped", in: []qa.SourceDocument{{Metadata: map[string]string{"chunk": "1"}}, {}}, want: nil},
		{name: "sorted", in: docs("z/c.md", "y/a.txt", "b.pdf"), want: []string{"a.txt", "b.pdf", "c.md"}},
		{name: "windows path", in: docs(`C:\docs\manual.pdf`), want: []string{"manual.pdf"}},
		{name: "blank source", in: docs("  ", "/"), want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SourceLabels(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("SourceLabels() = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestComposeFailure(t *testing.T) {
	cause := errors.New("rate limited")
	got := ComposeFailure(cause)
	want := "Something went wrong :cry:\n```rate limited```"
	if got != want {
		t.Fatalf("ComposeFailure() = %q, want %q", got, want)
	}

	wrapped := fmt.Errorf("handle: %w", &Failure{Message: "Could not read the thread", Cause: cause})
	got = ComposeFailure(wrapped)
	want = "Could not read the thread\n```rate limited```"
	if got != want {
		t.Fatalf("ComposeFailure(wrapped) = %q, want %q", got, want)
	}

	if got := (&Failure{}).Text(); got != FailureMessage {
		t.Fatalf("Text() = %q, want %q", got, FailureMessage)
	}
}

func TestFailureUnwrap(t *testing.T) {
	cause := errors.New("boom")
	f := &Failure{Message: "x", Cause: cause}
	if !errors.Is(f, cause) {
		t.Fatalf("errors.Is(failure, cause) = false")
	}
	if f.Error() != "x: boom" {
		t.Fatalf("Error() = %q", f.Error())
	}
}

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "  plain  ", want: "plain"},
		{in: `"quoted"`, want: "quoted"},
		{in: `a\nb\nc`, want: "a\nb\nc"},
		{in: `one \n only`, want: `one \n only`},
		{in: "", want: ""},
	}
	for _, tc := range cases {
		if got := NormalizeText(tc.in); got != tc.want {
			t.Fatalf("NormalizeText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
