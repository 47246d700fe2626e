package outputfmt

import (
	"errors"
	"sort"
	"strings"

	"github.com/quailyquaily/slackqa/internal/qa"
)

const (
	SourcesHeader  = "Documents that may help:"
	FailureMessage = "Something went wrong :cry:"
)

// ComposeReply renders a QA result as a Slack message addressed to user.
func ComposeReply(result qa.Result, user string) string {
	var b strings.Builder
	b.WriteString("<@")
	b.WriteString(user)
	b.WriteString(">\n")
	b.WriteString(NormalizeText(result.Text()))

	labels := SourceLabels(result.SourceDocuments)
	if len(labels) == 0 {
		return b.String()
	}
	b.WriteString("\n\n")
	b.WriteString(SourcesHeader)
	for _, label := range labels {
		b.WriteString("\n- ")
		b.WriteString(label)
	}
	return b.String()
}

// SourceLabels returns the sorted, unique basenames of the documents'
// "source" metadata. Documents without a source are skipped.
func SourceLabels(docs []qa.SourceDocument) []string {
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		src, ok := d.Metadata["source"]
		if !ok {
			continue
		}
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		if label := basename(src); label != "" {
			seen[label] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for label := range seen {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// basename accepts both slash styles since sources are recorded on whatever
// host indexed them.
func basename(src string) string {
	src = strings.TrimRight(src, `/\`)
	if i := strings.LastIndexAny(src, `/\`); i >= 0 {
		return src[i+1:]
	}
	return src
}

// Failure is a collaborator error as reported back to the user.
type Failure struct {
	Message string
	Cause   error
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	msg := f.Message
	if msg == "" {
		msg = FailureMessage
	}
	if f.Cause == nil {
		return msg
	}
	return msg + ": " + f.Cause.Error()
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Cause
}

// Text renders the failure the way it is posted to the thread.
func (f *Failure) Text() string {
	msg := FailureMessage
	if f != nil && strings.TrimSpace(f.Message) != "" {
		msg = f.Message
	}
	if f == nil || f.Cause == nil {
		return msg
	}
	return msg + "\n```" + f.Cause.Error() + "```"
}

// ComposeFailure renders err as a failure message. Errors that are not
// already a *Failure are wrapped with the default message.
func ComposeFailure(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Text()
	}
	return (&Failure{Cause: err}).Text()
}
