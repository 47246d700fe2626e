package azureopenai

import (
	"strings"
	"testing"

	"github.com/quailyquaily/slackqa/llm"
)

type wordEncoder struct{}

func (wordEncoder) Encode(text string, _ []string, _ []string) []int {
	return make([]int, len(strings.Fields(text)))
}

func TestCountMessagesFraming(t *testing.T) {
	msgs := []llm.Message{
		llm.User("one two three"),
		llm.Assistant("four"),
	}
	// (3 + 1 role + 3 words) + (3 + 1 role + 1 word) + 3 reply priming
	if got := countMessages(wordEncoder{}, msgs); got != 15 {
		t.Fatalf("countMessages() = %d, want 15", got)
	}
	if got := countMessages(wordEncoder{}, nil); got != 0 {
		t.Fatalf("countMessages(nil) = %d, want 0", got)
	}
}

func TestCountMessagesMonotonicInLength(t *testing.T) {
	msgs := []llm.Message{llm.User("a b"), llm.Assistant("c"), llm.User("d e f")}
	prev := countMessages(wordEncoder{}, msgs)
	for len(msgs) > 0 {
		msgs = msgs[1:]
		cur := countMessages(wordEncoder{}, msgs)
		if cur >= prev {
			t.Fatalf("count did not shrink after dropping a message: %d >= %d", cur, prev)
		}
		prev = cur
	}
}
