package agent

import "github.com/quailyquaily/slackqa/llm"

// TrimMessages drops messages from the front until count reports a total
// within profile.Budget(), or nothing is left. Survivors keep their order.
//
// count is re-invoked after every removal and never cached, so trimming k
// messages costs k+1 calls.
func TrimMessages(messages []llm.Message, profile ModelProfile, count llm.TokenCounter) []llm.Message {
	if count == nil {
		return messages
	}
	budget := profile.Budget()
	current := count(messages)
	for len(messages) > 0 && current > budget {
		messages = messages[1:]
		current = count(messages)
	}
	return messages
}
