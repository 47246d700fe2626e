package chathistory

import "github.com/quailyquaily/slackqa/llm"

// Messages flattens the transcript into alternating user/assistant messages.
func (t Transcript) Messages() []llm.Message {
	out := make([]llm.Message, 0, len(t)*2)
	for _, turn := range t {
		out = append(out, llm.User(turn.User), llm.Assistant(turn.Bot))
	}
	return out
}

// BuildMessages returns history followed by the current question.
func BuildMessages(history Transcript, question string) []llm.Message {
	out := history.Messages()
	return append(out, llm.User(question))
}
