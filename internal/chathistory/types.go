package chathistory

// RawMessage is one message of a Slack thread as returned by
// conversations.replies. Its position in the slice is its index.
type RawMessage struct {
	TS    string
	User  string
	BotID string
	Text  string
}

// Turn pairs one user message with the bot reply that followed it.
type Turn struct {
	User string `json:"user" yaml:"user"`
	Bot  string `json:"bot" yaml:"bot"`
}

// Transcript is an ordered list of turns, oldest first.
type Transcript []Turn
