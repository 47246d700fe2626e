package chathistory

import "strings"

// Extract rebuilds the (user, bot) turns of a thread. Every message posted
// by botID is a bot reply and the message right before it is taken as the
// user turn it answered. A bot reply that opens the thread has no user turn
// and is skipped. Only the last maxTurns pairs are kept.
func Extract(messages []RawMessage, botID string, maxTurns int) Transcript {
	botID = strings.TrimSpace(botID)
	if botID == "" || maxTurns <= 0 || len(messages) < 2 {
		return Transcript{}
	}

	out := make(Transcript, 0, len(messages)/2)
	for i, m := range messages {
		if strings.TrimSpace(m.BotID) != botID {
			continue
		}
		if i == 0 {
			continue
		}
		out = append(out, Turn{User: messages[i-1].Text, Bot: m.Text})
	}

	if len(out) > maxTurns {
		out = append(Transcript(nil), out[len(out)-maxTurns:]...)
	}
	return out
}
