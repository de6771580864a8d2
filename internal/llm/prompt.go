package llm

import "strings"

// Message is one chat message in OpenAI role/content form.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Messages flattens history plus the new query into alternating
// user/assistant messages.
func Messages(history History, query string) []Message {
	msgs := make([]Message, 0, 2*len(history)+1)
	for _, t := range history {
		msgs = append(msgs,
			Message{Role: "user", Content: t.Query},
			Message{Role: "assistant", Content: t.Response},
		)
	}
	return append(msgs, Message{Role: "user", Content: query})
}

// ChatGLM3 role markers. Generation stops when the model opens a new turn.
const (
	glmPrefix    = "[gMASK]sop"
	glmUser      = "<|user|>"
	glmAssistant = "<|assistant|>"
)

// StopWords end a ChatGLM3 response.
var StopWords = []string{glmUser, "<|observation|>"}

// RenderPrompt renders history and query in the ChatGLM3 chat format, ending
// with an open assistant turn. Runtimes that take raw text use it; servers
// that apply their own chat template take Messages instead.
func RenderPrompt(history History, query string) string {
	var b strings.Builder
	b.WriteString(glmPrefix)
	for _, m := range Messages(history, query) {
		if m.Role == "user" {
			b.WriteString(glmUser)
		} else {
			b.WriteString(glmAssistant)
		}
		b.WriteString("\n")
		b.WriteString(m.Content)
	}
	b.WriteString(glmAssistant)
	return b.String()
}
