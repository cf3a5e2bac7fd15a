package framework

import "fmt"

// Role identifies the author of a transcript entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Protocol tags exchanged with the model.
const (
	TagQuestion    = "question"
	TagThought     = "thought"
	TagAction      = "action"
	TagObservation = "observation"
	TagFinalAnswer = "final_answer"
	TagReflection  = "reflection"
	TagSummary     = "summary"
)

// Message is one chronological entry of the conversation.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// WrapTag encloses content in <tag>...</tag>.
func WrapTag(tag, content string) string {
	return fmt.Sprintf("<%s>%s</%s>", tag, content, tag)
}
