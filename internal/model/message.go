package model

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one persisted turn of a document's conversation; Seq is the canonical order.
type Message struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Role       Role   `json:"role"`
	Content    string `json:"content"`
	Seq        int64  `json:"seq"`
	Ctime      int64  `json:"ctime"`
}

// ChatMessage is the wire form of a history turn.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
