package model

type Suggestion struct {
	ID            string `json:"id"`
	DocumentID    string `json:"document_id"`
	DocumentCtime int64  `json:"document_ctime"`
	UserID        string `json:"user_id"`
	OriginalText  string `json:"original_text"`
	SuggestedText string `json:"suggested_text"`
	Description   string `json:"description"`
	IsResolved    int    `json:"is_resolved"`
	Ctime         int64  `json:"ctime"`
}
