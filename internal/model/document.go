package model

type DocType string

const (
	// DocTypeObituary is the primary document of an entry.
	DocTypeObituary DocType = "obituary"
	// DocTypeEulogy is the secondary tribute text.
	DocTypeEulogy DocType = "eulogy"
)

func (t DocType) Valid() bool {
	return t == DocTypeObituary || t == DocTypeEulogy
}

// ParseDocType maps an empty value to the primary type.
func ParseDocType(v string) (DocType, bool) {
	if v == "" {
		return DocTypeObituary, true
	}
	t := DocType(v)
	return t, t.Valid()
}

// Document is unique per (UserID, EntryID, DocType) among live rows.
// An empty EntryID is the "no entry" scope.
type Document struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id"`
	EntryID           string  `json:"entry_id"`
	DocType           DocType `json:"doc_type"`
	Title             string  `json:"title"`
	Content           string  `json:"content"`
	IsPublic          int     `json:"is_public"`
	ShareToken        string  `json:"share_token,omitempty"`
	SharePasswordHash string  `json:"-"`
	State             int     `json:"state"`
	Ctime             int64   `json:"ctime"`
	Mtime             int64   `json:"mtime"`
}
