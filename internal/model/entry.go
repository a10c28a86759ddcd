package model

// Entry is the subject a document is written about.
type Entry struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	DateOfBirth  string `json:"date_of_birth"`
	DateOfDeath  string `json:"date_of_death"`
	PlaceOfBirth string `json:"place_of_birth"`
	PlaceOfDeath string `json:"place_of_death"`
	State        int    `json:"state"`
	Ctime        int64  `json:"ctime"`
	Mtime        int64  `json:"mtime"`
}
