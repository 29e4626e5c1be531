package model

import "time"

// Category is one guessable facet of a content item
type Category string

const (
	CategoryGame Category = "game"
	CategorySong Category = "song"
)

// Categories lists every guessable category in grading order
var Categories = []Category{CategoryGame, CategorySong}

// ContentItem is one entry of the music catalog
type ContentItem struct {
	ID   string `json:"id"`
	File string `json:"file"`

	// Answers holds accepted answers per category. The first entry is canonical,
	// the rest are aliases.
	Answers map[Category][]string `json:"answers"`

	// Duration overrides the default round length when set
	Duration time.Duration `json:"-"`
}

// Canonical returns the display answer for a category
func (c ContentItem) Canonical(cat Category) string {
	answers := c.Answers[cat]
	if len(answers) == 0 {
		return ""
	}
	return answers[0]
}

// ContentRecord is the global record for one content item
type ContentRecord struct {
	ContentID    string        `json:"contentId"`
	FastestGuess time.Duration `json:"fastestGuess"`
	Holder       string        `json:"holder"`
	SetAt        time.Time     `json:"setAt"`
	TimesPlayed  int           `json:"timesPlayed"`
}

// ChatMessage is one line of lobby chat
type ChatMessage struct {
	Room   LobbyCode `json:"room"`
	Name   string    `json:"name"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}
