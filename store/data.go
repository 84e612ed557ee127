package store

import (
	"time"

	"github.com/nvkalinin/fantasy-calendar/calendar"
)

// Note - заметка мастера на дату.
type Note struct {
	Text    string    `json:"text"`
	Updated time.Time `json:"updated"`
}

// Notes - заметки по датам. Ключ - Date.String(), например "5 Golus, 1318 YD".
type Notes map[string]Note

func (n Notes) Copy() Notes {
	nCopy := make(Notes, len(n))
	for key, note := range n {
		nCopy[key] = note
	}
	return nCopy
}

func (n Notes) HasNote(d calendar.Date) bool {
	_, ok := n[d.String()]
	return ok
}

func Key(d calendar.Date) string {
	return d.String()
}
