package engine

import (
	"sync"

	"github.com/nvkalinin/fantasy-calendar/calendar"
	"github.com/nvkalinin/fantasy-calendar/store"
)

type Memory struct {
	mu    sync.RWMutex
	store store.Notes
}

func NewMemory() *Memory {
	return &Memory{
		store: make(store.Notes, 16),
	}
}

func (m *Memory) FindNote(d calendar.Date) (*store.Note, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	note, ok := m.store[store.Key(d)]
	if !ok {
		return nil, false
	}

	return &note, true
}

func (m *Memory) FindMonth(d calendar.Date) (store.Notes, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	month := make(store.Notes)
	forEachDay(d, func(key string) {
		if note, ok := m.store[key]; ok {
			month[key] = note
		}
	})

	if len(month) == 0 {
		return nil, false
	}
	return month, true
}

func (m *Memory) PutNote(d calendar.Date, note store.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store[store.Key(d)] = note
	return nil
}

func (m *Memory) DeleteNote(d calendar.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.store, store.Key(d))
	return nil
}

// forEachDay вызывает fn с ключом каждого дня месяца, в котором находится d.
func forEachDay(d calendar.Date, fn func(key string)) {
	day := d.FirstOfMonth()
	for i := 1; i <= d.Config().MonthLength(d.Month); i++ {
		day.Day = i
		fn(store.Key(day))
	}
}
