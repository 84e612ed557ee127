// Package grid раскладывает месяц вымышленного календаря по неделям.
package grid

import (
	"fmt"

	"github.com/nvkalinin/fantasy-calendar/calendar"
)

type Place string

const (
	Prev    Place = "prev"    // Хвост предыдущего месяца в первой неделе.
	Current Place = "current" // День отображаемого месяца.
	Next    Place = "next"    // Начало следующего месяца в последней неделе.
)

// NoteIndex сообщает, есть ли заметки на дату.
type NoteIndex interface {
	HasNote(d calendar.Date) bool
}

type Opts struct {
	Today    calendar.Date // Нулевое значение - не отмечать.
	Selected calendar.Date // Нулевое значение - не отмечать.
	Notes    NoteIndex     // Может быть nil.
}

type Cell struct {
	Day      int           `json:"day"`
	Place    Place         `json:"place"`
	Date     calendar.Date `json:"date"`
	Selected bool          `json:"selected,omitempty"`
	Today    bool          `json:"today,omitempty"`
	HasNotes bool          `json:"hasNotes,omitempty"`
}

// Build возвращает клетки сетки для месяца, в котором находится view. Первая клетка - первый день недели
// (Config.Weekdays()[0]), количество клеток кратно длине недели.
//
// Selected отмечается на всех клетках, Today и HasNotes - только на днях отображаемого месяца.
func Build(view calendar.Date, opts Opts) []Cell {
	cfg := view.Config()
	week := len(cfg.Weekdays())

	first := view.FirstOfMonth()
	lead := first.Weekday()
	length := cfg.MonthLength(first.Month)
	trail := calendar.Mod(-(lead + length), week)

	total := lead + length + trail
	cells := make([]Cell, 0, total)

	date := first.Clone()
	date.Backward(0, 0, lead)

	for i := 0; i < total; i++ {
		c := Cell{
			Day:      date.Day,
			Date:     date.Clone(),
			Selected: date.Equal(opts.Selected),
		}

		switch {
		case i < lead:
			c.Place = Prev
		case i < lead+length:
			c.Place = Current
			c.Today = date.Equal(opts.Today)
			c.HasNotes = opts.Notes != nil && opts.Notes.HasNote(date)
		default:
			c.Place = Next
		}

		cells = append(cells, c)
		date.Forward(0, 0, 1)
	}

	return cells
}

// Weeks разбивает клетки на строки по длине недели.
func Weeks(cells []Cell, week int) [][]Cell {
	rows := make([][]Cell, 0, len(cells)/week+1)
	for i := 0; i < len(cells); i += week {
		end := i + week
		if end > len(cells) {
			end = len(cells)
		}
		rows = append(rows, cells[i:end])
	}
	return rows
}

// Resolve возвращает дату клетки по номеру дня и ее месту относительно отображаемого месяца view.
// Клетки Prev относятся к предыдущему месяцу, Next - к следующему.
func Resolve(view calendar.Date, day int, place Place) (calendar.Date, error) {
	month := view.FirstOfMonth()

	switch place {
	case Prev:
		month.Backward(0, 1, 0)
	case Next:
		month.Forward(0, 1, 0)
	case Current:
	default:
		return calendar.Date{}, fmt.Errorf("grid: unknown cell place %q", place)
	}

	d, err := view.Config().NewDate(month.Year, month.Month, day)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("grid: cannot resolve %s cell %d: %w", place, day, err)
	}
	return d, nil
}
