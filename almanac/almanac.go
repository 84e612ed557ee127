package almanac

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/nvkalinin/fantasy-calendar/astro"
	"github.com/nvkalinin/fantasy-calendar/calendar"
	"github.com/nvkalinin/fantasy-calendar/grid"
	"github.com/nvkalinin/fantasy-calendar/log"
	"github.com/nvkalinin/fantasy-calendar/store"
)

type Store interface {
	FindNote(d calendar.Date) (*store.Note, bool)
	FindMonth(d calendar.Date) (store.Notes, bool)
	PutNote(d calendar.Date, n store.Note) error
	DeleteNote(d calendar.Date) error
}

type Opts struct {
	Config    *calendar.Config
	Store     Store         // Хранилище заметок.
	Today     calendar.Date // Текущая дата в мире игры на момент запуска.
	AdvanceAt time.Time     // Используется только время, остальное игнорируется.
}

// Almanac собирает для отображения все, что считает ядро календаря: сетку месяца, фазы лун, восходы
// и заметки. Хранит "сегодня" мира игры и раз в сутки (AdvanceAt) сдвигает его на один день, если запущен RunClock.
type Almanac struct {
	Opts

	mu    sync.RWMutex
	today calendar.Date

	stopCh chan struct{}
	doneCh chan struct{}
}

func New(opts Opts) *Almanac {
	today := opts.Today
	if today.IsZero() {
		today = opts.Config.Epoch()
	}

	return &Almanac{
		Opts:   opts,
		today:  today,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (a *Almanac) Today() calendar.Date {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.today.Clone()
}

func (a *Almanac) SetToday(d calendar.Date) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.today = d.Clone()
	log.Printf("[INFO] almanac today is %s", d)
}

// Advance сдвигает "сегодня" на days дней (назад, если days < 0) и возвращает новую дату.
func (a *Almanac) Advance(days int) calendar.Date {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.today.Forward(0, 0, days)
	log.Printf("[INFO] almanac today is %s", a.today)
	return a.today.Clone()
}

// RunClock раз в сутки в AdvanceAt сдвигает "сегодня" на день вперед. Блокирует до вызова Shutdown.
func (a *Almanac) RunClock() {
	defer close(a.doneCh)

	t := time.NewTimer(a.untilNextRun())
	defer t.Stop()
	for {
		select {
		case <-t.C:
			a.Advance(1)
			t.Reset(a.untilNextRun())

		case <-a.stopCh:
			return
		}
	}
}

func (a *Almanac) Shutdown(ctx context.Context) error {
	close(a.stopCh)

	select {
	case <-a.doneCh:
		return nil
	case <-ctx.Done():
		log.Printf("[WARN] almanac shutdown timeout")
		return ctx.Err()
	}
}

func (a *Almanac) untilNextRun() time.Duration {
	now := time.Now()

	nextRun := time.Date(
		now.Year(), now.Month(), now.Day(),
		a.AdvanceAt.Hour(), a.AdvanceAt.Minute(), a.AdvanceAt.Second(), a.AdvanceAt.Nanosecond(),
		time.Local,
	)

	d := time.Until(nextRun)
	if d < 0 {
		d += 24 * time.Hour
	}
	return d
}

type MonthView struct {
	Label    string        `json:"label"`
	Weekdays []string      `json:"weekdays"`
	Cells    []grid.Cell   `json:"cells"`
	Weeks    [][]grid.Cell `json:"-"`
}

// Month собирает сетку месяца. Если selected нулевая, выбранным считается "сегодня".
func (a *Almanac) Month(year, month int, selected calendar.Date) (MonthView, error) {
	view, err := a.Config.NewDate(year, month, 1)
	if err != nil {
		return MonthView{}, fmt.Errorf("almanac month %d/%d: %w", year, month, err)
	}

	today := a.Today()
	if selected.IsZero() {
		selected = today
	}

	opts := grid.Opts{Today: today, Selected: selected}
	if notes, ok := a.Store.FindMonth(view); ok {
		opts.Notes = notes
	}

	weekdays := a.Config.Weekdays()
	cells := grid.Build(view, opts)

	return MonthView{
		Label:    view.MonthLabel(),
		Weekdays: weekdays,
		Cells:    cells,
		Weeks:    grid.Weeks(cells, len(weekdays)),
	}, nil
}

type DayView struct {
	Date             calendar.Date    `json:"date"`
	Month            string           `json:"month"`
	Weekday          string           `json:"weekday"`
	DaysSinceNewYear int              `json:"daysSinceNewYear"`
	DaysSinceEpoch   int              `json:"daysSinceEpoch"`
	Salos            astro.SalosPhase `json:"salos"`
	Vol              astro.VolPhase   `json:"vol"`
	Times            astro.Times      `json:"times"`
	Note             *store.Note      `json:"note,omitempty"`
}

func (a *Almanac) Day(d calendar.Date) DayView {
	v := DayView{
		Date:             d,
		Month:            d.MonthLabel(),
		Weekday:          d.WeekdayName(),
		DaysSinceNewYear: calendar.DaysSinceNewYear(d),
		DaysSinceEpoch:   calendar.DaysSinceEpoch(d),
		Salos:            astro.Salos(d),
		Vol:              astro.Vol(d),
		Times:            astro.RiseSet(d),
	}
	if note, ok := a.Store.FindNote(d); ok {
		v.Note = note
	}
	return v
}

// DayOf - то же, что Day, но проверяет дату.
func (a *Almanac) DayOf(year, month, day int) (DayView, error) {
	d, err := a.Config.NewDate(year, month, day)
	if err != nil {
		return DayView{}, fmt.Errorf("almanac day %d/%d/%d: %w", year, month, day, err)
	}
	return a.Day(d), nil
}

type ParseView struct {
	Date        calendar.Date     `json:"date"`
	OK          bool              `json:"ok"`
	Suggestions map[string]string `json:"suggestions,omitempty"` // Опечатка -> похожий месяц.
}

// Parse разбирает дату, введенную текстом. Если prev нулевая, недостающие части берутся из "сегодня".
func (a *Almanac) Parse(text string, prev calendar.Date) ParseView {
	if prev.IsZero() {
		prev = a.Today()
	}

	res := a.Config.ParseDate(text, prev)
	if !res.OK {
		log.Printf("[DEBUG] almanac cannot parse date %q, keeping %s", text, prev)
	}

	v := ParseView{Date: res.Date, OK: res.OK}
	for _, word := range res.Unknown {
		if name, ok := a.Config.SuggestMonth(word); ok {
			if v.Suggestions == nil {
				v.Suggestions = make(map[string]string, len(res.Unknown))
			}
			v.Suggestions[word] = name
		}
	}
	return v
}

// Пустой текст из редактора заметок может состоять из пробелов, <div> и <br>.
var reBlankNote = regexp.MustCompile(`\s|(</?div>)|(<br\s*/?>)`)

// PutNote сохраняет заметку. Пустая заметка удаляется. Возвращает false, если заметка была удалена.
func (a *Almanac) PutNote(d calendar.Date, text string) (bool, error) {
	if reBlankNote.ReplaceAllString(text, "") == "" {
		if err := a.Store.DeleteNote(d); err != nil {
			return false, fmt.Errorf("almanac cannot delete note %s: %w", d, err)
		}
		return false, nil
	}

	note := store.Note{Text: text, Updated: time.Now()}
	if err := a.Store.PutNote(d, note); err != nil {
		return false, fmt.Errorf("almanac cannot store note %s: %w", d, err)
	}
	return true, nil
}

func (a *Almanac) DeleteNote(d calendar.Date) error {
	if err := a.Store.DeleteNote(d); err != nil {
		return fmt.Errorf("almanac cannot delete note %s: %w", d, err)
	}
	return nil
}
