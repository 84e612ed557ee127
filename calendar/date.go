package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidDay   = errors.New("invalid day")
)

// DateError возвращается из NewDate, если месяц или день вне диапазона.
type DateError struct {
	Year, Month, Day int
	Err              error // ErrInvalidMonth или ErrInvalidDay.
}

func (e *DateError) Error() string {
	switch {
	case errors.Is(e.Err, ErrInvalidMonth):
		return fmt.Sprintf("%v: %d", e.Err, e.Month)
	default:
		return fmt.Sprintf("%v: %d", e.Err, e.Day)
	}
}

func (e *DateError) Unwrap() error {
	return e.Err
}

// Date - дата вымышленного календаря. Год может быть отрицательным, месяц и день считаются с единицы.
// Date - значение: присваивание копирует дату. Нулевое значение Date не привязано к календарю и не валидно,
// даты создаются только через Config.NewDate, Config.Epoch или Clone.
type Date struct {
	Year  int
	Month int
	Day   int
	cfg   *Config
}

// NewDate проверяет месяц и день и возвращает дату.
func (c *Config) NewDate(year, month, day int) (Date, error) {
	if month < 1 || month > len(c.months) {
		return Date{}, &DateError{Year: year, Month: month, Day: day, Err: ErrInvalidMonth}
	}
	if day < 1 || day > c.months[month-1].Days {
		return Date{}, &DateError{Year: year, Month: month, Day: day, Err: ErrInvalidDay}
	}
	return Date{Year: year, Month: month, Day: day, cfg: c}, nil
}

// MustDate - как NewDate, но паникует. Для констант и тестов.
func (c *Config) MustDate(year, month, day int) Date {
	d, err := c.NewDate(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Config() *Config {
	return d.cfg
}

func (d Date) IsZero() bool {
	return d.cfg == nil
}

func (d Date) Clone() Date {
	return Date{Year: d.Year, Month: d.Month, Day: d.Day, cfg: d.cfg}
}

func (d Date) Equal(other Date) bool {
	return d.Year == other.Year && d.Month == other.Month && d.Day == other.Day
}

func (d Date) String() string {
	return fmt.Sprintf("%d %s, %d %s", d.Day, d.cfg.MonthName(d.Month), d.Year, d.cfg.era)
}

func (d Date) MonthLabel() string {
	return fmt.Sprintf("%s, %d %s", d.cfg.MonthName(d.Month), d.Year, d.cfg.era)
}

func (d Date) MonthName() string {
	return d.cfg.MonthName(d.Month)
}

// FirstOfMonth - первое число того же месяца.
func (d Date) FirstOfMonth() Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1, cfg: d.cfg}
}

// DaysSinceNewYear - сколько дней прошло с 1 числа первого месяца года. От 0 до DaysPerYear-1.
func (d Date) DaysSinceNewYear() int {
	days := 0
	for m := 1; m < d.Month; m++ {
		days += d.cfg.MonthLength(m)
	}
	return days + d.Day - 1
}

// DaysSince - сколько дней прошло с other. Отрицательное значение - other в будущем.
// Разница в годах всегда умножается на DaysPerYear.
func (d Date) DaysSince(other Date) int {
	days := (d.Year - other.Year) * d.cfg.daysPerYear
	days += d.DaysSinceNewYear() - other.DaysSinceNewYear()
	return days
}

// Weekday - номер дня недели в Config.Weekdays.
func (d Date) Weekday() int {
	return Mod(DaysSinceEpoch(d)+d.cfg.epochWeekday, len(d.cfg.weekdays))
}

func (d Date) WeekdayName() string {
	return d.cfg.weekdays[d.Weekday()]
}

// Forward сдвигает дату вперед: сначала на days дней, затем на months месяцев, затем на years лет.
// Отрицательные значения сдвигают назад.
func (d *Date) Forward(years, months, days int) {
	d.addDays(days)
	d.addMonths(months)
	d.Year += years
}

// Backward - обратная операция к Forward.
func (d *Date) Backward(years, months, days int) {
	d.addDays(-days)
	d.addMonths(-months)
	d.Year -= years
}

// addDays переносит лишние дни в следующие месяцы или занимает дни у предыдущих.
// Номер месяца при этом может временно выйти за пределы года (0, -1, 14...), длина такого месяца берется
// по модулю, а год исправляет addMonths.
func (d *Date) addDays(n int) {
	// Все годы одинаковой длины, поэтому целые годы можно пропустить сразу.
	d.Year += n / d.cfg.daysPerYear
	n %= d.cfg.daysPerYear

	d.Day += n
	for d.Day > d.cfg.MonthLength(d.Month) {
		d.Day -= d.cfg.MonthLength(d.Month)
		d.Month++
	}
	for d.Day <= 0 {
		d.Month--
		d.Day += d.cfg.MonthLength(d.Month)
	}
}

func (d *Date) addMonths(n int) {
	count := len(d.cfg.months)

	d.Month += n - 1
	d.Year += floorDiv(d.Month, count)
	d.Month = Mod(d.Month, count) + 1

	// 32 Naeril + 1 месяц = 19 Abhainn.
	if l := d.cfg.MonthLength(d.Month); d.Day > l {
		d.Day = l
	}
}

func floorDiv(x, m int) int {
	q := x / m
	if x%m < 0 {
		q--
	}
	return q
}

type dateJSON struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Day   int    `json:"day"`
	Text  string `json:"text"`
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(dateJSON{Year: d.Year, Month: d.Month, Day: d.Day, Text: d.String()})
}

func DaysSinceNewYear(d Date) int {
	return d.DaysSinceNewYear()
}

func DaysSince(d, other Date) int {
	return d.DaysSince(other)
}

// DaysSinceEpoch - сколько дней прошло с 1 числа первого месяца 0 года.
func DaysSinceEpoch(d Date) int {
	return d.DaysSince(d.cfg.Epoch())
}
