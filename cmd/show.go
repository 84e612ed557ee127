package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/nvkalinin/fantasy-calendar/almanac"
	"github.com/nvkalinin/fantasy-calendar/grid"
	"github.com/nvkalinin/fantasy-calendar/store/engine"
)

// Show печатает сетку месяца и сведения о дне без запуска сервера.
type Show struct {
	Calendar string `long:"calendar" env:"CALENDAR" value-name:"file.yml" description:"YAML-файл с таблицей месяцев и дней недели. Если не указан, используется календарь Котронаса."`
	Date     string `long:"date" value-name:"date" default:"1 Naeril 1318" description:"Дата, например '5 Golus 1318'."`

	Out io.Writer `no-flag:"true"`
}

func (s *Show) Execute(args []string) error {
	cfg, err := loadCalendar(s.Calendar)
	if err != nil {
		return err
	}

	parsed := cfg.ParseDate(s.Date, cfg.Epoch())
	if !parsed.OK {
		return fmt.Errorf("show: cannot parse date '%s'", s.Date)
	}

	alm := almanac.New(almanac.Opts{
		Config: cfg,
		Store:  engine.NewMemory(),
		Today:  parsed.Date,
	})

	month, err := alm.Month(parsed.Date.Year, parsed.Date.Month, parsed.Date)
	if err != nil {
		return err
	}

	out := s.Out
	if out == nil {
		out = os.Stdout
	}

	fmt.Fprintln(out, month.Label)
	for _, w := range month.Weekdays {
		fmt.Fprintf(out, "%5s", abbr(w))
	}
	fmt.Fprintln(out)

	for _, week := range month.Weeks {
		for _, c := range week {
			fmt.Fprintf(out, "%5s", cellText(c))
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out)

	day := alm.Day(parsed.Date)
	fmt.Fprintf(out, "%s, %s\n", day.Date, day.Weekday)
	fmt.Fprintf(out, "Day %d of the year, %d since epoch\n", day.DaysSinceNewYear, day.DaysSinceEpoch)
	fmt.Fprintf(out, "Salos: %s, rises %s, sets %s\n", day.Salos.Name, day.Times.Salos.RiseAt, day.Times.Salos.SetAt)
	fmt.Fprintf(out, "Vol:   %s, rises %s, sets %s\n", day.Vol.Name, day.Times.Vol.RiseAt, day.Times.Vol.SetAt)
	fmt.Fprintf(out, "Ghea:  rises %s, sets %s\n", day.Times.Ghea.RiseAt, day.Times.Ghea.SetAt)
	return nil
}

func abbr(name string) string {
	r := []rune(name)
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}

// Дни соседних месяцев в скобках, выбранный день - в квадратных.
func cellText(c grid.Cell) string {
	switch {
	case c.Place != grid.Current:
		return fmt.Sprintf("(%d)", c.Day)
	case c.Selected:
		return fmt.Sprintf("[%d]", c.Day)
	default:
		return strconv.Itoa(c.Day)
	}
}
