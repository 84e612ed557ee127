package calendar

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid calendar config")

const DefaultEra = "YD"

type Month struct {
	Name string `yaml:"name" json:"name"`
	Days int    `yaml:"days" json:"days"`
}

// Config - таблица календаря: месяцы, дни недели и длина года.
// Создается один раз при старте и дальше не меняется, поэтому ее можно
// безопасно передавать по указателю в любые горутины.
type Config struct {
	months       []Month
	weekdays     []string
	daysPerYear  int
	epochWeekday int
	era          string
	folded       []string // Имена месяцев без регистра и диакритики, для парсера.
}

// Default - календарь Котронаса, 13 месяцев, 365 дней.
func Default() *Config {
	cfg, err := NewConfig(
		[]Month{
			{"Naeril", 32}, {"Golus", 32}, {"Abhainn", 19}, {"Ektuery", 32},
			{"Itmer", 32}, {"Durlim", 32}, {"Unsetting", 7}, {"Vyr", 32},
			{"Nera", 32}, {"Aestary", 32}, {"Tur", 19}, {"Vuria", 32},
			{"Nardant", 32},
		},
		[]string{"Saldin", "Voldin", "Uskdin", "Aesdin", "Domdin", "Ghedin", "Hasdin"},
		3, // 1 Naeril, 0 YD был Aesdin.
		DefaultEra,
	)
	if err != nil {
		panic(err)
	}
	return cfg
}

func NewConfig(months []Month, weekdays []string, epochWeekday int, era string) (*Config, error) {
	if len(months) == 0 {
		return nil, fmt.Errorf("%w: no months", ErrInvalidConfig)
	}
	if len(weekdays) == 0 {
		return nil, fmt.Errorf("%w: no weekdays", ErrInvalidConfig)
	}
	if epochWeekday < 0 || epochWeekday >= len(weekdays) {
		return nil, fmt.Errorf("%w: epoch weekday %d out of range", ErrInvalidConfig, epochWeekday)
	}

	cfg := &Config{
		months:       make([]Month, len(months)),
		weekdays:     make([]string, len(weekdays)),
		epochWeekday: epochWeekday,
		era:          era,
		folded:       make([]string, len(months)),
	}
	copy(cfg.months, months)
	copy(cfg.weekdays, weekdays)

	seen := make(map[string]bool, len(months))
	for i, m := range months {
		if m.Name == "" {
			return nil, fmt.Errorf("%w: month %d has no name", ErrInvalidConfig, i+1)
		}
		if m.Days < 1 {
			return nil, fmt.Errorf("%w: month %s has %d days", ErrInvalidConfig, m.Name, m.Days)
		}

		f := fold(m.Name)
		if seen[f] {
			return nil, fmt.Errorf("%w: duplicate month %s", ErrInvalidConfig, m.Name)
		}
		seen[f] = true

		cfg.folded[i] = f
		cfg.daysPerYear += m.Days
	}

	return cfg, nil
}

type configFile struct {
	Months       []Month  `yaml:"months"`
	Weekdays     []string `yaml:"weekdays"`
	EpochWeekday int      `yaml:"epochWeekday"`
	Era          string   `yaml:"era"`
}

// LoadConfig читает таблицу календаря из YAML-файла.
func LoadConfig(path string) (*Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read calendar yaml: %w", err)
	}

	cf := configFile{}
	if err := yaml.Unmarshal(f, &cf); err != nil {
		return nil, fmt.Errorf("cannot parse calendar yaml: %w", err)
	}

	if cf.Era == "" {
		cf.Era = DefaultEra
	}
	return NewConfig(cf.Months, cf.Weekdays, cf.EpochWeekday, cf.Era)
}

func (c *Config) MonthCount() int   { return len(c.months) }
func (c *Config) DaysPerYear() int  { return c.daysPerYear }
func (c *Config) EpochWeekday() int { return c.epochWeekday }
func (c *Config) Era() string       { return c.era }

// Months возвращает копию таблицы месяцев.
func (c *Config) Months() []Month {
	res := make([]Month, len(c.months))
	copy(res, c.months)
	return res
}

func (c *Config) Weekdays() []string {
	res := make([]string, len(c.weekdays))
	copy(res, c.weekdays)
	return res
}

// MonthName - имя месяца с номером m (с единицы). Номер приводится по модулю.
func (c *Config) MonthName(m int) string {
	return c.months[Mod(m-1, len(c.months))].Name
}

// MonthLength - количество дней в месяце m (с единицы). Номер приводится по модулю,
// поэтому месяц 0 - это последний месяц предыдущего года.
func (c *Config) MonthLength(m int) int {
	return c.months[Mod(m-1, len(c.months))].Days
}

func (c *Config) WeekdayName(i int) string {
	return c.weekdays[Mod(i, len(c.weekdays))]
}

// Epoch - нулевая дата (0 год, 1 месяц, 1 день), от нее считаются фазы и дни недели.
func (c *Config) Epoch() Date {
	return Date{Year: 0, Month: 1, Day: 1, cfg: c}
}

// Mod - математический остаток, всегда в [0, m).
func Mod(x, m int) int {
	return ((x % m) + m) % m
}

// FMod - то же, что Mod, для float64.
func FMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	if r >= m { // -1e-17 + 1 == 1
		r = 0
	}
	return r
}
