package calendar

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Числа (в т. ч. отрицательные годы) и слова.
var reTerms = regexp.MustCompile(`[-\d]+|[\p{L}_]+`)

const maxTerms = 3

// Parsed - результат разбора даты, введенной текстом.
type Parsed struct {
	Date    Date     // Разобранная дата, либо prev, если разобрать не удалось.
	OK      bool     // false, если дата отклонена и возвращена prev.
	Unknown []string // Слова, которые не являются названиями месяцев.
}

// ParseDate разбирает строку вида "5 Golus 1320", "5 2 1320", "golus 1320" и т. п.
//
// Правила:
//   - название месяца сравнивается без учета регистра и диакритики;
//   - слова, не являющиеся месяцами, и мусор вроде "1-2" отбрасываются;
//   - если осталось больше 3 элементов, строка игнорируется;
//   - число перед названием месяца (или первое из нескольких) - день;
//   - если названия месяца нет, второе число - месяц;
//   - число сразу после месяца (или единственное число) - год;
//   - что не указано, берется из prev.
//
// Если итоговая дата невалидна, возвращается prev и OK=false.
func (c *Config) ParseDate(text string, prev Date) Parsed {
	res := Parsed{Date: prev}

	type term struct {
		num     int
		isMonth bool
	}

	terms := make([]term, 0, 4)
	monthIdx := -1
	day, month, year := prev.Day, prev.Month, prev.Year

	for _, tok := range reTerms.FindAllString(text, -1) {
		if m, ok := c.findMonth(tok); ok {
			monthIdx = len(terms)
			month = m
			terms = append(terms, term{isMonth: true})
			continue
		}

		n, err := strconv.Atoi(tok)
		if err != nil {
			if isWord(tok) {
				res.Unknown = append(res.Unknown, tok)
			}
			continue
		}
		terms = append(terms, term{num: n})
	}

	if len(terms) > maxTerms {
		return res
	}

	for i, t := range terms {
		if i == monthIdx {
			continue
		}

		switch {
		case i < monthIdx || (i == 0 && len(terms) > 1):
			day = t.num
		case monthIdx == -1 && i == 1:
			month = t.num
			monthIdx = i
		case i == monthIdx+1:
			year = t.num
		}
	}

	d, err := c.NewDate(year, month, day)
	if err != nil {
		return res
	}

	res.Date = d
	res.OK = true
	return res
}

// ParseDate - то же, что Config.ParseDate с календарем prev.
func ParseDate(text string, prev Date) Parsed {
	return prev.cfg.ParseDate(text, prev)
}

func (c *Config) findMonth(tok string) (int, bool) {
	f := fold(tok)
	found := -1
	// Если вдруг совпадут несколько, берем последний, как и при нескольких месяцах в строке.
	for i, name := range c.folded {
		if name == f {
			found = i
		}
	}
	return found + 1, found >= 0
}

// SuggestMonth подбирает ближайшее по расстоянию Левенштейна название месяца для опечатки.
func (c *Config) SuggestMonth(word string) (string, bool) {
	f := fold(word)
	if f == "" {
		return "", false
	}

	type scored struct {
		idx  int
		dist int
	}

	res := make([]scored, 0, len(c.folded))
	for i, name := range c.folded {
		dist := levenshtein.ComputeDistance(f, name)
		if dist > levenshteinLimit(len(name)) {
			continue
		}
		res = append(res, scored{idx: i, dist: dist})
	}
	if len(res) == 0 {
		return "", false
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].dist < res[j].dist
	})
	return c.months[res[0].idx].Name, true
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

func isWord(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

// fold приводит строку к нижнему регистру и убирает диакритику: "Naëril" -> "naeril".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	res, _, err := transform.String(t, s)
	if err != nil {
		res = s
	}
	return strings.ToLower(strings.TrimSpace(res))
}
