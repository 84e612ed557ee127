package astro

import (
	"fmt"
	"math"

	"github.com/nvkalinin/fantasy-calendar/calendar"
)

// Полупериод длины дня Ghea в днях.
const gheaCycle = 182

// Transit - восход и заход светила. Rise и Set - доли суток в [0, 1).
type Transit struct {
	Rise   float64 `json:"rise"`
	Set    float64 `json:"set"`
	RiseAt string  `json:"riseAt"`
	SetAt  string  `json:"setAt"`
}

func newTransit(rise, length float64) Transit {
	set := calendar.FMod(rise+length, 1)
	return Transit{
		Rise:   rise,
		Set:    set,
		RiseAt: FormatTime(rise),
		SetAt:  FormatTime(set),
	}
}

type Times struct {
	Salos Transit `json:"salos"`
	Vol   Transit `json:"vol"`
	Ghea  Transit `json:"ghea"`
}

// RiseSet считает время восхода и захода Salos, Vol и Ghea.
//
// Длина дня Salos плавно меняется в течение года от 5/12 до 7/12 суток, середина дня - в 13:00.
// Vol восходит каждый день на долю года позже Salos и светит столько же. Ghea восходит 13 раз за год,
// длина его дня меняется с периодом в 182 дня от эпохи.
func RiseSet(d calendar.Date) Times {
	yearFrac := float64(calendar.DaysSinceNewYear(d)) / float64(d.Config().DaysPerYear())

	dayLength := -math.Cos(yearFrac*math.Pi)/12 + 0.5
	gheaLength := -math.Cos(float64(calendar.Mod(calendar.DaysSinceEpoch(d), gheaCycle))*math.Pi/gheaCycle)/12 + 0.5

	salosRise := 13.0/24 - dayLength/2
	volRise := calendar.FMod(salosRise+yearFrac, 1)
	gheaRise := calendar.FMod(yearFrac*13, 1)

	return Times{
		Salos: newTransit(salosRise, dayLength),
		Vol:   newTransit(volRise, dayLength),
		Ghea:  newTransit(gheaRise, gheaLength),
	}
}

// FormatTime переводит долю суток в 12-часовой формат: 0.5 -> "12:00 PM".
func FormatTime(frac float64) string {
	minutes := calendar.Mod(int(math.Round(frac*1440)), 1440)
	hours := minutes / 60
	minutes %= 60

	suffix := "AM"
	if hours >= 12 {
		suffix = "PM"
	}

	switch {
	case hours == 0:
		hours = 12
	case hours > 12:
		hours -= 12
	}

	return fmt.Sprintf("%d:%02d %s", hours, minutes, suffix)
}
