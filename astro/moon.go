// Package astro считает фазы лун Salos и Vol и время восхода/захода светил для даты вымышленного календаря.
// Все функции чистые: результат зависит только от даты.
package astro

import (
	"math"

	"github.com/nvkalinin/fantasy-calendar/calendar"
)

// Период обеих лун в днях.
const lunarPeriod = 16.0

// Phase - положение в цикле: 0 - новолуние, 0.25 - первая четверть, 0.5 - полнолуние, 0.75 - последняя четверть.
type Phase float64

func (p Phase) Name() string {
	switch {
	case p < 0.0625:
		return "new"
	case p < 0.1875:
		return "waxing crescent"
	case p < 0.3125:
		return "first quarter"
	case p < 0.4375:
		return "waxing gibbous"
	case p < 0.5625:
		return "full"
	case p < 0.6875:
		return "waning gibbous"
	case p < 0.8125:
		return "last quarter"
	case p < 0.9375:
		return "waning crescent"
	default:
		return "new"
	}
}

// Светлая половина диска видна между первой и последней четвертью.
func (p Phase) lit() bool {
	return p >= 0.25 && p <= 0.75
}

// SalosPhase - параметры отрисовки Salos: маска, повернутая на MaskRotation градусов вокруг вертикальной оси,
// поверх диска, повернутого на DiskRotation.
type SalosPhase struct {
	Phase        Phase   `json:"phase"`
	Name         string  `json:"name"`
	MaskVisible  bool    `json:"maskVisible"`
	MaskRotation float64 `json:"maskRotation"`
	DiskRotation float64 `json:"diskRotation"`
}

// VolPhase - параметры отрисовки Vol. EllipseWidth - ширина эллипса маски диска в процентах, со знаком.
type VolPhase struct {
	Phase        Phase   `json:"phase"`
	Name         string  `json:"name"`
	MaskOpacity  float64 `json:"maskOpacity"`
	MaskRotation float64 `json:"maskRotation"`
	DiskRotation float64 `json:"diskRotation"`
	EllipseWidth float64 `json:"ellipseWidth"`
}

// Salos - фаза первой луны, период 16 дней от эпохи.
func Salos(d calendar.Date) SalosPhase {
	p := Phase(calendar.FMod(float64(calendar.DaysSinceEpoch(d))/lunarPeriod+0.25, 1))

	return SalosPhase{
		Phase:        p,
		Name:         p.Name(),
		MaskVisible:  p.lit(),
		MaskRotation: float64(p) * 360,
		DiskRotation: diskRotation(p),
	}
}

// Vol - фаза второй луны. Период тот же, что у Salos, но за год Vol делает на один оборот больше.
func Vol(d calendar.Date) VolPhase {
	offset := float64(calendar.DaysSinceNewYear(d)) / float64(d.Config().DaysPerYear())
	p := Phase(calendar.FMod(float64(calendar.DaysSinceEpoch(d))/lunarPeriod+0.25+offset, 1))

	res := VolPhase{
		Phase:        p,
		Name:         p.Name(),
		MaskRotation: float64(p) * 360,
		DiskRotation: diskRotation(p),
	}
	if p.lit() {
		res.MaskOpacity = 1
	} else {
		res.EllipseWidth = math.Sin((float64(p)+0.25)*math.Pi*2) * 100
	}
	return res
}

func diskRotation(p Phase) float64 {
	if p >= 0.5 {
		return 180
	}
	return 0
}
