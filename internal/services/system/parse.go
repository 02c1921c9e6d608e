package system

import (
	"errors"
	"math"
	"strings"
	"time"

	"marvin/internal/spoken"
)

var (
	ErrVolumeValue = errors.New("volume is not a number")
	ErrVolumeRange = errors.New("volume out of range")
)

// maxTimer bounds timers well below the time.Duration limit.
const maxTimer = 24 * time.Hour

// ParseDuration reads "5 minutos", "1 hora", "0,5 hora" or "dez segundos".
// A bare number is seconds.
func ParseDuration(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}

	v, ok := spoken.Float(fields[0])
	if !ok || v <= 0 {
		return 0, false
	}

	unit := time.Second
	switch {
	case strings.Contains(s, "hora"):
		unit = time.Hour
	case strings.Contains(s, "minuto"):
		unit = time.Minute
	}

	d := v * float64(unit)
	if d > float64(maxTimer) {
		return 0, false
	}
	return time.Duration(math.Round(d)), true
}

// ParseVolume reads "50", "75%" or "cinquenta" as a percentage in [0, 100].
func ParseVolume(s string) (int, error) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "%", ""))
	raw = strings.TrimSuffix(strings.TrimSuffix(raw, " por cento"), " porcento")

	v, ok := spoken.Float(raw)
	if !ok {
		return 0, ErrVolumeValue
	}
	if !(v >= 0 && v <= 100) {
		return 0, ErrVolumeRange
	}
	return int(v), nil
}
