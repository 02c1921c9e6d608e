package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	percentRe = regexp.MustCompile(`(\d+)\s*%`)
)

const maxStreamVolume = 150

type stream struct {
	ID      int
	Volume  int
	AppName string
}

type fade struct {
	id   int
	from int
	to   int
}

// Ducker lowers every playback stream except Marvin's own while it listens
// and restores them afterwards.
type Ducker struct {
	mu       sync.Mutex
	active   bool
	self     []string    // application.name values left alone
	original map[int]int // sink input id -> volume before ducking
	floor    int

	pactl func(ctx context.Context, args ...string) ([]byte, error)
}

func NewDucker(self []string, floor int) *Ducker {
	return &Ducker{
		self:     append([]string(nil), self...),
		original: make(map[int]int),
		floor:    clampVolume(floor, maxStreamVolume),
		pactl:    runPactl,
	}
}

// Duck fades the other streams to factor of their volume, never below the
// floor. A second call before Restore does nothing.
func (d *Ducker) Duck(ctx context.Context, factor float64, over time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := d.streams(ctx)
	if err != nil {
		return err
	}

	d.original = make(map[int]int)
	var fades []fade
	for _, s := range streams {
		to := int(math.Round(float64(s.Volume) * factor))
		to = clampVolume(max(to, d.floor), maxStreamVolume)

		d.original[s.ID] = s.Volume
		fades = append(fades, fade{id: s.ID, from: s.Volume, to: to})
	}

	if err := d.fade(ctx, fades, over); err != nil {
		return err
	}
	d.active = true
	return nil
}

// Restore fades ducked streams back. Streams that appeared after Duck are
// not touched.
func (d *Ducker) Restore(ctx context.Context, over time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := d.streams(ctx)
	if err != nil {
		return err
	}

	var fades []fade
	for _, s := range streams {
		if orig, ok := d.original[s.ID]; ok {
			fades = append(fades, fade{id: s.ID, from: s.Volume, to: orig})
		}
	}

	if err := d.fade(ctx, fades, over); err != nil {
		return err
	}
	d.original = make(map[int]int)
	d.active = false
	return nil
}

func (d *Ducker) streams(ctx context.Context) ([]stream, error) {
	out, err := d.pactl(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}

	var res []stream
	for _, s := range parseSinkInputs(string(out)) {
		if !d.isSelf(s) {
			res = append(res, s)
		}
	}
	return res, nil
}

func (d *Ducker) isSelf(s stream) bool {
	for _, name := range d.self {
		if s.AppName == name {
			return true
		}
	}
	return false
}

func (d *Ducker) fade(ctx context.Context, fades []fade, over time.Duration) error {
	if len(fades) == 0 {
		return nil
	}

	const stepEvery = 10 * time.Millisecond

	steps := max(int(over/stepEvery), 1)
	if over <= 0 {
		steps = 0
	}

	for i := 0; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frac := 1.0
		if steps > 0 {
			frac = float64(i) / float64(steps)
		}
		for _, f := range fades {
			v := int(math.Round(float64(f.from) + float64(f.to-f.from)*frac))
			if err := d.setStream(ctx, f.id, v); err != nil {
				return fmt.Errorf("set volume id=%d: %w", f.id, err)
			}
		}

		if i < steps {
			time.Sleep(over / time.Duration(steps))
		}
	}
	return nil
}

func (d *Ducker) setStream(ctx context.Context, id, percent int) error {
	percent = clampVolume(percent, maxStreamVolume)
	_, err := d.pactl(ctx, "set-sink-input-volume", strconv.Itoa(id), fmt.Sprintf("%d%%", percent))
	return err
}

// SetVolume sets the default sink to percent, clamped to [0, 100].
func SetVolume(ctx context.Context, percent int) error {
	percent = clampVolume(percent, 100)
	if _, err := runPactl(ctx, "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("%d%%", percent)); err != nil {
		return fmt.Errorf("pactl set-sink-volume: %w", err)
	}
	return nil
}

// --- pactl ---

func runPactl(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "pactl", args...).Output()
}

// parseSinkInputs reads the output of `pactl list sink-inputs`.
func parseSinkInputs(text string) []stream {
	parts := strings.Split(text, "Sink Input #")
	var res []stream

	for _, block := range parts[1:] {
		newline := strings.IndexByte(block, '\n')
		if newline <= 0 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(block[:newline]))
		if err != nil {
			continue
		}

		s := stream{ID: id}
		for _, line := range strings.Split(block[newline+1:], "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && s.Volume == 0 {
				if m := percentRe.FindStringSubmatch(line); len(m) >= 2 {
					s.Volume, _ = strconv.Atoi(m[1])
				}
			}

			// application.name = "Firefox"
			if strings.HasPrefix(line, "application.name =") && s.AppName == "" {
				if _, quoted, ok := strings.Cut(line, "\""); ok {
					s.AppName, _, _ = strings.Cut(quoted, "\"")
				}
			}
		}

		if s.Volume == 0 && s.AppName == "" {
			continue
		}
		res = append(res, s)
	}
	return res
}

func clampVolume(v, hi int) int {
	return min(max(v, 0), hi)
}
