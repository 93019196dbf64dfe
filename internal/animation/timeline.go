package animation

import (
	"log/slog"
	"maps"
	"math"

	"github.com/atlanticdynamic/inklynx/internal/interpolation"
)

// maxTickDelta bounds one playback step. A larger delta means the host was
// suspended; advancing by it would cause a visible jump, so the tick is
// treated as a no-op instead.
const maxTickDelta = 0.5

// DispatchFunc receives merged control values when a displayed frame
// changes. time is the timeline position in seconds; seek marks a
// user-intentional scrub, which bypasses the dirty-flag gate downstream.
type DispatchFunc func(values map[string]any, time float64, seek bool)

// Timeline drives playback of one animation. It owns its own clock state
// (current time, playing flag) and references, but does not own, the
// caller-supplied baseline control values. Not safe for concurrent use.
type Timeline struct {
	anim      *Animation
	keyframes []Keyframe
	baseline  map[string]any
	dispatch  DispatchFunc

	currentTime float64
	playing     bool

	// lastFrameIndex quantizes dispatches to discrete frames;
	// lastDispatched is the dirty-flag reference. Together they stop the
	// runtime from re-executing the script once an animation's tail is
	// frozen past its last keyframe.
	lastFrameIndex int
	lastDispatched map[string]any
	onComplete     func()
	logger         *slog.Logger
}

// NewTimeline creates a playback timeline over anim. baseline supplies
// values for any control the keyframes never touch; dispatch receives the
// merged values whenever a new frame is due.
func NewTimeline(anim *Animation, baseline map[string]any, dispatch DispatchFunc, logger *slog.Logger) *Timeline {
	if logger == nil {
		logger = slog.Default()
	}
	// Frame 0 counts as already displayed: ticks dispatch only once the
	// discrete frame index moves past it.
	return &Timeline{
		anim:      anim,
		keyframes: anim.SortedKeyframes(),
		baseline:  baseline,
		dispatch:  dispatch,
		logger:    logger.With("component", "timeline", "animation_id", anim.ID),
	}
}

// SetOnComplete registers a callback fired when a non-looping animation
// reaches its duration.
func (tl *Timeline) SetOnComplete(fn func()) { tl.onComplete = fn }

// CurrentTime returns the playback position in seconds.
func (tl *Timeline) CurrentTime() float64 { return tl.currentTime }

// IsPlaying reports whether playback is advancing.
func (tl *Timeline) IsPlaying() bool { return tl.playing }

// Play starts or resumes playback.
func (tl *Timeline) Play() { tl.playing = true }

// Pause halts playback, keeping the current position.
func (tl *Timeline) Pause() { tl.playing = false }

// Interpolate returns the control values at time. Before the first
// keyframe the first keyframe's values apply verbatim; past the last
// keyframe the animation freezes on the last keyframe's values. Between a
// bracketing pair, each control value interpolates by its type.
func (tl *Timeline) Interpolate(time float64) map[string]any {
	kfs := tl.keyframes
	if len(kfs) == 0 {
		return nil
	}
	if time <= kfs[0].Time {
		return maps.Clone(kfs[0].Values)
	}
	last := kfs[len(kfs)-1]
	if time >= last.Time {
		return maps.Clone(last.Values)
	}

	var lower, upper Keyframe
	for i := 0; i < len(kfs)-1; i++ {
		if time >= kfs[i].Time && time <= kfs[i+1].Time {
			lower, upper = kfs[i], kfs[i+1]
			break
		}
	}

	span := upper.Time - lower.Time
	if span == 0 {
		return maps.Clone(upper.Values)
	}
	t := (time - lower.Time) / span

	out := make(map[string]any, len(lower.Values))
	for label, lv := range lower.Values {
		if uv, ok := upper.Values[label]; ok {
			out[label] = interpolation.Control(lv, uv, t)
		} else {
			out[label] = lv
		}
	}
	return out
}

// FrameValues returns the interpolated control values at a discrete frame
// index (frameIndex / fps seconds), without baseline merging.
func (tl *Timeline) FrameValues(frameIndex int) map[string]any {
	return tl.Interpolate(float64(frameIndex) / tl.anim.FPS)
}

// Tick advances playback by delta seconds and dispatches when the
// displayed frame changed. Returns true when a dispatch happened.
//
// Deltas larger than half a second (the host was suspended, or a debugger
// paused the process) are swallowed rather than causing a visible jump.
// On reaching the duration a looping animation wraps by modulo; otherwise
// the timeline clamps, stops, and signals completion.
func (tl *Timeline) Tick(delta float64) bool {
	if !tl.playing || delta <= 0 {
		return false
	}
	if delta > maxTickDelta {
		tl.logger.Debug("clamping oversized tick", "delta", delta)
		return false
	}

	tl.currentTime += delta
	if tl.currentTime >= tl.anim.Duration {
		if tl.anim.Loop {
			tl.currentTime = math.Mod(tl.currentTime, tl.anim.Duration)
		} else {
			tl.currentTime = tl.anim.Duration
			tl.playing = false
			defer tl.signalComplete()
		}
	}

	frameIndex := int(math.Floor(tl.currentTime * tl.anim.FPS))
	if frameIndex == tl.lastFrameIndex {
		return false
	}
	tl.lastFrameIndex = frameIndex

	merged := tl.merged(tl.currentTime)
	if valuesEqual(merged, tl.lastDispatched) {
		return false
	}

	tl.lastDispatched = merged
	if tl.dispatch != nil {
		tl.dispatch(merged, tl.currentTime, false)
	}
	return true
}

// Seek scrubs to an explicit time and always dispatches: an intentional
// user action repaints even when the values match the last dispatch.
func (tl *Timeline) Seek(time float64) {
	if time < 0 {
		time = 0
	}
	if time > tl.anim.Duration {
		time = tl.anim.Duration
	}
	tl.currentTime = time
	tl.lastFrameIndex = int(math.Floor(time * tl.anim.FPS))

	merged := tl.merged(time)
	tl.lastDispatched = merged
	if tl.dispatch != nil {
		tl.dispatch(merged, time, true)
	}
}

// Stop halts playback, resets to time zero, and unconditionally dispatches
// the first keyframe's values.
func (tl *Timeline) Stop() {
	tl.playing = false
	tl.currentTime = 0
	tl.lastFrameIndex = 0

	merged := tl.merged(0)
	tl.lastDispatched = merged
	if tl.dispatch != nil {
		tl.dispatch(merged, 0, true)
	}
}

// merged lays the interpolated values over the baseline, so controls the
// keyframes never touch keep their user-set values.
func (tl *Timeline) merged(time float64) map[string]any {
	out := make(map[string]any, len(tl.baseline))
	maps.Copy(out, tl.baseline)
	maps.Copy(out, tl.Interpolate(time))
	return out
}

func (tl *Timeline) signalComplete() {
	tl.logger.Debug("animation complete")
	if tl.onComplete != nil {
		tl.onComplete()
	}
}

// valuesEqual compares two dispatch payloads shallowly per key, recursing
// one level into record-shaped values. Deeper structures compare by that
// one level only, which is cheap and sufficient for control values.
func valuesEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !leafEqual(av, bv, true) {
			return false
		}
	}
	return true
}

func leafEqual(a, b any, recurse bool) bool {
	if af, ok := interpolation.AsFloat(a); ok {
		bf, ok := interpolation.AsFloat(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case string:
		bs, ok := b.(string)
		return ok && av == bs
	case bool:
		bb, ok := b.(bool)
		return ok && av == bb
	case nil:
		return b == nil
	case map[string]any:
		bm, ok := b.(map[string]any)
		if !ok || !recurse || len(av) != len(bm) {
			return false
		}
		for k, v := range av {
			w, present := bm[k]
			if !present || !leafEqual(v, w, false) {
				return false
			}
		}
		return true
	case []any:
		bs, ok := b.([]any)
		if !ok || !recurse || len(av) != len(bs) {
			return false
		}
		for i := range av {
			if !leafEqual(av[i], bs[i], false) {
				return false
			}
		}
		return true
	}
	return false
}
