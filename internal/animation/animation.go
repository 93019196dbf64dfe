// Package animation implements the keyframe animation runtime: a timeline
// that interpolates control values between keyframes, merges them onto a
// caller-supplied baseline, and dispatches execution requests only when a
// displayed frame would actually differ from the last one dispatched.
package animation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gofrs/uuid/v5"
)

var (
	// ErrAnimation is the base error type for animation errors.
	ErrAnimation = errors.New("animation error")

	// ErrNoKeyframes indicates an animation with an empty keyframe list.
	ErrNoKeyframes = fmt.Errorf("%w: no keyframes", ErrAnimation)

	// ErrInvalidFPS indicates a non-positive frame rate.
	ErrInvalidFPS = fmt.Errorf("%w: fps must be positive", ErrAnimation)

	// ErrNegativeKeyframeTime indicates a keyframe placed before time zero.
	ErrNegativeKeyframeTime = fmt.Errorf("%w: negative keyframe time", ErrAnimation)

	// ErrDurationTooShort indicates a duration shorter than the last
	// keyframe's time.
	ErrDurationTooShort = fmt.Errorf("%w: duration shorter than last keyframe", ErrAnimation)
)

// Keyframe pins a set of control values to a point on the timeline.
type Keyframe struct {
	ID     string         `json:"id"`
	Time   float64        `json:"time"`
	Values map[string]any `json:"controlValues"`
	Label  string         `json:"label,omitempty"`
}

// Animation is a keyframe timeline declared by a script. Keyframes may be
// stored in any order; they are sorted on use.
type Animation struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Keyframes []Keyframe `json:"keyframes"`
	Duration  float64    `json:"duration"`
	FPS       float64    `json:"fps"`
	Loop      bool       `json:"loop"`
}

// New builds an animation with a fresh id, stretching duration to cover
// the last keyframe when the caller passed something shorter.
func New(ownerID string, duration, fps float64, loop bool, keyframes []Keyframe) (*Animation, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("%w: generating id: %w", ErrAnimation, err)
	}

	a := &Animation{
		ID:        id.String(),
		OwnerID:   ownerID,
		Keyframes: keyframes,
		Duration:  duration,
		FPS:       fps,
		Loop:      loop,
	}
	if last := a.lastKeyframeTime(); a.Duration < last {
		a.Duration = last
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks the animation's invariants.
func (a *Animation) Validate() error {
	var errs []error

	if len(a.Keyframes) == 0 {
		errs = append(errs, ErrNoKeyframes)
	}
	if a.FPS <= 0 {
		errs = append(errs, ErrInvalidFPS)
	}
	for _, kf := range a.Keyframes {
		if kf.Time < 0 {
			errs = append(errs, fmt.Errorf("%w: keyframe %q at %v", ErrNegativeKeyframeTime, kf.ID, kf.Time))
		}
	}
	if a.Duration < a.lastKeyframeTime() {
		errs = append(errs, ErrDurationTooShort)
	}

	return errors.Join(errs...)
}

// SortedKeyframes returns the keyframes ordered by time.
func (a *Animation) SortedKeyframes() []Keyframe {
	sorted := make([]Keyframe, len(a.Keyframes))
	copy(sorted, a.Keyframes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time < sorted[j].Time
	})
	return sorted
}

// String returns a short description for logs.
func (a *Animation) String() string {
	if a == nil {
		return "Animation(nil)"
	}
	return fmt.Sprintf("Animation(%s: %d keyframes, %.2fs @ %.0ffps, loop=%t)",
		a.ID, len(a.Keyframes), a.Duration, a.FPS, a.Loop)
}

func (a *Animation) lastKeyframeTime() float64 {
	last := 0.0
	for _, kf := range a.Keyframes {
		if kf.Time > last {
			last = kf.Time
		}
	}
	return last
}
