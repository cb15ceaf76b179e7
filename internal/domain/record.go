package domain

import (
	"math"
	"time"
)

type AvatarID string

const (
	MaxChildCount        = 12
	DefaultGestationTime = 8.0
	DefaultGestationUnit = UnitHours
)

// ChildRecord is the persisted gestation state of one avatar.
//
// ConceptionTime is nil exactly when ChildCount is zero. Mutators replace the
// pointer instead of writing through it, so copies of a record never share
// a timestamp that can change under them.
type ChildRecord struct {
	ConceptionTime *time.Time
	GestationTime  float64
	Unit           GestationUnit
	ChildCount     uint8
}

func DefaultChildRecord() ChildRecord {
	return ChildRecord{
		GestationTime: DefaultGestationTime,
		Unit:          DefaultGestationUnit,
	}
}

// Normalize repairs a record loaded from an older or hand-edited store.
func (r *ChildRecord) Normalize() {
	if r.ChildCount > MaxChildCount {
		r.ChildCount = MaxChildCount
	}
	if r.ChildCount == 0 {
		r.ConceptionTime = nil
	}
	if !validGestationTime(r.GestationTime) {
		r.GestationTime = DefaultGestationTime
	}
	if !r.Unit.Valid() {
		r.Unit = DefaultGestationUnit
	}
}

// TotalSeconds is the full gestation duration in seconds.
func (r ChildRecord) TotalSeconds() float64 {
	return r.GestationTime * float64(r.Unit.Seconds())
}

// Progress returns the elapsed fraction of the gestation, clamped to [0, 1].
// It is 0 when there are no children or no conception time.
func (r ChildRecord) Progress(now time.Time) float64 {
	if r.ChildCount == 0 || r.ConceptionTime == nil {
		return 0
	}

	total := r.TotalSeconds()
	if total <= 0 {
		return 1
	}

	elapsed := float64(now.Sub(*r.ConceptionTime) / time.Second)
	return clamp01(elapsed / total)
}

// EstimatedCompletion returns conception time plus the gestation duration,
// truncated to whole seconds. Without a conception time it returns now.
func (r ChildRecord) EstimatedCompletion(now time.Time) time.Time {
	if r.ConceptionTime == nil {
		return now
	}

	seconds := r.TotalSeconds()
	if seconds > float64(math.MaxInt64/int64(time.Second)) {
		seconds = float64(math.MaxInt64 / int64(time.Second))
	}

	return r.ConceptionTime.Add(time.Duration(int64(seconds)) * time.Second)
}

// Remaining returns the time left until EstimatedCompletion, never negative.
func (r ChildRecord) Remaining(now time.Time) time.Duration {
	if r.ConceptionTime == nil {
		return 0
	}

	remaining := r.EstimatedCompletion(now).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ObserveChildCount applies a count reported by the peer. Only increases are
// applied; the first increase from an unset conception time stamps it.
func (r *ChildRecord) ObserveChildCount(count int, now time.Time) bool {
	if count > MaxChildCount {
		count = MaxChildCount
	}
	if count <= int(r.ChildCount) {
		return false
	}

	r.ChildCount = uint8(count)
	if r.ConceptionTime == nil {
		r.ConceptionTime = timePtr(now)
	}
	return true
}

func (r *ChildRecord) AddChild(now time.Time) bool {
	if r.ChildCount >= MaxChildCount {
		return false
	}

	if r.ConceptionTime == nil {
		r.ConceptionTime = timePtr(now)
	}
	r.ChildCount++
	return true
}

// RemoveChild decrements the count. Reaching zero clears the conception time;
// any other decrement leaves it untouched.
func (r *ChildRecord) RemoveChild() bool {
	if r.ChildCount == 0 {
		return false
	}

	r.ChildCount--
	if r.ChildCount == 0 {
		r.ConceptionTime = nil
	}
	return true
}

func (r *ChildRecord) ResetConception(now time.Time) bool {
	if r.ChildCount == 0 {
		return false
	}

	r.ConceptionTime = timePtr(now)
	return true
}

func (r *ChildRecord) SetGestationTime(value float64) error {
	if !validGestationTime(value) {
		return ErrInvalidGestationTime
	}

	r.GestationTime = value
	return nil
}

// ConvertUnit switches to unit while keeping the total duration unchanged.
func (r *ChildRecord) ConvertUnit(unit GestationUnit) error {
	if !unit.Valid() {
		return ErrInvalidGestationUnit
	}

	r.GestationTime = r.GestationTime * float64(r.Unit.Seconds()) / float64(unit.Seconds())
	r.Unit = unit
	return nil
}

func validGestationTime(value float64) bool {
	return value > 0 && !math.IsInf(value, 0) && !math.IsNaN(value)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func timePtr(t time.Time) *time.Time {
	return &t
}
