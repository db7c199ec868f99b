package clock

import (
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/todo-api/internal/domain/auth/errors"
	"go.uber.org/zap"
)

const (
	SecondsInMinute = 60
	SecondsInHour   = 60 * SecondsInMinute
)

// Source yields the current time. A zero time means the source could not
// produce a reading.
type Source func() time.Time

// Clock reads wall time from a primary source and falls back to the system
// clock when the primary one fails. It never returns an error.
type Clock struct {
	primary  Source
	fallback Source
	log      *zap.Logger
}

type Option func(*Clock)

func WithSource(s Source) Option {
	return func(c *Clock) { c.primary = s }
}

func WithFallback(s Source) Option {
	return func(c *Clock) { c.fallback = s }
}

func New(log *zap.Logger, opts ...Option) *Clock {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Clock{primary: time.Now, fallback: time.Now, log: log}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Now returns the current time in seconds since the epoch.
func (c *Clock) Now() int64 {
	return c.NowTime().Unix()
}

func (c *Clock) NowTime() time.Time {
	if now, ok := read(c.primary); ok {
		return now
	}
	c.log.Warn("primary time source failed, using fallback",
		zap.Error(customErrors.ErrClockFallback))

	if now, ok := read(c.fallback); ok {
		return now
	}
	return time.Now()
}

// IsPast reports whether t lies strictly before the current second.
func (c *Clock) IsPast(t time.Time) bool {
	return t.Unix() < c.Now()
}

func read(s Source) (now time.Time, ok bool) {
	if s == nil {
		return time.Time{}, false
	}
	defer func() {
		if r := recover(); r != nil {
			now, ok = time.Time{}, false
		}
	}()
	now = s()
	return now, !now.IsZero()
}
