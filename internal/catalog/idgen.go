package catalog

import (
	"fmt"
	"time"
)

// IDGenerator hands out item ids. Implementations are not safe for concurrent
// use; stores call Next while holding their write lock.
type IDGenerator interface {
	Next() int64
	// Observe tells the generator about an id already in the collection so
	// later ids never collide with it.
	Observe(id int64)
}

// ClockIDs derives ids from the wall clock in milliseconds. Two creates in
// the same millisecond would collide under a plain clock read, so an id that
// would not exceed the last one issued is bumped to last+1.
type ClockIDs struct {
	now  func() time.Time
	last int64
}

func NewClockIDs(now func() time.Time) *ClockIDs {
	if now == nil {
		now = time.Now
	}
	return &ClockIDs{now: now}
}

func (g *ClockIDs) Next() int64 {
	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

func (g *ClockIDs) Observe(id int64) {
	if id > g.last {
		g.last = id
	}
}

// CounterIDs is a plain increasing counter.
type CounterIDs struct {
	last int64
}

func (g *CounterIDs) Next() int64 {
	g.last++
	return g.last
}

func (g *CounterIDs) Observe(id int64) {
	if id > g.last {
		g.last = id
	}
}

// NewIDGenerator maps a configured scheme name to a generator.
func NewIDGenerator(scheme string) (IDGenerator, error) {
	switch scheme {
	case "", "time":
		return NewClockIDs(nil), nil
	case "counter":
		return &CounterIDs{}, nil
	default:
		return nil, fmt.Errorf("unknown id scheme %q", scheme)
	}
}
