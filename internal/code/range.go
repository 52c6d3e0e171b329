package code

import (
	"context"
	"fmt"
	"iter"
	"math"
	"sync"
)

// Range is a lazy, single-use cursor over codes from a start bound (inclusive)
// toward an end bound (exclusive) in increments of step. It is not safe for
// concurrent use; see Stream for a consumer that may block between elements.
type Range struct {
	start Code
	end   Code
	step  int64
	cur   int64
	done  bool
}

// NewRange returns a Range from start toward end. A positive step requires
// start <= end and a negative step requires start >= end; anything else,
// including a zero step, fails with ErrDirection.
func NewRange(start, end Code, step int64) (*Range, error) {
	switch {
	case step == 0:
		return nil, fmt.Errorf("%w: step must be non-zero", ErrDirection)
	case step > 0 && start.value > end.value:
		return nil, fmt.Errorf("%w: step %d but start %s is above end %s", ErrDirection, step, start, end)
	case step < 0 && start.value < end.value:
		return nil, fmt.Errorf("%w: step %d but start %s is below end %s", ErrDirection, step, start, end)
	}
	return &Range{start: start, end: end, step: step, cur: start.value}, nil
}

// UpTo returns a Range from AAA toward end.
func UpTo(end Code, step int64) (*Range, error) {
	return NewRange(Code{}, end, step)
}

// NewRangeN returns a Range covering count codes from start in the direction
// of step. For a negative step the end bound is clamped at AAA, so the range
// never reaches below the origin and may hold fewer than count codes.
func NewRangeN(start Code, count int64, step int64) (*Range, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: count %d is negative", ErrRange, count)
	}
	var (
		end Code
		err error
	)
	switch {
	case step > 0:
		end, err = start.Add(count)
	case step < 0:
		end, err = FromInt(max(start.value-count, 0))
	default:
		return nil, fmt.Errorf("%w: step must be non-zero", ErrDirection)
	}
	if err != nil {
		return nil, err
	}
	return NewRange(start, end, step)
}

// Start returns the inclusive start bound.
func (r *Range) Start() Code { return r.start }

// End returns the exclusive end bound.
func (r *Range) End() Code { return r.end }

// Step returns the signed increment.
func (r *Range) Step() int64 { return r.step }

// Len returns how many codes a fresh Range yields in total.
func (r *Range) Len() int64 {
	dist := r.end.value - r.start.value
	step := r.step
	if step < 0 {
		dist, step = -dist, -step
	}
	if dist <= 0 {
		return 0
	}
	return (dist-1)/step + 1
}

// Next returns the next code and true, or the zero Code and false once the
// range is exhausted. An exhausted Range stays exhausted.
func (r *Range) Next() (Code, bool) {
	if r.done || r.exhausted(r.cur) {
		r.done = true
		return Code{}, false
	}
	current, err := FromInt(r.cur)
	if err != nil {
		r.done = true
		return Code{}, false
	}
	// Stepping past either end of int64 or below AAA ends the sequence cleanly.
	if (r.step > 0 && r.cur > math.MaxInt64-r.step) || r.cur+r.step < 0 {
		r.done = true
	} else {
		r.cur += r.step
	}
	return current, true
}

func (r *Range) exhausted(pos int64) bool {
	if r.step > 0 {
		return pos >= r.end.value
	}
	return pos <= r.end.value
}

// All adapts the Range to a range-over-func iterator. It consumes the Range.
func (r *Range) All() iter.Seq[Code] {
	return func(yield func(Code) bool) {
		for {
			c, ok := r.Next()
			if !ok || !yield(c) {
				return
			}
		}
	}
}

// Stream produces the codes of a Range on a background goroutine so that each
// element is awaited like any other blocking operation. It yields exactly the
// sequence Range.Next would.
type Stream struct {
	codes  <-chan Code
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stream starts producing r on a goroutine that stops when ctx ends, the range
// is exhausted, or Close is called. The Range must not be used directly after.
func (r *Range) Stream(ctx context.Context) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	codes := make(chan Code)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(codes)
		for {
			c, ok := r.Next()
			if !ok {
				return
			}
			select {
			case codes <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return &Stream{codes: codes, cancel: cancel, done: done}
}

// Next waits for the next code. It returns false with a nil error once the
// sequence is exhausted, and ctx.Err() if ctx ends first.
func (s *Stream) Next(ctx context.Context) (Code, bool, error) {
	select {
	case c, ok := <-s.codes:
		return c, ok, nil
	case <-ctx.Done():
		return Code{}, false, fmt.Errorf("await next code: %w", ctx.Err())
	}
}

// Close stops the producer and waits for it to exit. Safe to call repeatedly.
func (s *Stream) Close() {
	s.once.Do(s.cancel)
	<-s.done
}
