package ook

import (
	"errors"
	"testing"
	"time"
)

// scriptedLine returns one scripted result per Read.
type scriptedLine struct {
	levels []bool
	errs   []error
	i      int
}

func (s *scriptedLine) Read() (bool, error) {
	i := s.i
	s.i++
	return s.levels[i], s.errs[i]
}

func TestStepClock(t *testing.T) {
	clock := StepClock(250 * time.Microsecond)
	for i := 0; i < 4; i++ {
		if got, want := clock(), time.Duration(i)*250*time.Microsecond; got != want {
			t.Errorf("call %d: got %v, want %v", i, got, want)
		}
	}
}

func TestLineSamplerRepeatsLastLevelOnError(t *testing.T) {
	boom := errors.New("read failed")
	line := &scriptedLine{
		levels: []bool{true, false, false, false},
		errs:   []error{nil, boom, boom, nil},
	}
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewLineSamplerWithClock(line, epoch, StepClock(time.Millisecond))

	want := []Level{Carrier, Carrier, Carrier, NoCarrier}
	for i, w := range want {
		level, now := s.Sample()
		if level != w {
			t.Errorf("sample %d: got %s, want %s", i, level, w)
		}
		if now != time.Duration(i)*time.Millisecond {
			t.Errorf("sample %d: timestamp %v", i, now)
		}
	}
	if s.ReadErrors() != 2 {
		t.Errorf("read errors: got %d, want 2", s.ReadErrors())
	}
	if !s.Epoch().Equal(epoch) {
		t.Errorf("epoch: got %v, want %v", s.Epoch(), epoch)
	}
}

func TestLineSamplerStartsIdle(t *testing.T) {
	line := &scriptedLine{levels: []bool{true}, errs: []error{errors.New("no line")}}
	s := NewLineSamplerWithClock(line, time.Time{}, StepClock(time.Millisecond))
	if level, _ := s.Sample(); level != NoCarrier {
		t.Errorf("got %s, want NO_CARRIER before any good read", level)
	}
}
