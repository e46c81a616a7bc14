package greed

import "time"

// Draft is the in-memory segment stack for the active turn. Segments
// are pushed in entry order and only the most recent can be removed;
// nothing is persisted until the turn is banked or busted.
type Draft struct {
	segments []TurnScoreSegment
	now      func() time.Time
}

func (d *Draft) clock() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}

// AddPreset pushes a preset score segment.
func (d *Draft) AddPreset(points int) {
	d.push(TurnScoreSegment{Points: points, Source: SegmentPreset, At: d.clock()})
}

// AddCustom pushes a manually entered score segment.
func (d *Draft) AddCustom(points int) {
	d.push(TurnScoreSegment{Points: points, Source: SegmentCustom, At: d.clock()})
}

// AddCarryOver pushes the previous player's banked amount as a free
// starting segment. Callers are responsible for eligibility checks.
func (d *Draft) AddCarryOver(points int, label string) {
	d.push(TurnScoreSegment{Points: points, Source: SegmentCarryOver, Label: label, At: d.clock()})
}

func (d *Draft) push(seg TurnScoreSegment) {
	d.segments = append(d.segments, seg)
}

// RemoveLast pops the most recently added segment.
func (d *Draft) RemoveLast() (TurnScoreSegment, bool) {
	if len(d.segments) == 0 {
		return TurnScoreSegment{}, false
	}
	last := d.segments[len(d.segments)-1]
	d.segments = d.segments[:len(d.segments)-1]
	return last, true
}

// Clear discards all segments.
func (d *Draft) Clear() {
	d.segments = nil
}

// Points is the draft's running sum.
func (d *Draft) Points() int {
	return SumSegments(d.segments)
}

// Len returns the number of segments.
func (d *Draft) Len() int {
	return len(d.segments)
}

// Empty reports whether no segments have been added.
func (d *Draft) Empty() bool {
	return len(d.segments) == 0
}

// HasCarryOver reports whether any segment is a carry-over.
func (d *Draft) HasCarryOver() bool {
	for _, s := range d.segments {
		if s.Source == SegmentCarryOver {
			return true
		}
	}
	return false
}

// Segments returns a copy of the segment list in entry order.
func (d *Draft) Segments() []TurnScoreSegment {
	return append([]TurnScoreSegment(nil), d.segments...)
}
