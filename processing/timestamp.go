package processing

import (
	"errors"
	"fmt"
	"time"

	_ "time/tzdata" // Zone lookups must not depend on the host's zoneinfo
)

// Canonical inbound time stamp layouts: YYYY-MM-DDTHH:MM:SS followed by a
// numeric UTC offset, with or without the colon. "Z" is not accepted.
const (
	LayoutNumericOffset      = "2006-01-02T15:04:05-0700"
	LayoutNumericOffsetColon = "2006-01-02T15:04:05-07:00"
)

// Defaults for the normalizer
const (
	DefaultSourceTimezone = "US/Eastern"
	DefaultTargetTimezone = "UTC"
)

// DefaultLayouts are tried in order when no layouts are configured
var DefaultLayouts = []string{LayoutNumericOffset, LayoutNumericOffsetColon}

var (
	ErrUnparseableTimestamp = errors.New("timestamp does not match the expected format")
	ErrUnknownTimeZone      = errors.New("unknown time zone")
)

// Normalizer converts time stamp text into an instant in the target zone
type Normalizer struct {
	source  *time.Location
	target  *time.Location
	layouts []string
}

// NewNormalizer resolves both zones up front. Empty zone names fall back to
// the defaults and no layouts means DefaultLayouts.
func NewNormalizer(sourceTZ, targetTZ string, layouts ...string) (*Normalizer, error) {
	if sourceTZ == "" {
		sourceTZ = DefaultSourceTimezone
	}
	if targetTZ == "" {
		targetTZ = DefaultTargetTimezone
	}
	source, err := loadLocation(sourceTZ)
	if err != nil {
		return nil, err
	}
	target, err := loadLocation(targetTZ)
	if err != nil {
		return nil, err
	}
	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}
	return &Normalizer{
		source:  source,
		target:  target,
		layouts: append([]string(nil), layouts...),
	}, nil
}

// Normalize parses text with the first matching layout. An offset in the text
// wins; without one the wall clock is read in the source zone.
func (n *Normalizer) Normalize(text string) (time.Time, error) {
	for _, layout := range n.layouts {
		t, err := time.ParseInLocation(layout, text, n.source)
		if err == nil {
			return t.In(n.target), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableTimestamp, text)
}

// Target returns the zone results are expressed in
func (n *Normalizer) Target() *time.Location {
	return n.target
}

// NormalizeTimestamp is the one-shot form of NewNormalizer(...).Normalize(text)
func NormalizeTimestamp(text, sourceTZ, targetTZ string, layouts ...string) (time.Time, error) {
	n, err := NewNormalizer(sourceTZ, targetTZ, layouts...)
	if err != nil {
		return time.Time{}, err
	}
	return n.Normalize(text)
}

func loadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimeZone, name)
	}
	return loc, nil
}
