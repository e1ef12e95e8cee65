package adb

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFilter is returned for malformed tag filter expressions
var ErrInvalidFilter = errors.New("invalid tag filter")

// Priority is a logcat priority letter
type Priority string

const (
	PriorityVerbose Priority = "V"
	PriorityDebug   Priority = "D"
	PriorityInfo    Priority = "I"
	PriorityWarn    Priority = "W"
	PriorityError   Priority = "E"
	PriorityFatal   Priority = "F"
	PrioritySilent  Priority = "S"
)

// Valid reports whether p is a known priority letter
func (p Priority) Valid() bool {
	switch p {
	case PriorityVerbose, PriorityDebug, PriorityInfo, PriorityWarn,
		PriorityError, PriorityFatal, PrioritySilent:
		return true
	}
	return false
}

// TagPriority selects one tag at a minimum priority
type TagPriority struct {
	Tag      string
	Priority Priority
}

func (tp TagPriority) String() string {
	return tp.Tag + ":" + string(tp.Priority)
}

// Filter is the tag/priority expression handed to logcat.
// When Silence is set every other tag is suppressed with "*:S".
type Filter struct {
	Tags    []TagPriority
	Silence bool
}

// DefaultTag is the application component the tool watches by default
const DefaultTag = "AudioPlayerService"

// DefaultFilter selects DefaultTag at debug level and silences the rest
func DefaultFilter() Filter {
	return SingleTag(DefaultTag, PriorityDebug)
}

// SingleTag builds a filter for one tag with everything else silenced
func SingleTag(tag string, priority Priority) Filter {
	return Filter{
		Tags:    []TagPriority{{Tag: tag, Priority: priority}},
		Silence: true,
	}
}

// Specs returns the filter as logcat arguments
func (f Filter) Specs() []string {
	specs := make([]string, 0, len(f.Tags)+1)
	for _, tp := range f.Tags {
		specs = append(specs, tp.String())
	}
	if f.Silence {
		specs = append(specs, "*:S")
	}
	return specs
}

func (f Filter) String() string {
	return strings.Join(f.Specs(), " ")
}

// Validate checks every tag spec
func (f Filter) Validate() error {
	if len(f.Tags) == 0 {
		return fmt.Errorf("%w: no tags", ErrInvalidFilter)
	}
	for _, tp := range f.Tags {
		if tp.Tag == "" {
			return fmt.Errorf("%w: empty tag", ErrInvalidFilter)
		}
		if strings.ContainsAny(tp.Tag, " \t\r\n:") {
			return fmt.Errorf("%w: tag %q contains whitespace or ':'", ErrInvalidFilter, tp.Tag)
		}
		if !tp.Priority.Valid() {
			return fmt.Errorf("%w: unknown priority %q for tag %s", ErrInvalidFilter, tp.Priority, tp.Tag)
		}
	}
	return nil
}

// ParseFilter parses a comma or space separated list of Tag:P specs,
// e.g. "AudioPlayerService:D,ExoPlayerImpl:I". A trailing "*:S" is
// accepted and sets Silence; otherwise Silence defaults to true.
func ParseFilter(expr string) (Filter, error) {
	fields := strings.FieldsFunc(expr, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	f := Filter{Silence: true}
	for _, field := range fields {
		if field == "*:S" {
			continue
		}
		idx := strings.LastIndex(field, ":")
		if idx <= 0 || idx == len(field)-1 {
			return Filter{}, fmt.Errorf("%w: %q is not Tag:Priority", ErrInvalidFilter, field)
		}
		tag := field[:idx]
		if tag == "*" {
			return Filter{}, fmt.Errorf("%w: only *:S is supported for the wildcard", ErrInvalidFilter)
		}
		f.Tags = append(f.Tags, TagPriority{
			Tag:      tag,
			Priority: Priority(strings.ToUpper(field[idx+1:])),
		})
	}

	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}
