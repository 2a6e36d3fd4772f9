package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Field is one of the five grouping dimensions.
type Field int

const (
	FieldAirline Field = iota
	FieldHour
	FieldMonth
	FieldOrigin
	FieldDayOfWeek
)

// keyFields is the ordered grouping domain. A level keeps a prefix of it.
var keyFields = [...]Field{FieldAirline, FieldHour, FieldMonth, FieldOrigin, FieldDayOfWeek}

func (f Field) String() string {
	switch f {
	case FieldAirline:
		return "Airline"
	case FieldHour:
		return "Hour"
	case FieldMonth:
		return "Month"
	case FieldOrigin:
		return "Origin"
	case FieldDayOfWeek:
		return "DayOfWeek"
	default:
		return "Field(" + strconv.Itoa(int(f)) + ")"
	}
}

// Level is a specificity level: the number of leading key fields used to group.
type Level int

// CascadeLevels lists the persisted levels from most to least specific. The
// resolver walks them in this order; adding a fallback level is a change here.
var CascadeLevels = []Level{5, 4, 3}

// Fields returns the key fields grouped at this level.
func (l Level) Fields() []Field {
	return keyFields[:l]
}

// Valid reports whether l is a prefix length of the grouping domain.
func (l Level) Valid() bool {
	return l >= 1 && int(l) <= len(keyFields)
}

// GroupKey identifies one group. Only the first Level fields are meaningful;
// the rest are zero.
type GroupKey struct {
	Level     Level  `json:"level"`
	Airline   string `json:"airline"`
	Hour      int    `json:"hour"`
	Month     int    `json:"month"`
	Origin    string `json:"origin,omitempty"`
	DayOfWeek int    `json:"dayOfWeek,omitempty"`
}

// At truncates the key to level l, clearing fields past the prefix.
func (k GroupKey) At(l Level) GroupKey {
	out := GroupKey{Level: l}
	for _, f := range l.Fields() {
		switch f {
		case FieldAirline:
			out.Airline = k.Airline
		case FieldHour:
			out.Hour = k.Hour
		case FieldMonth:
			out.Month = k.Month
		case FieldOrigin:
			out.Origin = k.Origin
		case FieldDayOfWeek:
			out.DayOfWeek = k.DayOfWeek
		}
	}
	return out
}

// Values returns the formatted values of the level's fields, in field order.
func (k GroupKey) Values() []string {
	fields := k.Level.Fields()
	vals := make([]string, len(fields))
	for i, f := range fields {
		switch f {
		case FieldAirline:
			vals[i] = k.Airline
		case FieldHour:
			vals[i] = strconv.Itoa(k.Hour)
		case FieldMonth:
			vals[i] = strconv.Itoa(k.Month)
		case FieldOrigin:
			vals[i] = k.Origin
		case FieldDayOfWeek:
			vals[i] = strconv.Itoa(k.DayOfWeek)
		}
	}
	return vals
}

// KeySeparator joins key fields in GroupKey.String.
const KeySeparator = "|"

// String joins the level's field values with KeySeparator, e.g. "AA|8|3|SEA|2".
func (k GroupKey) String() string {
	return strings.Join(k.Values(), KeySeparator)
}

// ParseGroupKey is the inverse of GroupKey.String for the given level.
func ParseGroupKey(l Level, s string) (GroupKey, error) {
	if !l.Valid() {
		return GroupKey{}, fmt.Errorf("invalid level %d", l)
	}
	parts := strings.Split(s, KeySeparator)
	if len(parts) != int(l) {
		return GroupKey{}, fmt.Errorf("key %q has %d fields, level %d wants %d", s, len(parts), l, l)
	}
	k := GroupKey{Level: l}
	for i, f := range l.Fields() {
		var err error
		switch f {
		case FieldAirline:
			k.Airline = parts[i]
		case FieldHour:
			k.Hour, err = strconv.Atoi(parts[i])
		case FieldMonth:
			k.Month, err = strconv.Atoi(parts[i])
		case FieldOrigin:
			k.Origin = parts[i]
		case FieldDayOfWeek:
			k.DayOfWeek, err = strconv.Atoi(parts[i])
		}
		if err != nil {
			return GroupKey{}, fmt.Errorf("key %q field %s: %w", s, f, err)
		}
	}
	return k, nil
}

// keyOf extracts the level-l key of a flight. It returns false when any of
// the level's fields is null; such flights are not grouped at that level.
// A text value containing KeySeparator counts as null.
func keyOf(e *EnrichedFlight, l Level) (GroupKey, bool) {
	k := GroupKey{Level: l}
	for _, f := range l.Fields() {
		switch f {
		case FieldAirline:
			if !usableKeyText(e.Airline) {
				return GroupKey{}, false
			}
			k.Airline = *e.Airline
		case FieldHour:
			if e.Hour == nil {
				return GroupKey{}, false
			}
			k.Hour = *e.Hour
		case FieldMonth:
			if e.Month == nil {
				return GroupKey{}, false
			}
			k.Month = *e.Month
		case FieldOrigin:
			if !usableKeyText(e.Origin) {
				return GroupKey{}, false
			}
			k.Origin = *e.Origin
		case FieldDayOfWeek:
			if e.DayOfWeek == nil {
				return GroupKey{}, false
			}
			k.DayOfWeek = *e.DayOfWeek
		}
	}
	return k, true
}

func usableKeyText(s *string) bool {
	return s != nil && !strings.Contains(*s, KeySeparator)
}
