package features

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Origin records which extractor produced a value.
type Origin uint8

const (
	Absent Origin = iota
	FromHeuristic
	FromLLM
	FromBoth
)

func (o Origin) String() string {
	switch o {
	case FromHeuristic:
		return "heuristic"
	case FromLLM:
		return "llm"
	case FromBoth:
		return "both"
	}
	return "absent"
}

// MarshalText implements encoding.TextMarshaler.
func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Origin) UnmarshalText(text []byte) error {
	switch string(text) {
	case "heuristic":
		*o = FromHeuristic
	case "llm":
		*o = FromLLM
	case "both":
		*o = FromBoth
	case "absent", "":
		*o = Absent
	default:
		return fmt.Errorf("unknown origin %q", text)
	}
	return nil
}

// Source is a value tagged with the extractor that produced it, or Absent.
// The zero value is Absent.
type Source[T any] struct {
	origin Origin
	value  T
}

// Heuristic tags v as produced by the heuristic extractor.
func Heuristic[T any](v T) Source[T] {
	return Source[T]{origin: FromHeuristic, value: v}
}

// LLM tags v as produced by the language-model extractor.
func LLM[T any](v T) Source[T] {
	return Source[T]{origin: FromLLM, value: v}
}

// FromPtr tags *p with origin, or returns Absent when p is nil.
func FromPtr[T any](origin Origin, p *T) Source[T] {
	if p == nil {
		return Source[T]{}
	}
	return Source[T]{origin: origin, value: *p}
}

// Get returns the value and whether one is present.
func (s Source[T]) Get() (T, bool) {
	return s.value, s.origin != Absent
}

// Present reports whether a value is present.
func (s Source[T]) Present() bool {
	return s.origin != Absent
}

// Origin returns the producing extractor.
func (s Source[T]) Origin() Origin {
	return s.origin
}

// Ptr returns a pointer to the value, or nil when absent.
func (s Source[T]) Ptr() *T {
	if s.origin == Absent {
		return nil
	}
	v := s.value
	return &v
}

type sourceWire[T any] struct {
	From  Origin `json:"from"`
	Value T      `json:"value"`
}

// MarshalJSON encodes an absent source as null and a present one as
// {"from": origin, "value": v}.
func (s Source[T]) MarshalJSON() ([]byte, error) {
	if s.origin == Absent {
		return []byte("null"), nil
	}
	return json.Marshal(sourceWire[T]{From: s.origin, Value: s.value})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Source[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Source[T]{}
		return nil
	}
	var w sourceWire[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Source[T]{origin: w.From, value: w.Value}
	return nil
}

// Prefer returns primary when present, otherwise fallback.
func Prefer[T any](primary, fallback Source[T]) Source[T] {
	if primary.Present() {
		return primary
	}
	return fallback
}

// AnyTrue ORs two boolean sources. The origin names every source that
// asserted true; when neither did, the result keeps the preferred origin of
// a false value.
func AnyTrue(a, b Source[bool]) Source[bool] {
	av, aok := a.Get()
	bv, bok := b.Get()
	switch {
	case aok && av && bok && bv:
		return Source[bool]{origin: FromBoth, value: true}
	case aok && av:
		return a
	case bok && bv:
		return b
	}
	return Prefer(a, b)
}
