package config

import (
	"fmt"
	"strconv"
	"time"
)

const redacted = "[REDACTED]"

// Duration reads "90s"-style strings from YAML and TRIAGE_* env vars. A
// bare integer is taken as seconds.
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	v, err := time.ParseDuration(s)
	if err != nil {
		secs, convErr := strconv.Atoi(s)
		if convErr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		v = time.Duration(secs) * time.Second
	}
	if v < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	*d = Duration(v)
	return nil
}

// Secret holds a credential. Every formatting and encoding path prints
// [REDACTED]; only Value returns the real string.
type Secret string

func (s Secret) Value() string { return string(s) }

func (s Secret) IsSet() bool { return s != "" }

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

func (s Secret) GoString() string { return "Secret(" + redacted + ")" }

// MarshalText covers JSON, YAML and TOML encoders.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes the redaction placeholder to an empty secret, so a
// dumped config never round-trips a fake key.
func (s *Secret) UnmarshalText(text []byte) error {
	if string(text) == redacted {
		*s = ""
		return nil
	}
	*s = Secret(text)
	return nil
}
