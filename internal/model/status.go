// internal/model/status.go
package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// Status is the lifecycle state shared by stores, API keys and pages.
type Status string

const (
	StatusActive   Status = "active"
	StatusDraft    Status = "draft"
	StatusArchived Status = "archived"
)

// Statuses lists every accepted status value.
var Statuses = []Status{StatusActive, StatusDraft, StatusArchived}

// ErrInvalidStatus is wrapped by every status parse failure.
var ErrInvalidStatus = errors.New("invalid status")

// ParseStatus rejects anything outside the closed set.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if Status(s) == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w %q: must be %s", ErrInvalidStatus, s, StatusChoices())
}

// StatusChoices renders Statuses for messages and flag help, e.g.
// "active, draft or archived".
func StatusChoices() string {
	names := make([]string, len(Statuses))
	for i, st := range Statuses {
		names[i] = string(st)
	}
	if len(names) < 2 {
		return strings.Join(names, "")
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}

func (s Status) String() string { return string(s) }

func (s Status) IsActive() bool { return s == StatusActive }

func (s Status) MarshalText() ([]byte, error) {
	if _, err := ParseStatus(string(s)); err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Scan implements sql.Scanner so bad rows fail at read time instead of leaking through.
func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	case nil:
		return fmt.Errorf("%w: NULL", ErrInvalidStatus)
	}
	return fmt.Errorf("%w: unsupported type %T", ErrInvalidStatus, src)
}

func (s Status) Value() (driver.Value, error) {
	if _, err := ParseStatus(string(s)); err != nil {
		return nil, err
	}
	return string(s), nil
}
