// Package system provides a real clock implementation.
package system

import "time"

// DateLayout is the calendar-day format used for daily summaries and file names.
const DateLayout = "2006-01-02"

// Clock implements creative.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Today returns the current UTC calendar day.
func (c Clock) Today() string {
	return c.Now().Format(DateLayout)
}
