package taskflow

import (
	"errors"
	"strconv"
	"strings"
)

// Completion marks.
const (
	MarkDone    = "✓"
	MarkPending = "○"
)

// Render turns the result of Fetch into the single string returned by the
// get_tasks tool. It never fails.
func Render(listing *Listing, err error) string {
	if err != nil {
		var tfErr *Error
		if errors.As(err, &tfErr) {
			return tfErr.Message()
		}
		return "Error: " + err.Error()
	}
	if listing == nil || len(listing.Tasks) == 0 {
		email := DefaultEmail
		if listing != nil && listing.Email != "" {
			email = listing.Email
		}
		return "No tasks found for user " + email
	}
	return Format(listing)
}

// Format renders a non-empty listing:
//
//	Tasks for a@x.com (Total: 1):
//
//	1. [○] Buy milk
//	   ID: 1
//	   Created: 2024-01-01
func Format(listing *Listing) string {
	var b strings.Builder
	b.WriteString("Tasks for ")
	b.WriteString(listing.Email)
	b.WriteString(" (Total: ")
	b.WriteString(strconv.Itoa(len(listing.Tasks)))
	b.WriteString("):\n\n")

	for i, task := range listing.Tasks {
		mark := MarkPending
		if task.Completed {
			mark = MarkDone
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". [")
		b.WriteString(mark)
		b.WriteString("] ")
		b.WriteString(task.Title)
		b.WriteString("\n   ID: ")
		b.WriteString(task.ID)
		b.WriteString("\n   Created: ")
		b.WriteString(task.CreatedAt)
		b.WriteString("\n\n")
	}

	return strings.TrimSpace(b.String())
}
