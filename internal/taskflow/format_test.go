package taskflow

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	listing := &Listing{
		Email: "a@x.com",
		Tasks: []Task{
			{ID: "1", Title: "Buy milk", CreatedAt: "2024-01-01"},
			{ID: "2", Title: "Walk dog", Completed: true, CreatedAt: "2024-01-02"},
		},
	}

	expected := "Tasks for a@x.com (Total: 2):\n\n" +
		"1. [○] Buy milk\n   ID: 1\n   Created: 2024-01-01\n\n" +
		"2. [✓] Walk dog\n   ID: 2\n   Created: 2024-01-02"
	assert.Equal(t, expected, Format(listing))
}

func TestFormat_TrailingWhitespaceTrimmed(t *testing.T) {
	listing := &Listing{Email: "a@x.com", Tasks: []Task{{Title: DefaultTitle}}}

	result := Format(listing)
	assert.Equal(t, strings.TrimRight(result, " \n"), result)
	assert.True(t, strings.HasSuffix(result, "   Created:"))
	assert.Contains(t, result, "1. [○] Untitled\n   ID: \n")
}

func TestFormat_EntryCountMatchesInput(t *testing.T) {
	for _, n := range []int{1, 2, 10, 25} {
		t.Run(fmt.Sprintf("%d tasks", n), func(t *testing.T) {
			tasks := make([]Task, n)
			for i := range tasks {
				tasks[i] = Task{ID: fmt.Sprintf("id-%d", i), Title: fmt.Sprintf("task %d", i)}
			}

			result := Format(&Listing{Email: "a@x.com", Tasks: tasks})

			assert.Contains(t, result, fmt.Sprintf("(Total: %d)", n))
			assert.Equal(t, n, strings.Count(result, "   ID: "))
			for i := range tasks {
				assert.Contains(t, result, fmt.Sprintf("%d. [○] task %d\n   ID: id-%d", i+1, i, i))
			}
		})
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		listing  *Listing
		err      error
		expected string
	}{
		{
			name:     "empty listing",
			listing:  &Listing{Email: "a@x.com"},
			expected: "No tasks found for user a@x.com",
		},
		{
			name:     "nil listing",
			expected: "No tasks found for user unknown",
		},
		{
			name:     "authentication",
			err:      &Error{Kind: KindAuthentication, StatusCode: 401},
			expected: "Error: Authentication failed. Your token may be invalid or expired.",
		},
		{
			name:     "wrapped upstream status",
			err:      fmt.Errorf("calling api: %w", &Error{Kind: KindUpstreamStatus, StatusCode: 502}),
			expected: "Error: Failed to fetch tasks (Status: 502)",
		},
		{
			name:     "plain error",
			err:      errors.New("something broke"),
			expected: "Error: something broke",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Render(tt.listing, tt.err))
		})
	}
}
