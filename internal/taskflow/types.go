package taskflow

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultTitle is shown for tasks without a title.
const DefaultTitle = "Untitled"

// DefaultEmail is shown when the response does not identify the user.
const DefaultEmail = "unknown"

// Task is one record from the TaskFlow API.
//
// Decoding is lenient per field: a missing field, a null, or a value of the
// wrong JSON type falls back to the field default instead of failing the
// whole response. A record that is not a JSON object decodes to all defaults.
type Task struct {
	ID        string
	Title     string
	Completed bool
	// CreatedAt is passed through exactly as the API sent it.
	CreatedAt string
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Task) UnmarshalJSON(data []byte) error {
	*t = Task{Title: DefaultTitle}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		// not an object; keep the defaults
		return nil
	}

	t.ID = identifier(fields["id"])
	if title, ok := stringField(fields["title"]); ok {
		t.Title = title
	}
	if createdAt, ok := stringField(fields["created_at"]); ok {
		t.CreatedAt = createdAt
	}
	var completed bool
	if err := json.Unmarshal(fields["completed"], &completed); err == nil {
		t.Completed = completed
	}
	return nil
}

// stringField decodes raw as a JSON string. It reports false for a missing
// field, a null, or any non-string value.
func stringField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// identifier renders an id that may be a JSON string or number.
func identifier(raw json.RawMessage) string {
	if s, ok := stringField(raw); ok {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// User identifies the account the tasks belong to. Fields other than
// Email are ignored.
type User struct {
	Email string `json:"email"`
}

// Envelope is the response body of GET /tasks.
type Envelope struct {
	Success bool
	Data    []Task
	User    User
}

type envelopeFields struct {
	Success json.RawMessage `json:"success"`
	Data    json.RawMessage `json:"data"`
	User    json.RawMessage `json:"user"`
}

// UnmarshalJSON implements json.Unmarshaler.
//
// success counts only as a JSON true. data may be absent or null (no tasks)
// but any other non-array value is an error. A user value that is not an
// object is treated as missing.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var fields envelopeFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*e = Envelope{}

	var success bool
	if err := json.Unmarshal(fields.Success, &success); err == nil {
		e.Success = success
	}

	if len(fields.Data) > 0 && !isNull(fields.Data) {
		if err := json.Unmarshal(fields.Data, &e.Data); err != nil {
			return fmt.Errorf("unexpected type for data: %w", err)
		}
	}

	if len(fields.User) > 0 {
		var user User
		if err := json.Unmarshal(fields.User, &user); err == nil {
			e.User = user
		}
	}
	return nil
}

// Listing is a successful fetch: the user the tasks belong to and the tasks
// in the order the API returned them.
type Listing struct {
	Email string
	Tasks []Task
}

// listingFromEnvelope applies the email default.
func listingFromEnvelope(env *Envelope) *Listing {
	email := env.User.Email
	if email == "" {
		email = DefaultEmail
	}
	return &Listing{Email: email, Tasks: env.Data}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
