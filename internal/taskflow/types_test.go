package taskflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Task
	}{
		{
			name:     "all fields",
			input:    `{"id":"1","title":"Buy milk","completed":true,"created_at":"2024-01-01T10:00:00Z"}`,
			expected: Task{ID: "1", Title: "Buy milk", Completed: true, CreatedAt: "2024-01-01T10:00:00Z"},
		},
		{
			name:     "empty object",
			input:    `{}`,
			expected: Task{Title: DefaultTitle},
		},
		{
			name:     "null fields",
			input:    `{"id":null,"title":null,"completed":null,"created_at":null}`,
			expected: Task{Title: DefaultTitle},
		},
		{
			name:     "numeric id",
			input:    `{"id":42,"title":"x"}`,
			expected: Task{ID: "42", Title: "x"},
		},
		{
			name:     "wrong types fall back per field",
			input:    `{"id":true,"title":7,"completed":"yes","created_at":{"t":1}}`,
			expected: Task{Title: DefaultTitle},
		},
		{
			name:     "empty title is kept",
			input:    `{"id":"1","title":""}`,
			expected: Task{ID: "1", Title: ""},
		},
		{
			name:     "extra fields ignored",
			input:    `{"id":"1","title":"x","user_id":"u","priority":3}`,
			expected: Task{ID: "1", Title: "x"},
		},
		{
			name:     "not an object",
			input:    `"just a string"`,
			expected: Task{Title: DefaultTitle},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var task Task
			require.NoError(t, json.Unmarshal([]byte(tt.input), &task))
			assert.Equal(t, tt.expected, task)
		})
	}
}

func TestEnvelope_MalformedRecordsTolerated(t *testing.T) {
	input := `{"success":true,"data":[{"id":"1","title":"ok"},null,5,{"title":"no id"}],"user":{"email":"a@x.com"}}`

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(input), &env))

	assert.True(t, env.Success)
	require.Len(t, env.Data, 4)
	assert.Equal(t, "ok", env.Data[0].Title)
	assert.Equal(t, DefaultTitle, env.Data[1].Title)
	assert.Equal(t, DefaultTitle, env.Data[2].Title)
	assert.Equal(t, "", env.Data[3].ID)
	assert.Equal(t, "a@x.com", env.User.Email)
}

func TestEnvelope_DataMustBeList(t *testing.T) {
	var env Envelope
	err := json.Unmarshal([]byte(`{"success":true,"data":"nope"}`), &env)
	assert.Error(t, err)
}

func TestListingFromEnvelope(t *testing.T) {
	listing := listingFromEnvelope(&Envelope{Success: true})
	assert.Equal(t, DefaultEmail, listing.Email)
	assert.Empty(t, listing.Tasks)

	listing = listingFromEnvelope(&Envelope{Success: true, User: User{Email: "a@x.com"}, Data: []Task{{ID: "1"}}})
	assert.Equal(t, "a@x.com", listing.Email)
	assert.Len(t, listing.Tasks, 1)
}
