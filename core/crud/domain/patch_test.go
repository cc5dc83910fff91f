package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type member struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email Email  `json:"email"`
	Notes string `json:"-"`
}

func (m member) PrimaryKey() int { return m.ID }

func (m member) WithPrimaryKey(id int) member {
	m.ID = id
	return m
}

func (m member) Validate() error {
	return errors.Join(Required("name", m.Name), WellFormed("email", m.Email))
}

func fieldNames(err error) []string {
	var names []string
	for _, fe := range FieldErrors(err) {
		names = append(names, fe.Field)
	}
	return names
}

func TestApplyPatch_MergesOnlyGivenFields(t *testing.T) {
	t.Parallel()

	existing := member{ID: 5, Name: "Daffy", Age: 80, Email: "daffy@luv2code.com", Notes: "kept"}
	got, err := ApplyPatch(existing, Payload{"name": "Scooby"})
	require.NoError(t, err)

	assert.Equal(t, member{ID: 5, Name: "Scooby", Age: 80, Email: "daffy@luv2code.com"}, got)
	assert.Equal(t, "Daffy", existing.Name, "existing must not be modified")
}

func TestApplyPatch_EmptyPatchKeepsEntity(t *testing.T) {
	t.Parallel()

	existing := member{ID: 1, Name: "Paul", Age: 30}
	got, err := ApplyPatch(existing, Payload{})
	require.NoError(t, err)
	assert.Equal(t, existing, got)
}

func TestApplyPatch_RejectsPrimaryKey(t *testing.T) {
	t.Parallel()

	cases := []Payload{
		{"id": 2},
		{"id": 2, "name": "Scooby"},
		{"id": nil},
	}
	for _, patch := range cases {
		_, err := ApplyPatch(member{ID: 1, Name: "Paul"}, patch)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrForbiddenField)
		assert.NotErrorIs(t, err, ErrInvalidData)
		assert.Equal(t, []string{"id"}, fieldNames(err))
	}
}

func TestApplyPatch_CoercesJSONValues(t *testing.T) {
	t.Parallel()

	got, err := ApplyPatch(member{ID: 1, Name: "Paul"}, Payload{
		"age":   json.Number("42"),
		"email": "paul@luv2code.com",
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got.Age)
	assert.Equal(t, Email("paul@luv2code.com"), got.Email)

	got, err = ApplyPatch(member{ID: 1, Name: "Paul"}, Payload{"age": float64(7)})
	require.NoError(t, err)
	assert.Equal(t, 7, got.Age)
}

func TestApplyPatch_NullResetsField(t *testing.T) {
	t.Parallel()

	got, err := ApplyPatch(member{ID: 1, Name: "Paul", Age: 3, Email: "paul@luv2code.com"}, Payload{"email": nil, "age": nil})
	require.NoError(t, err)
	assert.Equal(t, Email(""), got.Email)
	assert.Zero(t, got.Age)
}

func TestApplyPatch_InvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		patch  Payload
		fields []string
	}{
		{name: "unknown field", patch: Payload{"nickname": "Scoob"}, fields: []string{"nickname"}},
		{name: "hidden field", patch: Payload{"Notes": "x"}, fields: []string{"Notes"}},
		{name: "wrong type", patch: Payload{"name": 12}, fields: []string{"name"}},
		{name: "fraction into int", patch: Payload{"age": 1.5}, fields: []string{"age"}},
		{name: "malformed email", patch: Payload{"email": "not-an-email"}, fields: []string{"email"}},
		{name: "every bad field reported", patch: Payload{"age": "old", "name": true}, fields: []string{"age", "name"}},
		{name: "merged entity invalid", patch: Payload{"name": ""}, fields: []string{"name"}},
		{name: "required reset by null", patch: Payload{"name": nil}, fields: []string{"name"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ApplyPatch(member{ID: 1, Name: "Paul"}, tt.patch)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidData)
			assert.Equal(t, tt.fields, fieldNames(err))
		})
	}
}

func TestMappingOf(t *testing.T) {
	t.Parallel()

	m := MappingOf(member{ID: 3, Name: "Jack", Age: 20, Email: "jackN@luv2code.com", Notes: "x"})
	assert.Equal(t, Mapping{
		"id":    3,
		"name":  "Jack",
		"age":   20,
		"email": Email("jackN@luv2code.com"),
	}, m)
}

func TestHasField(t *testing.T) {
	t.Parallel()

	assert.True(t, HasField[member]("name"))
	assert.True(t, HasField[member]("id"))
	assert.False(t, HasField[member]("Notes"))
	assert.False(t, HasField[member]("Name"))
}

func TestEmail_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var e Email
	require.NoError(t, json.Unmarshal([]byte(`"daffy@luv2code.com"`), &e))
	assert.Equal(t, Email("daffy@luv2code.com"), e)

	require.NoError(t, json.Unmarshal([]byte(`""`), &e))
	assert.Equal(t, Email(""), e)

	assert.Error(t, json.Unmarshal([]byte(`"daffy"`), &e))
	assert.Error(t, json.Unmarshal([]byte(`12`), &e))
}
