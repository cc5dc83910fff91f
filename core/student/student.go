// Package student wires the generic CRUD components to the student table and
// seeds the demo students on startup.
package student

import (
	"errors"
	"fmt"

	"cruddemo/core/crud/adapters/persistence/memdb"
	"cruddemo/core/crud/adapters/persistence/pg"
	"cruddemo/core/crud/domain"
)

const (
	Resource = "students"
	Name     = "Student"

	// LastNameParam filters GET /api/students by last name.
	LastNameParam = "lastName"
)

// Table maps Student onto the student table.
var Table = pg.Table{
	Name:       "student",
	Columns:    []string{"first_name", "last_name", "email"},
	Attributes: map[string]string{"lastName": "last_name"},
}

var MemSchema = memdb.Schema{
	Table:      "student",
	IDField:    "ID",
	Attributes: map[string]string{"lastName": "LastName"},
}

var _ domain.Entity[Student] = Student{}

type Student struct {
	ID        int          `json:"id" db:"id"`
	FirstName string       `json:"firstName" db:"first_name"`
	LastName  string       `json:"lastName" db:"last_name"`
	Email     domain.Email `json:"email" db:"email"`
}

func (s Student) PrimaryKey() int {
	return s.ID
}

func (s Student) WithPrimaryKey(id int) Student {
	s.ID = id
	return s
}

func (s Student) Validate() error {
	return errors.Join(
		domain.Required("firstName", s.FirstName),
		domain.Required("lastName", s.LastName),
		domain.WellFormed("email", s.Email),
	)
}

func (s Student) String() string {
	return fmt.Sprintf("Student{id=%d, firstName=%s, lastName=%s, email=%s}", s.ID, s.FirstName, s.LastName, s.Email)
}
