// Package employee wires the generic CRUD components to the employee table.
package employee

import (
	"errors"

	"cruddemo/core/crud/adapters/persistence/memdb"
	"cruddemo/core/crud/adapters/persistence/pg"
	"cruddemo/core/crud/domain"
)

const (
	Resource = "employees"
	Name     = "Employee"
)

var _ domain.Entity[Employee] = Employee{}

type Employee struct {
	ID        int          `json:"id" db:"id"`
	FirstName string       `json:"firstName" db:"first_name"`
	LastName  string       `json:"lastName" db:"last_name"`
	Email     domain.Email `json:"email" db:"email"`
}

func (e Employee) PrimaryKey() int {
	return e.ID
}

func (e Employee) WithPrimaryKey(id int) Employee {
	e.ID = id
	return e
}

func (e Employee) Validate() error {
	return errors.Join(
		domain.Required("firstName", e.FirstName),
		domain.Required("lastName", e.LastName),
		domain.WellFormed("email", e.Email),
	)
}

// Table maps Employee onto the employee table.
var Table = pg.Table{
	Name:    "employee",
	Columns: []string{"first_name", "last_name", "email"},
}

var MemSchema = memdb.Schema{
	Table:   "employee",
	IDField: "ID",
}
