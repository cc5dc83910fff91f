package domain_test

import (
	"context"
	"errors"
	"testing"

	"cruddemo/core/crud/adapters/persistence/memdb"
	"cruddemo/core/crud/domain"
	"cruddemo/core/employee"
	"cruddemo/core/student"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmployees(t *testing.T) *domain.Application[employee.Employee] {
	t.Helper()
	repo, err := memdb.NewRepository[employee.Employee](employee.MemSchema)
	require.NoError(t, err)
	return domain.NewApp(repo, employee.Name)
}

func newStudents(t *testing.T) *domain.Application[student.Student] {
	t.Helper()
	repo, err := memdb.NewRepository[student.Student](student.MemSchema)
	require.NoError(t, err)
	return domain.NewApp(repo, student.Name)
}

func TestApplication_CreateIgnoresClientID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app := newEmployees(t)

	saved, err := app.Create(ctx, employee.Employee{ID: 99, FirstName: "Leslie", LastName: "Andrews", Email: "leslie@luv2code.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, saved.ID)

	_, err = app.Get(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := app.List(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []employee.Employee{saved}, all)
}

func TestApplication_CreateRejectsInvalidEntity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app := newEmployees(t)

	_, err := app.Create(ctx, employee.Employee{LastName: "Andrews", Email: "nope"})
	require.ErrorIs(t, err, domain.ErrInvalidData)

	var names []string
	for _, fe := range domain.FieldErrors(err) {
		names = append(names, fe.Field)
	}
	assert.ElementsMatch(t, []string{"firstName", "email"}, names)

	all, err := app.List(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestApplication_GetUnknown(t *testing.T) {
	t.Parallel()
	app := newEmployees(t)

	for _, id := range []int{-1, 0, 42} {
		_, err := app.Get(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrNotFound, "id %d", id)
	}
}

func TestApplication_Replace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app := newEmployees(t)

	saved, err := app.Create(ctx, employee.Employee{FirstName: "Emma", LastName: "Baumgarten", Email: "emma@luv2code.com"})
	require.NoError(t, err)

	saved.LastName = "Public"
	replaced, err := app.Replace(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, saved, replaced)

	got, err := app.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Public", got.LastName)

	_, err = app.Replace(ctx, employee.Employee{FirstName: "No", LastName: "Id"})
	assert.ErrorIs(t, err, domain.ErrInvalidData)

	_, err = app.Replace(ctx, employee.Employee{ID: 42, FirstName: "Ghost", LastName: "Row"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplication_PatchDaffyBecomesScooby(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app := newStudents(t)

	daffy, err := app.Create(ctx, student.Student{FirstName: "Daffy", LastName: "Duck", Email: "daffy@luv2code.com"})
	require.NoError(t, err)

	patched, err := app.Patch(ctx, daffy.ID, domain.Payload{"firstName": "Scooby"})
	require.NoError(t, err)
	assert.Equal(t, student.Student{ID: daffy.ID, FirstName: "Scooby", LastName: "Duck", Email: "daffy@luv2code.com"}, patched)

	stored, err := app.Get(ctx, daffy.ID)
	require.NoError(t, err)
	assert.Equal(t, patched, stored)
}

func TestApplication_PatchWithIDLeavesStoreUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app := newEmployees(t)

	first, err := app.Create(ctx, employee.Employee{FirstName: "Paul", LastName: "Doe"})
	require.NoError(t, err)
	second, err := app.Create(ctx, employee.Employee{FirstName: "Jack", LastName: "Nelson"})
	require.NoError(t, err)

	_, err = app.Patch(ctx, first.ID, domain.Payload{"id": 2, "firstName": "Changed"})
	require.ErrorIs(t, err, domain.ErrForbiddenField)

	all, err := app.List(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []employee.Employee{first, second}, all)
}

func TestApplication_PatchUnknownEntity(t *testing.T) {
	t.Parallel()
	app := newEmployees(t)

	_, err := app.Patch(context.Background(), 7, domain.Payload{"firstName": "Scooby"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplication_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app := newEmployees(t)

	saved, err := app.Create(ctx, employee.Employee{FirstName: "Paul", LastName: "Doe"})
	require.NoError(t, err)

	require.NoError(t, app.Delete(ctx, saved.ID))
	_, err = app.Get(ctx, saved.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, app.Delete(ctx, saved.ID), domain.ErrNotFound)
	assert.ErrorIs(t, app.Delete(ctx, 0), domain.ErrNotFound)
}

func TestApplication_ListFilter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	students := newStudents(t)

	for _, st := range student.DemoStudents {
		_, err := students.Create(ctx, st)
		require.NoError(t, err)
	}

	ducks, err := students.List(ctx, domain.Filter{Attribute: "lastName", Value: "Duck"})
	require.NoError(t, err)
	require.Len(t, ducks, 1)
	assert.Equal(t, "Daffy", ducks[0].FirstName)

	none, err := students.List(ctx, domain.Filter{Attribute: "lastName", Value: "Scooby"})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = students.List(ctx, domain.Filter{Attribute: "email", Value: "daffy@luv2code.com"})
	assert.ErrorIs(t, err, domain.ErrUnsupported)

	_, err = students.List(ctx, domain.Filter{Attribute: "id", Value: "1"})
	assert.ErrorIs(t, err, domain.ErrUnsupported)

	_, err = newEmployees(t).List(ctx, domain.Filter{Attribute: "lastName", Value: "Doe"})
	assert.ErrorIs(t, err, domain.ErrUnsupported)
}

type brokenRepo struct{}

var errBroken = errors.New("connection reset by peer")

func (brokenRepo) FindAll(context.Context) ([]employee.Employee, error) { return nil, errBroken }
func (brokenRepo) FindByID(context.Context, int) (employee.Employee, error) {
	return employee.Employee{}, errBroken
}
func (brokenRepo) Save(context.Context, employee.Employee) (employee.Employee, error) {
	return employee.Employee{}, errBroken
}
func (brokenRepo) DeleteByID(context.Context, int) error { return errBroken }

func TestApplication_HidesUnexpectedErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	app := domain.NewApp[employee.Employee](brokenRepo{}, employee.Name)

	_, err := app.List(ctx, domain.Filter{})
	assert.ErrorIs(t, err, domain.ErrUnhandled)
	assert.NotErrorIs(t, err, errBroken)

	_, err = app.Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrUnhandled)

	_, err = app.Create(ctx, employee.Employee{FirstName: "Paul", LastName: "Doe"})
	assert.ErrorIs(t, err, domain.ErrUnhandled)

	assert.ErrorIs(t, app.Delete(ctx, 1), domain.ErrUnhandled)

	_, err = app.List(ctx, domain.Filter{Attribute: "lastName", Value: "Doe"})
	assert.ErrorIs(t, err, domain.ErrUnsupported)
}
