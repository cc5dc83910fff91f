package student_test

import (
	"context"
	"errors"
	"testing"

	"cruddemo/core/crud/adapters/persistence/memdb"
	"cruddemo/core/crud/domain"
	"cruddemo/core/student"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeeder_InsertsDemoStudents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, err := memdb.NewRepository[student.Student](student.MemSchema)
	require.NoError(t, err)
	app := domain.NewApp(repo, student.Name)

	require.NoError(t, student.NewSeeder(app).Run(ctx))

	all, err := app.List(ctx, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, all, len(student.DemoStudents))

	var lastNames []string
	for i, st := range all {
		assert.Equal(t, i+1, st.ID)
		lastNames = append(lastNames, st.LastName)
	}
	assert.ElementsMatch(t, []string{"Doe", "Nelson", "Zorr", "Locks", "Duck"}, lastNames)
}

func TestSeeder_SkipsWhenStudentsExist(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, err := memdb.NewRepository[student.Student](student.MemSchema)
	require.NoError(t, err)
	app := domain.NewApp(repo, student.Name)
	seeder := student.NewSeeder(app)

	require.NoError(t, seeder.Run(ctx))
	require.NoError(t, seeder.Run(ctx))

	all, err := app.List(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, len(student.DemoStudents))
}

// flakyRepo fails every save of the given last name.
type flakyRepo struct {
	domain.Repository[student.Student]
	lastName string
}

func (r flakyRepo) Save(ctx context.Context, st student.Student) (student.Student, error) {
	if st.LastName == r.lastName {
		return student.Student{}, errors.New("connection reset")
	}
	return r.Repository.Save(ctx, st)
}

func TestSeeder_FailedInsertIsNotFatal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, err := memdb.NewRepository[student.Student](student.MemSchema)
	require.NoError(t, err)
	app := domain.NewApp[student.Student](flakyRepo{Repository: repo, lastName: "Zorr"}, student.Name)

	require.NoError(t, student.NewSeeder(app).Run(ctx))

	all, err := app.List(ctx, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, all, len(student.DemoStudents)-1)
	for _, st := range all {
		assert.NotEqual(t, "Zorr", st.LastName)
	}
}

func TestSeeder_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	repo, err := memdb.NewRepository[student.Student](student.MemSchema)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = student.NewSeeder(domain.NewApp(repo, student.Name)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStudent_Validate(t *testing.T) {
	t.Parallel()

	for _, st := range student.DemoStudents {
		assert.NoError(t, st.Validate())
	}
	err := student.Student{FirstName: " ", LastName: "Duck"}.Validate()
	assert.ErrorIs(t, err, domain.ErrInvalidData)
}
