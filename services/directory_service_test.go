package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/alumni-network/authz"
	"github.com/Dosada05/alumni-network/models"
)

type directoryEnv struct {
	*testEnv
	root          authz.Principal
	computerAdmin authz.Principal
	alum          authz.Principal
}

func newDirectoryEnv(t *testing.T) *directoryEnv {
	t.Helper()
	env := newTestEnv(t)
	_, root := env.newUser(t, "root@example.com", models.RoleSuperAdmin, nil)
	_, admin := env.newUser(t, "computer-admin@example.com", models.RoleFieldAdmin, fieldPtr(models.FieldComputer))

	_, alum := env.verifiedAlumnus(t, root, "ruwan@example.com", "Ruwan Perera", models.FieldComputer, "Sri Lanka")
	env.verifiedAlumnus(t, root, "dilini@example.com", "Dilini Silva", models.FieldComputer, "Australia")
	env.verifiedAlumnus(t, root, "saman@example.com", "Saman Kumara", models.FieldCivil, "Sri Lanka")

	return &directoryEnv{testEnv: env, root: root, computerAdmin: admin, alum: alum}
}

func TestDirectorySearch_Scope(t *testing.T) {
	env := newDirectoryEnv(t)
	ctx := context.Background()

	all, total, err := env.directory.Search(ctx, env.alum, models.DirectoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 3)

	scoped, total, err := env.directory.Search(ctx, env.computerAdmin, models.DirectoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, p := range scoped {
		assert.Equal(t, models.FieldComputer, p.Field)
	}

	// пересечение с областью видимости администратора
	mixed, total, err := env.directory.Search(ctx, env.computerAdmin, models.DirectoryFilter{
		Fields: []models.Field{models.FieldCivil, models.FieldComputer},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, mixed, 2)

	_, _, err = env.directory.Search(ctx, env.computerAdmin, models.DirectoryFilter{Fields: []models.Field{models.FieldCivil}})
	assert.ErrorIs(t, err, ErrForbidden)

	_, pending := env.newUser(t, "pending@example.com", models.RoleUnverified, nil)
	_, _, err = env.directory.Search(ctx, pending, models.DirectoryFilter{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDirectorySearch_Filters(t *testing.T) {
	env := newDirectoryEnv(t)
	ctx := context.Background()

	byCountry, total, err := env.directory.Search(ctx, env.root, models.DirectoryFilter{Country: "Sri Lanka"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, byCountry, 2)

	byName, total, err := env.directory.Search(ctx, env.root, models.DirectoryFilter{Query: "Dilini"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "Dilini Silva", byName[0].FullName)

	page, total, err := env.directory.Search(ctx, env.root, models.DirectoryFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 1)

	_, _, err = env.directory.Search(ctx, env.root, models.DirectoryFilter{Offset: -1})
	assert.ErrorIs(t, err, ErrValidationFailed)
	_, _, err = env.directory.Search(ctx, env.root, models.DirectoryFilter{Fields: []models.Field{"Astronomy", models.FieldCivil}})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestReportGenerate(t *testing.T) {
	env := newDirectoryEnv(t)
	ctx := context.Background()

	report, err := env.reports.Generate(ctx, env.root, models.DirectoryFilter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Len(t, report.Rows, 3)
	assert.Equal(t, []models.CountBucket{
		{Key: string(models.FieldCivil), Count: 1},
		{Key: string(models.FieldComputer), Count: 2},
	}, report.ByField)
	assert.Equal(t, []models.CountBucket{
		{Key: "Australia", Count: 1},
		{Key: "Sri Lanka", Count: 2},
	}, report.ByCountry)

	scoped, err := env.reports.Generate(ctx, env.computerAdmin, models.DirectoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, scoped.Total)
	assert.Equal(t, []models.CountBucket{{Key: string(models.FieldComputer), Count: 2}}, scoped.ByField)

	empty, err := env.reports.Generate(ctx, env.computerAdmin, models.DirectoryFilter{
		Fields: []models.Field{models.FieldCivil, models.FieldMining},
	})
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.Rows)
}

func TestReportExportCSV(t *testing.T) {
	env := newDirectoryEnv(t)

	var buf bytes.Buffer
	err := env.reports.ExportCSV(context.Background(), env.computerAdmin, models.DirectoryFilter{}, &buf)
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, reportHeader, records[0])

	names := []string{records[1][0], records[2][0]}
	assert.ElementsMatch(t, []string{"Ruwan Perera", "Dilini Silva"}, names)
	for _, r := range records[1:] {
		assert.Equal(t, string(models.FieldComputer), r[3])
		assert.Equal(t, "2018", r[4])
		assert.Equal(t, "+94771234567", r[7])
	}
}

func TestReportGenerate_TooManyRows(t *testing.T) {
	env := newDirectoryEnv(t)
	ctx := context.Background()
	env.reports.(*reportService).maxRows = 2

	_, err := env.reports.Generate(ctx, env.root, models.DirectoryFilter{})
	assert.ErrorIs(t, err, ErrValidationFailed)

	var buf bytes.Buffer
	err = env.reports.ExportCSV(ctx, env.root, models.DirectoryFilter{}, &buf)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Zero(t, buf.Len())

	// направление сужает отчёт до допустимого размера
	narrowed, err := env.reports.Generate(ctx, env.root, models.DirectoryFilter{Fields: []models.Field{models.FieldComputer}})
	require.NoError(t, err)
	assert.Equal(t, 2, narrowed.Total)
	assert.Len(t, narrowed.Rows, 2)
}
