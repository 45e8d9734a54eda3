package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/alumni-network/models"
	"github.com/Dosada05/alumni-network/repositories"
)

func TestAlumniRepository_CreateIsUniquePerUser(t *testing.T) {
	f := newFixture(t)
	p := f.profile(t, "a@example.com", "Amal Silva", models.FieldComputer, "Sri Lanka", 2015)

	dup := *p
	err := f.alumni.Create(context.Background(), nil, &dup)
	assert.ErrorIs(t, err, repositories.ErrAlumniProfileExists)
}

func TestAlumniRepository_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profile(t, "a@example.com", "Amal Silva", models.FieldComputer, "Sri Lanka", 2015)
	f.profile(t, "b@example.com", "Bimal Fernando", models.FieldComputer, "Australia", 2016)
	f.profile(t, "c@example.com", "Chamari Silva", models.FieldCivil, "Sri Lanka", 2015)

	tests := []struct {
		name  string
		query repositories.AlumniQuery
		want  []string
		total int
	}{
		{
			name:  "all",
			query: repositories.AlumniQuery{},
			want:  []string{"Amal Silva", "Bimal Fernando", "Chamari Silva"},
			total: 3,
		},
		{
			name:  "by field",
			query: repositories.AlumniQuery{Fields: []models.Field{models.FieldComputer}},
			want:  []string{"Amal Silva", "Bimal Fernando"},
			total: 2,
		},
		{
			name:  "by name fragment, case insensitive",
			query: repositories.AlumniQuery{Query: "SILVA"},
			want:  []string{"Amal Silva", "Chamari Silva"},
			total: 2,
		},
		{
			name:  "by country and batch",
			query: repositories.AlumniQuery{Country: "sri lanka", Batch: ptr(2015)},
			want:  []string{"Amal Silva", "Chamari Silva"},
			total: 2,
		},
		{
			name:  "paged",
			query: repositories.AlumniQuery{Limit: 1, Offset: 1},
			want:  []string{"Bimal Fernando"},
			total: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles, total, err := f.alumni.Search(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
			names := make([]string, 0, len(profiles))
			for _, p := range profiles {
				names = append(names, p.FullName)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestAlumniRepository_SearchTreatsWildcardsLiterally(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profile(t, "a@example.com", "Ruwan_Dias", models.FieldComputer, "Sri Lanka", 2015)
	f.profile(t, "b@example.com", "RuwanXDias", models.FieldComputer, "Sri Lanka", 2015)
	f.profile(t, "c@example.com", "Nimal Perera", models.FieldCivil, "Sri Lanka", 2015)

	tests := []struct {
		query string
		want  []string
	}{
		{query: "_", want: []string{"Ruwan_Dias"}},
		{query: "n_d", want: []string{"Ruwan_Dias"}},
		{query: "%", want: []string{}},
		{query: `\`, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			profiles, total, err := f.alumni.Search(ctx, repositories.AlumniQuery{Query: tt.query})
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), total)
			names := make([]string, 0, len(profiles))
			for _, p := range profiles {
				names = append(names, p.FullName)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestAlumniRepository_CountBy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.profile(t, "a@example.com", "Amal", models.FieldComputer, "Sri Lanka", 2015)
	f.profile(t, "b@example.com", "Bimal", models.FieldComputer, "Australia", 2016)
	f.profile(t, "c@example.com", "Chamari", models.FieldCivil, "Sri Lanka", 2015)

	byField, err := f.alumni.CountBy(ctx, "field", repositories.AlumniQuery{})
	require.NoError(t, err)
	assert.Equal(t, []models.CountBucket{{Key: "Civil", Count: 1}, {Key: "Computer", Count: 2}}, byField)

	byCountry, err := f.alumni.CountBy(ctx, "country", repositories.AlumniQuery{Fields: []models.Field{models.FieldComputer}})
	require.NoError(t, err)
	assert.Equal(t, []models.CountBucket{{Key: "Australia", Count: 1}, {Key: "Sri Lanka", Count: 1}}, byCountry)

	_, err = f.alumni.CountBy(ctx, "email", repositories.AlumniQuery{})
	assert.Error(t, err)
}

func TestAlumniRepository_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, "a@example.com", "Amal", models.FieldComputer, "Sri Lanka", 2015)

	later := testNow.Add(time.Hour)
	require.NoError(t, f.alumni.Update(ctx, p.UserID, repositories.ProfileChanges{
		Workplace: ptr("Dialog Axiata"),
		Country:   ptr("Singapore"),
	}, later))

	got, err := f.alumni.GetByUserID(ctx, p.UserID)
	require.NoError(t, err)
	require.NotNil(t, got.Workplace)
	assert.Equal(t, "Dialog Axiata", *got.Workplace)
	assert.Equal(t, "Singapore", got.Country)
	assert.Equal(t, "Amal", got.FullName)
	assert.True(t, got.UpdatedAt.Equal(later))
	assert.True(t, got.ApprovedAt.Equal(testNow))

	err = f.alumni.Update(ctx, 9999, repositories.ProfileChanges{Phone: ptr("1")}, later)
	assert.ErrorIs(t, err, repositories.ErrAlumniProfileNotFound)

	_, err = f.alumni.GetByUserID(ctx, 9999)
	assert.ErrorIs(t, err, repositories.ErrAlumniProfileNotFound)
}
