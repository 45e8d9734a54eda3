package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/alumni-network/models"
)

func TestProfileUpdateOwn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, root := env.newUser(t, "root@example.com", models.RoleSuperAdmin, nil)
	_, alum := env.verifiedAlumnus(t, root, "ruwan@example.com", "Ruwan Perera", models.FieldComputer, "Sri Lanka")

	_, err := env.profiles.UpdateOwn(ctx, alum, UpdateProfileInput{})
	require.ErrorIs(t, err, ErrValidationFailed)

	blank := "  "
	_, err = env.profiles.UpdateOwn(ctx, alum, UpdateProfileInput{Country: &blank})
	require.ErrorIs(t, err, ErrValidationFailed)

	country := " Canada "
	workplace := "Acme Labs"
	updated, err := env.profiles.UpdateOwn(ctx, alum, UpdateProfileInput{Country: &country, Workplace: &workplace})
	require.NoError(t, err)
	assert.Equal(t, "Canada", updated.Country)
	require.NotNil(t, updated.Workplace)
	assert.Equal(t, "Acme Labs", *updated.Workplace)
	assert.Equal(t, "Ruwan Perera", updated.FullName)
	assert.Equal(t, models.FieldComputer, updated.Field)

	got, err := env.profiles.GetOwn(ctx, alum)
	require.NoError(t, err)
	assert.Equal(t, "Canada", got.Country)
}

func TestProfileUpdateOwn_Forbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, root := env.newUser(t, "root@example.com", models.RoleSuperAdmin, nil)
	_, pending := env.newUser(t, "pending@example.com", models.RoleUnverified, nil)

	country := "Canada"
	_, err := env.profiles.UpdateOwn(ctx, root, UpdateProfileInput{Country: &country})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.profiles.UpdateOwn(ctx, pending, UpdateProfileInput{Country: &country})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.profiles.GetOwn(ctx, pending)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestProfileUploadPhoto_ReplacesOldObject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, root := env.newUser(t, "root@example.com", models.RoleSuperAdmin, nil)
	_, alum := env.verifiedAlumnus(t, root, "ruwan@example.com", "Ruwan Perera", models.FieldComputer, "Sri Lanka")

	first, err := env.profiles.UploadPhoto(ctx, alum, PhotoUpload{Reader: strings.NewReader("a"), ContentType: "image/png"})
	require.NoError(t, err)
	require.NotNil(t, first.PhotoKey)
	assert.Empty(t, env.uploader.deleted)

	second, err := env.profiles.UploadPhoto(ctx, alum, PhotoUpload{Reader: strings.NewReader("b"), ContentType: "image/webp"})
	require.NoError(t, err)
	require.NotNil(t, second.PhotoURL)
	assert.True(t, strings.HasSuffix(*second.PhotoURL, ".webp"))
	assert.Equal(t, []string{*first.PhotoKey}, env.uploader.deleted)
	assert.Len(t, env.uploader.objects, 1)
}

func TestProfileUploadPhoto_UploadFailureKeepsProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, root := env.newUser(t, "root@example.com", models.RoleSuperAdmin, nil)
	_, alum := env.verifiedAlumnus(t, root, "ruwan@example.com", "Ruwan Perera", models.FieldComputer, "Sri Lanka")

	env.uploader.uploadErr = assert.AnError
	_, err := env.profiles.UploadPhoto(ctx, alum, PhotoUpload{Reader: strings.NewReader("a"), ContentType: "image/png"})
	require.ErrorIs(t, err, assert.AnError)

	got, err := env.profiles.GetOwn(ctx, alum)
	require.NoError(t, err)
	assert.Nil(t, got.PhotoKey)
}
