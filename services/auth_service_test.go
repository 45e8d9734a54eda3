package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/alumni-network/models"
)

func (e *testEnv) authService(google GoogleIdentityProvider) AuthService {
	svc := NewAuthService(e.repos.users, e.repos.submissions, e.repos.alumni, google, nil)
	svc.(*authService).now = clock
	return svc
}

func TestAuthCreateSuperAdminAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auth := env.authService(nil)

	_, err := auth.CreateSuperAdmin(ctx, CreateAdminInput{Email: "bad", FullName: "", Password: "short"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)

	admin, err := auth.CreateSuperAdmin(ctx, CreateAdminInput{Email: " Root@Example.com ", FullName: "Root", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", admin.Email)
	assert.Equal(t, models.RoleSuperAdmin, admin.Role)
	assert.Empty(t, admin.PasswordHash)

	_, err = auth.CreateSuperAdmin(ctx, CreateAdminInput{Email: "root@example.com", FullName: "Root", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrUserEmailConflict)

	user, err := auth.Login(ctx, LoginInput{Email: "root@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, user.ID)
	assert.Empty(t, user.PasswordHash)

	_, err = auth.Login(ctx, LoginInput{Email: "root@example.com", Password: "wrong-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthGoogle_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	auth := env.authService(nil)

	_, err := auth.GoogleAuthURL("state")
	assert.ErrorIs(t, err, ErrGoogleLoginNotEnabled)
	_, err = auth.LoginWithGoogle(context.Background(), "good-code")
	assert.ErrorIs(t, err, ErrGoogleLoginNotEnabled)
}

func TestAuthGoogle_SignUpCreatesUnverifiedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	google := &fakeGoogle{identity: &GoogleIdentity{
		Subject: "g-123", Email: "new@example.com", EmailVerified: true, Name: " New Alumnus ",
	}}
	auth := env.authService(google)

	url, err := auth.GoogleAuthURL("abc")
	require.NoError(t, err)
	assert.Contains(t, url, "state=abc")

	_, err = auth.LoginWithGoogle(ctx, " ")
	require.ErrorIs(t, err, ErrValidationFailed)
	_, err = auth.LoginWithGoogle(ctx, "bad-code")
	require.ErrorIs(t, err, ErrAuthenticationFailed)

	user, err := auth.LoginWithGoogle(ctx, "good-code")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUnverified, user.Role)
	assert.False(t, user.IsVerified)
	assert.Equal(t, "New Alumnus", user.FullName)

	again, err := auth.LoginWithGoogle(ctx, "good-code")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	// у Google-аккаунта нет пароля
	_, err = auth.Login(ctx, LoginInput{Email: "new@example.com", Password: ""})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthGoogle_LinksExistingAccountByEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	existing, _ := env.newUser(t, "alum@example.com", models.RoleVerifiedUser, nil)
	auth := env.authService(&fakeGoogle{identity: &GoogleIdentity{
		Subject: "g-777", Email: "alum@example.com", EmailVerified: true, Name: "Alum",
	}})

	user, err := auth.LoginWithGoogle(ctx, "good-code")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	assert.Equal(t, models.RoleVerifiedUser, user.Role)

	linked, err := env.repos.users.GetByGoogleSubject(ctx, "g-777")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID)
}

func TestAuthGoogle_UnverifiedEmailRejected(t *testing.T) {
	env := newTestEnv(t)
	auth := env.authService(&fakeGoogle{identity: &GoogleIdentity{
		Subject: "g-1", Email: "x@example.com", EmailVerified: false,
	}})

	_, err := auth.LoginWithGoogle(context.Background(), "good-code")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestAuthMe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auth := env.authService(nil)
	_, root := env.newUser(t, "root@example.com", models.RoleSuperAdmin, nil)
	pendingUser, pending := env.newUser(t, "pending@example.com", models.RoleUnverified, nil)

	me, err := auth.Me(ctx, pendingUser.ID)
	require.NoError(t, err)
	assert.Nil(t, me.LatestSubmission)
	assert.Nil(t, me.Profile)

	s, err := env.submissions.Create(ctx, pending, validInput("Civil"))
	require.NoError(t, err)
	_, err = env.submissions.Approve(ctx, root, s.ID, nil)
	require.NoError(t, err)

	me, err = auth.Me(ctx, pendingUser.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleVerifiedUser, me.User.Role)
	require.NotNil(t, me.LatestSubmission)
	assert.Equal(t, models.SubmissionApproved, me.LatestSubmission.Status)
	require.NotNil(t, me.Profile)
	assert.Equal(t, models.FieldCivil, me.Profile.Field)

	_, err = auth.Me(ctx, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
