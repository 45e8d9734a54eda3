package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/alumni-network/authz"
	"github.com/Dosada05/alumni-network/models"
	"github.com/Dosada05/alumni-network/repositories"
)

func TestSubmissionCreate_SecondPendingIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, p := env.newUser(t, "amal@example.com", models.RoleUnverified, nil)

	first, err := env.submissions.Create(ctx, p, validInput("Computer"))
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionPending, first.Status)
	assert.Equal(t, models.FieldComputer, first.Field)

	_, err = env.submissions.Create(ctx, p, validInput("Civil"))
	require.ErrorIs(t, err, ErrPendingSubmissionExists)
	assert.ErrorIs(t, err, ErrConflict)

	own, err := env.submissions.ListOwn(ctx, p)
	require.NoError(t, err)
	assert.Len(t, own, 1)
}

func TestSubmissionCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	_, p := env.newUser(t, "nimal@example.com", models.RoleUnverified, nil)

	input := validInput("Astronomy")
	input.FullName = "  "
	input.Phone = nil
	bad := 1800
	input.Batch = &bad

	_, err := env.submissions.Create(context.Background(), p, input)
	require.ErrorIs(t, err, ErrValidationFailed)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "full_name")
	assert.Contains(t, verr.Fields, "field")
	assert.Contains(t, verr.Fields, "contact")
	assert.Contains(t, verr.Fields, "batch")
}

func TestSubmissionCreate_NormalisesFieldAlias(t *testing.T) {
	env := newTestEnv(t)
	_, p := env.newUser(t, "alias@example.com", models.RoleUnverified, nil)

	s, err := env.submissions.Create(context.Background(), p, validInput("computer"))
	require.NoError(t, err)
	assert.Equal(t, models.FieldComputer, s.Field)
}

func TestSubmissionCreate_VerifiedUserCannotSubmit(t *testing.T) {
	env := newTestEnv(t)
	_, p := env.newUser(t, "verified@example.com", models.RoleVerifiedUser, nil)

	_, err := env.submissions.Create(context.Background(), p, validInput("Computer"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSubmissionApprove_VerifiesOwnerAndCreatesProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, admin := env.newUser(t, "root@example.com", models.RoleSuperAdmin, nil)
	owner, p := env.newUser(t, "owner@example.com", models.RoleUnverified, nil)

	s, err := env.submissions.Create(ctx, p, validInput("Computer"))
	require.NoError(t, err)

	approved, err := env.submissions.Approve(ctx, admin, s.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, admin.UserID(), *approved.ReviewedBy)

	u := env.user(t, owner.ID)
	assert.Equal(t, models.RoleVerifiedUser, u.Role)
	assert.True(t, u.IsVerified)
	assert.Nil(t, u.AssignedField)

	profile, err := env.repos.alumni.GetByUserID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kasun Jayasuriya", profile.FullName)
	assert.Equal(t, models.FieldComputer, profile.Field)

	notes, err := env.repos.notifications.ListByUser(ctx, owner.ID, false, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationSubmissionApproved, notes[0].Kind)
	assert.Equal(t, []models.NotificationKind{models.NotificationSubmissionApproved}, env.pusher.kindsFor(owner.ID))
	assert.Equal(t, []models.NotificationKind{models.NotificationSubmissionApproved}, env.mailer.sent["owner@example.com"])
}

func TestSubmissionApprove_WithAssignedFieldReplacesAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, root := env.newUser(t, "root@example.com", models.RoleSuperAdmin, nil)
	previous, _ := env.newUser(t, "old-admin@example.com", models.RoleFieldAdmin, fieldPtr(models.FieldComputer))
	owner, p := env.newUser(t, "new-admin@example.com", models.RoleUnverified, nil)

	s, err := env.submissions.Create(ctx, p, validInput("Computer"))
	require.NoError(t, err)

	_, err = env.submissions.Approve(ctx, root, s.ID, fieldPtr(models.FieldComputer))
	require.NoError(t, err)

	u := env.user(t, owner.ID)
	assert.Equal(t, models.RoleFieldAdmin, u.Role)
	require.NotNil(t, u.AssignedField)
	assert.Equal(t, models.FieldComputer, *u.AssignedField)

	old := env.user(t, previous.ID)
	assert.Equal(t, models.RoleVerifiedUser, old.Role)
	assert.Nil(t, old.AssignedField)

	row, err := env.repos.fieldAdmins.Get(ctx, nil, models.FieldComputer)
	require.NoError(t, err)
	require.NotNil(t, row.AdminID)
	assert.Equal(t, owner.ID, *row.AdminID)

	assert.ElementsMatch(t,
		[]models.NotificationKind{models.NotificationFieldAdminAssigned, models.NotificationSubmissionApproved},
		env.pusher.kindsFor(owner.ID))
	assert.Equal(t, []models.NotificationKind{models.NotificationFieldAdminRemoved}, env.pusher.kindsFor(previous.ID))
}

func TestSubmissionApprove_FieldAdminCannotAssignFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, admin := env.newUser(t, "computer-admin@example.com", models.RoleFieldAdmin, fieldPtr(models.FieldComputer))
	_, p := env.newUser(t, "owner@example.com", models.RoleUnverified, nil)

	s, err := env.submissions.Create(ctx, p, validInput("Computer"))
	require.NoError(t, err)

	_, err = env.submissions.Approve(ctx, admin, s.ID, fieldPtr(models.FieldComputer))
	require.ErrorIs(t, err, ErrForbidden)

	got, err := env.repos.submissions.GetByID(ctx, nil, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionPending, got.Status)
}

func TestSubmissionReview_OutsideOwnFieldIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, civilAdmin := env.newUser(t, "civil-admin@example.com", models.RoleFieldAdmin, fieldPtr(models.FieldCivil))
	owner, p := env.newUser(t, "owner@example.com", models.RoleUnverified, nil)

	s, err := env.submissions.Create(ctx, p, validInput("Computer"))
	require.NoError(t, err)

	_, err = env.submissions.Approve(ctx, civilAdmin, s.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.submissions.Reject(ctx, civilAdmin, s.ID, "not mine")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.submissions.Get(ctx, civilAdmin, s.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Equal(t, models.RoleUnverified, env.user(t, owner.ID).Role)
	_, err = env.repos.alumni.GetByUserID(ctx, owner.ID)
	assert.ErrorIs(t, err, repositories.ErrAlumniProfileNotFound)
}

func TestSubmissionReject_RequiresReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, admin := env.newUser(t, "computer-admin@example.com", models.RoleFieldAdmin, fieldPtr(models.FieldComputer))
	owner, p := env.newUser(t, "owner@example.com", models.RoleUnverified, nil)

	s, err := env.submissions.Create(ctx, p, validInput("Computer"))
	require.NoError(t, err)

	_, err = env.submissions.Reject(ctx, admin, s.ID, "   ")
	require.ErrorIs(t, err, ErrValidationFailed)

	_, err = env.submissions.Reject(ctx, admin, s.ID, strings.Repeat("x", maxRejectionReason+1))
	require.ErrorIs(t, err, ErrValidationFailed)

	rejected, err := env.submissions.Reject(ctx, admin, s.ID, "Incomplete information")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "Incomplete information", *rejected.RejectionReason)
	assert.Equal(t, models.RoleUnverified, env.user(t, owner.ID).Role)
	assert.Equal(t, []models.NotificationKind{models.NotificationSubmissionRejected}, env.pusher.kindsFor(owner.ID))

	// после отказа можно подать новую заявку
	_, err = env.submissions.Create(ctx, p, validInput("Computer"))
	assert.NoError(t, err)
}

func TestSubmissionApprove_NotPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, root := env.newUser(t, "root@example.com", models.RoleSuperAdmin, nil)
	_, p := env.newUser(t, "owner@example.com", models.RoleUnverified, nil)

	s, err := env.submissions.Create(ctx, p, validInput("Civil"))
	require.NoError(t, err)
	_, err = env.submissions.Reject(ctx, root, s.ID, "duplicate")
	require.NoError(t, err)

	_, err = env.submissions.Approve(ctx, root, s.ID, nil)
	assert.ErrorIs(t, err, ErrSubmissionNotPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubmissionApprove_ConcurrentReviewersOneWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, root := env.newUser(t, "root@example.com", models.RoleSuperAdmin, nil)
	_, admin := env.newUser(t, "computer-admin@example.com", models.RoleFieldAdmin, fieldPtr(models.FieldComputer))
	owner, p := env.newUser(t, "owner@example.com", models.RoleUnverified, nil)

	s, err := env.submissions.Create(ctx, p, validInput("Computer"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, actor := range []authz.Principal{root, admin} {
		wg.Add(1)
		go func(i int, actor authz.Principal) {
			defer wg.Done()
			_, errs[i] = env.submissions.Approve(ctx, actor, s.ID, nil)
		}(i, actor)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrSubmissionNotPending)
	}
	assert.Equal(t, 1, succeeded)

	profiles, total, err := env.repos.alumni.Search(ctx, repositories.AlumniQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, profiles, 1)
	assert.Equal(t, models.RoleVerifiedUser, env.user(t, owner.ID).Role)
}

func TestSubmissionAttachPhoto(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, p := env.newUser(t, "owner@example.com", models.RoleUnverified, nil)
	_, other := env.newUser(t, "other@example.com", models.RoleUnverified, nil)

	s, err := env.submissions.Create(ctx, p, validInput("Computer"))
	require.NoError(t, err)

	_, err = env.submissions.AttachPhoto(ctx, other, s.ID, PhotoUpload{Reader: strings.NewReader("img"), ContentType: "image/png"})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.submissions.AttachPhoto(ctx, p, s.ID, PhotoUpload{Reader: strings.NewReader("img"), ContentType: "application/pdf"})
	require.ErrorIs(t, err, ErrValidationFailed)

	first, err := env.submissions.AttachPhoto(ctx, p, s.ID, PhotoUpload{Reader: strings.NewReader("img"), ContentType: "image/png"})
	require.NoError(t, err)
	require.NotNil(t, first.PhotoKey)
	require.NotNil(t, first.PhotoURL)
	assert.True(t, strings.HasPrefix(*first.PhotoKey, "alumni/"))
	assert.Equal(t, "https://cdn.test/"+*first.PhotoKey, *first.PhotoURL)

	second, err := env.submissions.AttachPhoto(ctx, p, s.ID, PhotoUpload{Reader: strings.NewReader("img2"), ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.NotEqual(t, *first.PhotoKey, *second.PhotoKey)
	assert.Equal(t, []string{*first.PhotoKey}, env.uploader.deleted)
}

func TestSubmissionListForReview_ScopedToAdminField(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, admin := env.newUser(t, "computer-admin@example.com", models.RoleFieldAdmin, fieldPtr(models.FieldComputer))
	_, root := env.newUser(t, "root@example.com", models.RoleSuperAdmin, nil)

	for i, field := range []string{"Computer", "Civil", "Computer"} {
		_, p := env.newUser(t, fmt.Sprintf("applicant%d@example.com", i), models.RoleUnverified, nil)
		_, err := env.submissions.Create(ctx, p, validInput(field))
		require.NoError(t, err)
	}

	scoped, err := env.submissions.ListForReview(ctx, admin, ReviewFilter{})
	require.NoError(t, err)
	assert.Len(t, scoped, 2)
	for _, s := range scoped {
		assert.Equal(t, models.FieldComputer, s.Field)
	}

	_, err = env.submissions.ListForReview(ctx, admin, ReviewFilter{Field: fieldPtr(models.FieldCivil)})
	assert.ErrorIs(t, err, ErrForbidden)

	all, err := env.submissions.ListForReview(ctx, root, ReviewFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	civil, err := env.submissions.ListForReview(ctx, root, ReviewFilter{Field: fieldPtr(models.FieldCivil)})
	require.NoError(t, err)
	assert.Len(t, civil, 1)

	page, err := env.submissions.ListForReview(ctx, root, ReviewFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	_, err = env.submissions.ListForReview(ctx, root, ReviewFilter{Limit: 10, Offset: -5})
	assert.ErrorIs(t, err, ErrValidationFailed)
	_, err = env.submissions.ListForReview(ctx, root, ReviewFilter{Limit: -1})
	assert.ErrorIs(t, err, ErrValidationFailed)
}
