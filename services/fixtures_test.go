package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dosada05/alumni-network/authz"
	"github.com/Dosada05/alumni-network/db/dbtest"
	"github.com/Dosada05/alumni-network/models"
	"github.com/Dosada05/alumni-network/notify"
	"github.com/Dosada05/alumni-network/repositories"
	"github.com/Dosada05/alumni-network/storage"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakeUploader struct {
	mu        sync.Mutex
	objects   map[string]string
	deleted   []string
	uploadErr error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: map[string]string{}}
}

func (u *fakeUploader) Upload(_ context.Context, key, contentType string, r io.Reader) (*storage.UploadResult, error) {
	if u.uploadErr != nil {
		return nil, u.uploadErr
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = contentType + ":" + string(body)
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

type pushed struct {
	userID int
	msg    notify.Message
}

type fakePusher struct {
	mu   sync.Mutex
	sent []pushed
}

func (p *fakePusher) PushToUser(userID int, msg notify.Message) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, pushed{userID: userID, msg: msg})
	return 1
}

func (p *fakePusher) kindsFor(userID int) []models.NotificationKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	var kinds []models.NotificationKind
	for _, s := range p.sent {
		if s.userID != userID {
			continue
		}
		if n, ok := s.msg.Payload.(*models.Notification); ok {
			kinds = append(kinds, n.Kind)
		}
	}
	return kinds
}

type fakeMailer struct {
	mu   sync.Mutex
	sent map[string][]models.NotificationKind
	err  error
}

func (m *fakeMailer) SendNotificationEmail(_ context.Context, to *models.User, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent == nil {
		m.sent = map[string][]models.NotificationKind{}
	}
	m.sent[to.Email] = append(m.sent[to.Email], n.Kind)
	return m.err
}

type fakeGoogle struct {
	identity *GoogleIdentity
	err      error
}

func (g *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (g *fakeGoogle) Exchange(_ context.Context, code string) (*GoogleIdentity, error) {
	if g.err != nil {
		return nil, g.err
	}
	if code != "good-code" {
		return nil, fmt.Errorf("%w: bad code", ErrAuthenticationFailed)
	}
	return g.identity, nil
}

// testEnv собирает сервисы поверх временной SQLite базы.
type testEnv struct {
	db       *sql.DB
	repos    repos
	uploader *fakeUploader
	pusher   *fakePusher
	mailer   *fakeMailer
	notifier *Notifier

	submissions   SubmissionService
	fieldAdmins   FieldAdminService
	directory     DirectoryService
	reports       ReportService
	profiles      ProfileService
	events        EventService
	notifications NotificationService
	dashboard     DashboardService
}

type repos struct {
	users         repositories.UserRepository
	submissions   repositories.SubmissionRepository
	alumni        repositories.AlumniRepository
	fieldAdmins   repositories.FieldAdminRepository
	events        repositories.EventRepository
	registrations repositories.RegistrationRepository
	notifications repositories.NotificationRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn := dbtest.New(t)
	d := repositories.DialectSQLite
	r := repos{
		users:         repositories.NewSQLUserRepository(conn, d),
		submissions:   repositories.NewSQLSubmissionRepository(conn, d),
		alumni:        repositories.NewSQLAlumniRepository(conn, d),
		fieldAdmins:   repositories.NewSQLFieldAdminRepository(conn, d),
		events:        repositories.NewSQLEventRepository(conn, d),
		registrations: repositories.NewSQLRegistrationRepository(conn, d),
		notifications: repositories.NewSQLNotificationRepository(conn, d),
	}
	env := &testEnv{
		db:       conn,
		repos:    r,
		uploader: newFakeUploader(),
		pusher:   &fakePusher{},
		mailer:   &fakeMailer{},
	}
	env.notifier = NewNotifier(r.notifications, r.users, env.pusher, env.mailer, nil)

	submissions := NewSubmissionService(conn, r.submissions, r.users, r.alumni, r.fieldAdmins, env.notifier, env.uploader, nil).(*submissionService)
	submissions.now = clock
	fieldAdmins := NewFieldAdminService(conn, r.users, r.fieldAdmins, env.notifier, nil).(*fieldAdminService)
	fieldAdmins.now = clock
	profiles := NewProfileService(r.alumni, env.uploader, nil).(*profileService)
	profiles.now = clock
	events := NewEventService(conn, r.events, r.registrations, nil).(*eventService)
	events.now = clock
	notifications := NewNotificationService(r.notifications).(*notificationService)
	notifications.now = clock
	dashboard := NewDashboardService(r.submissions, r.alumni, r.events, r.fieldAdmins).(*dashboardService)
	dashboard.now = clock

	env.submissions = submissions
	env.fieldAdmins = fieldAdmins
	env.directory = NewDirectoryService(r.alumni)
	env.reports = NewReportService(r.alumni)
	env.profiles = profiles
	env.events = events
	env.notifications = notifications
	env.dashboard = dashboard
	return env
}

// newUser создаёт учётную запись и возвращает её вместе с построенным участником.
func (e *testEnv) newUser(t *testing.T, email string, role models.UserRole, field *models.Field) (*models.User, authz.Principal) {
	t.Helper()
	ctx := context.Background()
	u := &models.User{
		Email:      email,
		FullName:   "Test " + email,
		Role:       role,
		IsVerified: role != models.RoleUnverified,
		CreatedAt:  fixedNow,
	}
	if role == models.RoleFieldAdmin {
		u.AssignedField = field
	}
	require.NoError(t, e.repos.users.Create(ctx, u))
	if role == models.RoleFieldAdmin {
		row, err := e.repos.fieldAdmins.Get(ctx, nil, *field)
		require.NoError(t, err)
		require.NoError(t, e.repos.fieldAdmins.CompareAndSet(ctx, nil, *field, &u.ID, &fixedNow, row.Version))
	}
	return u, e.principal(t, u.ID)
}

// principal перечитывает пользователя, как это делает middleware на каждом запросе.
func (e *testEnv) principal(t *testing.T, userID int) authz.Principal {
	t.Helper()
	u, err := e.repos.users.GetByID(context.Background(), nil, userID)
	require.NoError(t, err)
	p, err := authz.PrincipalOf(u)
	require.NoError(t, err)
	return p
}

func (e *testEnv) user(t *testing.T, userID int) *models.User {
	t.Helper()
	u, err := e.repos.users.GetByID(context.Background(), nil, userID)
	require.NoError(t, err)
	return u
}

func validInput(field string) CreateSubmissionInput {
	phone := "+94771234567"
	batch := 2018
	return CreateSubmissionInput{
		FullName:    "Kasun Jayasuriya",
		CallingName: "Kasun",
		Field:       field,
		Country:     "Sri Lanka",
		Phone:       &phone,
		Batch:       &batch,
	}
}

// verifiedAlumnus проводит пользователя через подачу и одобрение анкеты.
func (e *testEnv) verifiedAlumnus(t *testing.T, admin authz.Principal, email, name string, field models.Field, country string) (*models.User, authz.Principal) {
	t.Helper()
	ctx := context.Background()
	u, p := e.newUser(t, email, models.RoleUnverified, nil)
	input := validInput(string(field))
	input.FullName = name
	input.Country = country
	s, err := e.submissions.Create(ctx, p, input)
	require.NoError(t, err)
	_, err = e.submissions.Approve(ctx, admin, s.ID, nil)
	require.NoError(t, err)
	return u, e.principal(t, u.ID)
}

func fieldPtr(f models.Field) *models.Field { return &f }
