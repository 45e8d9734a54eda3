package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Dosada05/alumni-network/models"
	"github.com/Dosada05/alumni-network/repositories"
	"github.com/Dosada05/alumni-network/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	minPasswordLength  = 8
	googleUserInfoURL  = "https://openidconnect.googleapis.com/v1/userinfo"
	googleExchangeTime = 10 * time.Second
)

type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*models.User, error)
	GoogleAuthURL(state string) (string, error)
	LoginWithGoogle(ctx context.Context, code string) (*models.User, error)
	Me(ctx context.Context, userID int) (*MeResult, error)
	CreateSuperAdmin(ctx context.Context, input CreateAdminInput) (*models.User, error)
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateAdminInput struct {
	Email    string
	FullName string
	Password string
}

// MeResult - текущая учётная запись, её последняя заявка и запись справочника.
type MeResult struct {
	User             *models.User          `json:"user"`
	LatestSubmission *models.Submission    `json:"latest_submission,omitempty"`
	Profile          *models.AlumniProfile `json:"profile,omitempty"`
}

// GoogleIdentity - подтверждённые Google данные пользователя.
type GoogleIdentity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

type GoogleIdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*GoogleIdentity, error)
}

type googleOAuthProvider struct {
	cfg         *oauth2.Config
	userInfoURL string
}

func NewGoogleOAuthProvider(clientID, clientSecret, redirectURL string) GoogleIdentityProvider {
	return &googleOAuthProvider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (p *googleOAuthProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *googleOAuthProvider) Exchange(ctx context.Context, code string) (*GoogleIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, googleExchangeTime)
	defer cancel()

	token, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: google code exchange failed: %v", ErrAuthenticationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.cfg.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: google userinfo returned %s", ErrAuthenticationFailed, resp.Status)
	}

	var identity GoogleIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("failed to decode google userinfo: %w", err)
	}
	return &identity, nil
}

type authService struct {
	userRepo       repositories.UserRepository
	submissionRepo repositories.SubmissionRepository
	alumniRepo     repositories.AlumniRepository
	google         GoogleIdentityProvider
	logger         *slog.Logger
	now            func() time.Time
}

// NewAuthService - google может быть nil, тогда вход через Google отключён.
func NewAuthService(
	userRepo repositories.UserRepository,
	submissionRepo repositories.SubmissionRepository,
	alumniRepo repositories.AlumniRepository,
	google GoogleIdentityProvider,
	logger *slog.Logger,
) AuthService {
	return &authService{
		userRepo:       userRepo,
		submissionRepo: submissionRepo,
		alumniRepo:     alumniRepo,
		google:         google,
		logger:         loggerOrDefault(logger),
		now:            time.Now,
	}
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	// аккаунты Google не имеют пароля
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := utils.CheckPasswordHash(input.Password, user.PasswordHash); err != nil {
		if errors.Is(err, utils.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) GoogleAuthURL(state string) (string, error) {
	if s.google == nil {
		return "", ErrGoogleLoginNotEnabled
	}
	return s.google.AuthCodeURL(state), nil
}

func (s *authService) LoginWithGoogle(ctx context.Context, code string) (*models.User, error) {
	if s.google == nil {
		return nil, ErrGoogleLoginNotEnabled
	}
	if strings.TrimSpace(code) == "" {
		return nil, validationFailed("code", "must be provided")
	}

	identity, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	if identity.Subject == "" || identity.Email == "" || !identity.EmailVerified {
		return nil, fmt.Errorf("%w: google account email is not verified", ErrAuthenticationFailed)
	}

	user, err := s.userRepo.GetByGoogleSubject(ctx, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user by google subject: %w", err)
	}

	// учётная запись с тем же email привязывается к Google при первом входе
	user, err = s.userRepo.GetByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		if user.GoogleSubject != nil && *user.GoogleSubject != identity.Subject {
			return nil, fmt.Errorf("%w: email is linked to a different google account", ErrAuthenticationFailed)
		}
		if err := s.userRepo.LinkGoogleSubject(ctx, user.ID, identity.Subject); err != nil {
			return nil, fmt.Errorf("failed to link google account: %w", err)
		}
		subject := identity.Subject
		user.GoogleSubject = &subject
		user.PasswordHash = ""
		return user, nil
	case !errors.Is(err, repositories.ErrUserNotFound):
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	subject := identity.Subject
	user = &models.User{
		Email:         identity.Email,
		FullName:      strings.TrimSpace(identity.Name),
		GoogleSubject: &subject,
		Role:          models.RoleUnverified,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) || errors.Is(err, repositories.ErrUserGoogleConflict) {
			return nil, ErrUserEmailConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("user signed up with google", slog.Int("user_id", user.ID))
	return user, nil
}

func (s *authService) Me(ctx context.Context, userID int) (*MeResult, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	user.PasswordHash = ""
	result := &MeResult{User: user}

	submissions, err := s.submissionRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	if len(submissions) > 0 {
		result.LatestSubmission = &submissions[0]
	}

	profile, err := s.alumniRepo.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		result.Profile = profile
	case !errors.Is(err, repositories.ErrAlumniProfileNotFound):
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return result, nil
}

func (s *authService) CreateSuperAdmin(ctx context.Context, input CreateAdminInput) (*models.User, error) {
	v := NewValidationError()
	email := strings.ToLower(strings.TrimSpace(input.Email))
	v.Check(isValidEmail(email), "email", "must be a valid email address")
	v.Check(strings.TrimSpace(input.FullName) != "", "name", "must be provided")
	v.Check(len(input.Password) >= minPasswordLength, "password",
		fmt.Sprintf("must be at least %d characters long", minPasswordLength))
	if err := v.Err(); err != nil {
		return nil, err
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: hashedPassword,
		Role:         models.RoleSuperAdmin,
		IsVerified:   true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrUserEmailConflict
		}
		return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	user.PasswordHash = ""
	return user, nil
}
