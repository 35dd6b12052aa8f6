package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog"

	"github.com/justxchange/go-backend/internal/model"
)

// VerifyResult is the outcome of a code verification. Token is populated only
// when a step-up code was verified; plain signup verification still requires
// registration before a token is issued.
type VerifyResult struct {
	Verified     bool   `json:"verified"`
	Token        string `json:"token,omitempty"`
	TwoFAEnabled bool   `json:"is_2fa_enabled,omitempty"`
}

// LoginResult either carries a session token or flags that a second-factor
// challenge was issued and must be answered through VerifyCode.
type LoginResult struct {
	UserID          int64  `json:"user_id"`
	Token           string `json:"token,omitempty"`
	ChallengeIssued bool   `json:"challenge_issued,omitempty"`
}

// RegisterInput carries the profile fields persisted when signup completes.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	College   string
	Password  string
}

// ProfileInput carries the mutable profile fields, including the 2FA toggle.
type ProfileInput struct {
	FirstName     string
	Email         string
	College       string
	Address       string
	ContactNumber string
	TwoFAEnabled  bool
	ProfileURL    string
	IsContactView bool
}

// Service drives signup verification, login, and the optional second-factor
// challenge, and issues session tokens on success.
type Service struct {
	users   Users
	tokens  *TokenService
	sms     CodeSender
	email   CodeSender
	logger  zerolog.Logger
	codeTTL time.Duration
	now     func() time.Time
	newCode func() (string, error)
}

// ServiceOption customizes Service construction.
type ServiceOption func(*Service)

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithCodeFactory overrides one-time code generation (useful for tests).
func WithCodeFactory(factory func() (string, error)) ServiceOption {
	return func(s *Service) {
		if factory != nil {
			s.newCode = factory
		}
	}
}

// WithCodeTTL overrides the one-time code validity window.
func WithCodeTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.codeTTL = ttl
		}
	}
}

// NewService returns the auth state machine.
func NewService(users Users, tokens *TokenService, sms, email CodeSender, logger zerolog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		users:   users,
		tokens:  tokens,
		sms:     sms,
		email:   email,
		logger:  logger,
		codeTTL: DefaultCodeTTL,
		now:     time.Now,
		newCode: GenerateCode,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RequestCode creates the identity row if absent, stores a fresh signup code
// with its expiry, and dispatches it through the chosen channel. Any previous
// unconsumed code for the identifier is overwritten.
func (s *Service) RequestCode(ctx context.Context, identifier, channel string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return validationError("identifier is required")
	}

	switch channel {
	case ChannelSMS:
		if err := validateMobile(identifier); err != nil {
			return err
		}
	case ChannelEmail:
	default:
		return validationError("channel must be sms or email")
	}

	code, err := s.newCode()
	if err != nil {
		return err
	}
	expiry := s.now().Add(s.codeTTL)

	user, err := s.users.GetByIdentifier(ctx, identifier)
	switch {
	case err == nil:
		if err := s.users.SetSignupCode(ctx, user.ID, code, expiry); err != nil {
			return err
		}
	case goerrors.Is(err, ErrUserNotFound):
		record := &model.User{MobileNumber: identifier, OTP: &code, OTPExpiry: &expiry}
		if channel == ChannelEmail {
			record.Email = identifier
		}
		if user, err = s.users.Create(ctx, record); err != nil {
			return err
		}
	default:
		return err
	}

	// Delivery failure does not roll back the stored code; the code stays
	// valid for a manual resend within its window.
	if err := s.sender(channel).Send(ctx, identifier, code); err != nil {
		s.logger.Error().Err(err).Str("channel", channel).Msg("code dispatch failed")
		return goerrors.Wrap(err, ErrDeliveryFailed.Category, ErrDeliveryFailed.Message).
			WithTextCode(ErrDeliveryFailed.TextCode)
	}

	s.logger.Info().Str("channel", channel).Int64("user_id", user.ID).Msg("one-time code dispatched")
	return nil
}

// VerifyCode checks a signup code, or a step-up code when one is supplied.
// Both stored codes and the expiry are cleared atomically on success. Only
// the step-up branch issues a token; the signup branch returns a plain
// verified acknowledgment.
func (s *Service) VerifyCode(ctx context.Context, identifier, code, stepUpCode string) (*VerifyResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, validationError("identifier is required")
	}
	if code == "" && stepUpCode == "" {
		return nil, validationError("code is required")
	}

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if goerrors.Is(err, ErrUserNotFound) {
			// Same message as a wrong code so identifiers cannot be probed.
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if stepUpCode != "" {
		if user.LastLoginOTP == nil || *user.LastLoginOTP != stepUpCode {
			return nil, ErrInvalidCredentials
		}
	} else {
		if user.OTP == nil || *user.OTP != code {
			return nil, ErrInvalidCredentials
		}
	}

	if user.OTPExpiry != nil && user.OTPExpiry.Before(s.now()) {
		return nil, ErrCodeExpired
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return nil, err
	}

	result := &VerifyResult{Verified: true}
	if stepUpCode != "" {
		token, err := s.tokens.Issue(user.ID, user.Role)
		if err != nil {
			return nil, err
		}
		result.Token = token
		result.TwoFAEnabled = user.TwoFAEnabled
	}

	return result, nil
}

// Register completes signup for a verified identifier: hashes the password,
// persists the profile, and issues the first session token.
func (s *Service) Register(ctx context.Context, identifier string, input RegisterInput) (*LoginResult, error) {
	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if !user.MobileVerified {
		return nil, ErrNotVerified
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.Email = input.Email
	user.College = input.College
	user.PasswordHash = hash
	user.UpdatedAt = &now

	if err := s.users.SaveRegistration(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	return &LoginResult{UserID: user.ID, Token: token}, nil
}

// Login authenticates a verified identifier. With two-factor disabled it
// returns a token; with two-factor enabled it stores a fresh step-up code,
// dispatches it, and returns a challenge instead.
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if goerrors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.MobileVerified {
		return nil, ErrNotVerified
	}

	// Verified but never registered: no hash stored yet. Same answer as a
	// wrong password so the account state cannot be probed.
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, err
	}

	if !user.TwoFAEnabled {
		token, err := s.tokens.Issue(user.ID, user.Role)
		if err != nil {
			return nil, err
		}
		return &LoginResult{UserID: user.ID, Token: token}, nil
	}

	code, err := s.newCode()
	if err != nil {
		return nil, err
	}

	if err := s.users.SetStepUpCode(ctx, user.ID, code, s.now().Add(s.codeTTL)); err != nil {
		return nil, err
	}

	channel, recipient := s.preferredChannel(user)
	if err := s.sender(channel).Send(ctx, recipient, code); err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("step-up code dispatch failed")
		return nil, goerrors.Wrap(err, ErrDeliveryFailed.Category, ErrDeliveryFailed.Message).
			WithTextCode(ErrDeliveryFailed.TextCode)
	}

	return &LoginResult{UserID: user.ID, ChallengeIssued: true}, nil
}

// ResetPassword replaces the password hash for a verified identifier. A
// reset to the same password is rejected as a conflict.
func (s *Service) ResetPassword(ctx context.Context, identifier, newPassword string) error {
	if newPassword == "" {
		return validationError("password is required")
	}

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		return err
	}

	if !user.MobileVerified {
		return ErrNotVerified
	}

	if user.PasswordHash != "" {
		if err := ComparePasswordAndHash(newPassword, user.PasswordHash); err == nil {
			return ErrPasswordReused
		}
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.users.SetPasswordHash(ctx, user.ID, hash)
}

// Profile loads a user by id.
func (s *Service) Profile(ctx context.Context, userID int64) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// SaveProfile updates the mutable profile fields, including the two-factor
// toggle that switches Login between direct tokens and challenges.
func (s *Service) SaveProfile(ctx context.Context, userID int64, input ProfileInput) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user.FirstName = input.FirstName
	user.Email = input.Email
	user.College = input.College
	user.Address = input.Address
	user.ContactNumber = input.ContactNumber
	user.TwoFAEnabled = input.TwoFAEnabled
	user.ProfileURL = input.ProfileURL
	user.IsContactView = input.IsContactView
	user.UpdatedAt = &now

	if err := s.users.SaveProfile(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) sender(channel string) CodeSender {
	if channel == ChannelEmail {
		return s.email
	}
	return s.sms
}

func (s *Service) preferredChannel(user *model.User) (string, string) {
	if user.MobileNumber != "" && user.MobileNumber != user.Email {
		return ChannelSMS, user.MobileNumber
	}
	return ChannelEmail, user.Email
}

func validateMobile(identifier string) error {
	num, err := phonenumbers.Parse(identifier, "")
	if err != nil {
		return validationError("mobile number must include a country code")
	}
	if !phonenumbers.IsValidNumber(num) {
		return validationError("mobile number is not valid")
	}
	return nil
}
