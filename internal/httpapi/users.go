package httpapi

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"

	"github.com/justxchange/go-backend/internal/auth"
)

// UserController exposes the signup, verification, login, and profile
// endpoints.
type UserController struct {
	auth *auth.Service
}

// NewUserController wires the user-facing auth endpoints.
func NewUserController(service *auth.Service) *UserController {
	return &UserController{auth: service}
}

type signupRequest struct {
	MobileNumber string `json:"mobileNumber"`
	Channel      string `json:"channel"`
}

func (r signupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MobileNumber, validation.Required),
		validation.Field(&r.Channel, validation.In(auth.ChannelSMS, auth.ChannelEmail)),
	)
}

// Signup requests a one-time code for an identifier, creating the identity
// row when it does not exist yet. A repeated call overwrites any previous
// unconsumed code.
func (u *UserController) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	channel := req.Channel
	if channel == "" {
		channel = auth.ChannelSMS
	}

	if err := u.auth.RequestCode(c.Context(), req.MobileNumber, channel); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "OTP sent successfully"})
}

type verifyOTPRequest struct {
	MobileNumber string `json:"mobileNumber"`
	OTP          string `json:"otp"`
	LoginOTP     string `json:"loginOtp"`
}

func (r verifyOTPRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MobileNumber, validation.Required),
		validation.Field(&r.OTP, validation.Required.When(r.LoginOTP == ""), validation.Length(6, 6), is.Digit),
		validation.Field(&r.LoginOTP, validation.Length(6, 6), is.Digit),
	)
}

// VerifyOTP consumes a signup code, or a step-up code when loginOtp is set.
// Only the step-up branch returns a token.
func (u *UserController) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	result, err := u.auth.VerifyCode(c.Context(), req.MobileNumber, req.OTP, req.LoginOTP)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

type saveUserRequest struct {
	MobileNumber string `json:"mobileNumber"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	College      string `json:"college"`
	Password     string `json:"password"`
}

func (r saveUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MobileNumber, validation.Required),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// SaveUser completes signup for a verified identifier and returns the first
// session token.
func (u *UserController) SaveUser(c *fiber.Ctx) error {
	var req saveUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	result, err := u.auth.Register(c.Context(), req.MobileNumber, auth.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		College:   req.College,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

type loginRequest struct {
	MobileNumber string `json:"mobileNumber"`
	Password     string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MobileNumber, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// Login authenticates a password. With two-factor enabled the response is a
// challenge acknowledgment; the token comes from VerifyOTP afterwards.
func (u *UserController) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	result, err := u.auth.Login(c.Context(), req.MobileNumber, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

type forgotPasswordRequest struct {
	MobileNumber string `json:"mobileNumber"`
	Password     string `json:"password"`
}

func (r forgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MobileNumber, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// ForgotPassword replaces the password for a verified identifier. Reusing the
// current password is rejected.
func (u *UserController) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	if err := u.auth.ResetPassword(c.Context(), req.MobileNumber, req.Password); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "password updated successfully"})
}

// Profile returns the authenticated user's profile.
func (u *UserController) Profile(c *fiber.Ctx) error {
	claims, err := sessionClaims(c)
	if err != nil {
		return err
	}

	user, err := u.auth.Profile(c.Context(), claims.UserID())
	if err != nil {
		return err
	}

	return c.JSON(user)
}

type saveProfileRequest struct {
	FirstName     string `json:"firstName"`
	Email         string `json:"email"`
	College       string `json:"college"`
	Address       string `json:"address"`
	ContactNumber string `json:"contactNumber"`
	TwoFAEnabled  bool   `json:"is2FAEnabled"`
	ProfileURL    string `json:"profileUrl"`
	IsContactView bool   `json:"isContactView"`
}

func (r saveProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.ProfileURL, is.URL),
	)
}

// SaveProfile updates the mutable profile fields, including the two-factor
// toggle.
func (u *UserController) SaveProfile(c *fiber.Ctx) error {
	claims, err := sessionClaims(c)
	if err != nil {
		return err
	}

	var req saveProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := u.auth.SaveProfile(c.Context(), claims.UserID(), auth.ProfileInput{
		FirstName:     req.FirstName,
		Email:         req.Email,
		College:       req.College,
		Address:       req.Address,
		ContactNumber: req.ContactNumber,
		TwoFAEnabled:  req.TwoFAEnabled,
		ProfileURL:    req.ProfileURL,
		IsContactView: req.IsContactView,
	})
	if err != nil {
		return err
	}

	return c.JSON(user)
}
