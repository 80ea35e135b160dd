package api

import (
	"net/http"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/logging"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email                string `json:"email"`
	Token                string `json:"token"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	return err == nil && addr.Address == strings.TrimSpace(s)
}

func (a *API) accountsEnabled(w http.ResponseWriter) bool {
	if a.Accounts == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{"account self-service is disabled"})
		return false
	}
	return true
}

// @Summary Register an operator account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Account"
// @Success 201 {object} TokenResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /register [post]
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	if !a.accountsEnabled(w) {
		return
	}
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "" || len(name) > 100:
		writeError(w, r, invalid("name is required and must be at most 100 characters"))
		return
	case !validEmail(req.Email):
		writeError(w, r, invalid("a valid email is required"))
		return
	}

	user, err := a.Accounts.Register(r.Context(), name, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := a.Sessions.Issue(user.ID, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, TokenResponse{Token: token})
}

// @Summary Request a password reset link
// @Tags Accounts
// @Accept json
// @Produce json
// @Param body body EmailRequest true "Account email"
// @Success 202 {object} MessageResponse
// @Failure 429 {object} ErrorResponse
// @Router /password/forgot [post]
func (a *API) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if !a.accountsEnabled(w) {
		return
	}
	var req EmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !validEmail(req.Email) {
		writeError(w, r, invalid("a valid email is required"))
		return
	}
	if err := a.Accounts.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, MessageResponse{Message: "if the account exists, a reset link has been sent"})
}

// @Summary Reset a password with an emailed token
// @Tags Accounts
// @Accept json
// @Produce json
// @Param body body ResetPasswordRequest true "Token and new password"
// @Success 200 {object} MessageResponse
// @Failure 422 {object} ErrorResponse
// @Router /password/reset [post]
func (a *API) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if !a.accountsEnabled(w) {
		return
	}
	var req ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	switch {
	case req.Token == "":
		writeError(w, r, invalid("token is required"))
		return
	case !validEmail(req.Email):
		writeError(w, r, invalid("a valid email is required"))
		return
	case req.Password != req.PasswordConfirmation:
		writeError(w, r, invalid("password confirmation does not match"))
		return
	}
	if err := a.Accounts.ResetPassword(r.Context(), req.Email, req.Token, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "password has been reset"})
}

// @Summary Send a one-time login code
// @Tags Accounts
// @Accept json
// @Produce json
// @Param body body EmailRequest true "Account email"
// @Success 202 {object} MessageResponse
// @Failure 429 {object} ErrorResponse
// @Router /otp/send [post]
func (a *API) SendOTP(w http.ResponseWriter, r *http.Request) {
	if !a.accountsEnabled(w) {
		return
	}
	var req EmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !validEmail(req.Email) {
		writeError(w, r, invalid("a valid email is required"))
		return
	}
	if err := a.Accounts.SendOTP(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, MessageResponse{Message: "if the account exists, a code has been sent"})
}

// @Summary Log in with a one-time code
// @Tags Accounts
// @Accept json
// @Produce json
// @Param body body VerifyOTPRequest true "Email and code"
// @Success 200 {object} TokenResponse
// @Failure 422 {object} ErrorResponse
// @Router /otp/verify [post]
func (a *API) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	if !a.accountsEnabled(w) {
		return
	}
	var req VerifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !validEmail(req.Email) || len(req.OTP) < 4 || len(req.OTP) > 8 {
		writeError(w, r, invalid("email and a 4 to 8 digit otp are required"))
		return
	}

	user, err := a.Accounts.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := a.Sessions.Issue(user.ID, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("admin logged in with otp", zap.Int64("user_id", user.ID))
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}
