package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/model"
	"storefront/internal/storage"
)

// ErrInvalidCode covers wrong, expired and already used OTP codes and reset tokens.
var ErrInvalidCode = errors.New("invalid or expired code")

// AccountStore is the user persistence behind the self-service flows.
type AccountStore interface {
	UserByEmail(ctx context.Context, email string) (model.User, error)
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	UpdatePassword(ctx context.Context, userID int64, hash string) error
}

// Notifier delivers a message to an email address.
type Notifier interface {
	Notify(ctx context.Context, to, subject, body string) error
}

type AccountOptions struct {
	ResetTTL    time.Duration
	OTPTTL      time.Duration
	OTPLength   int
	MaxAttempts int
	// ResetURL is the page the reset link points at; token and email are appended.
	ResetURL string
}

// Accounts runs registration, password reset and OTP login.
type Accounts struct {
	users    AccountStore
	codes    CodeStore
	notifier Notifier
	opts     AccountOptions
	logger   *zap.Logger
}

func NewAccounts(users AccountStore, codes CodeStore, notifier Notifier, opts AccountOptions, logger *zap.Logger) *Accounts {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.OTPLength <= 0 {
		opts.OTPLength = 6
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	return &Accounts{users: users, codes: codes, notifier: notifier, opts: opts, logger: logger}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Accounts) Register(ctx context.Context, name, email, password string) (model.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return model.User{}, err
	}
	user, err := a.users.CreateUser(ctx, model.User{Name: strings.TrimSpace(name), Email: NormalizeEmail(email), PasswordHash: hash})
	if err != nil {
		return model.User{}, err
	}
	a.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return user, nil
}

// ForgotPassword mails a reset link. Unknown addresses succeed silently so the
// endpoint cannot be used to enumerate accounts.
func (a *Accounts) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	user, err := a.users.UserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		a.logger.Info("password reset for unknown email ignored")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := GenerateAPIKey("", 40)
	if err != nil {
		return err
	}
	if err := a.codes.Put(ctx, "reset:"+email, HashSecret(token), a.opts.ResetTTL); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	link := a.opts.ResetURL + "?" + url.Values{"token": {token}, "email": {email}}.Encode()
	body := fmt.Sprintf("Reset your password: %s\nThe link expires in %s.", link, a.opts.ResetTTL)
	if err := a.notifier.Notify(ctx, email, "Reset your password", body); err != nil {
		return err
	}
	a.logger.Info("password reset issued", zap.Int64("user_id", user.ID))
	return nil
}

// ResetPassword spends a reset token. The password is checked first so a weak
// password does not burn the token.
func (a *Accounts) ResetPassword(ctx context.Context, email, token, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	email = NormalizeEmail(email)
	ok, err := a.codes.Consume(ctx, "reset:"+email, HashSecret(token), a.opts.MaxAttempts)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if !ok {
		return ErrInvalidCode
	}

	user, err := a.users.UserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := a.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	a.logger.Info("password reset", zap.Int64("user_id", user.ID))
	return nil
}

// SendOTP mails a numeric login code. Unknown addresses succeed silently.
func (a *Accounts) SendOTP(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	user, err := a.users.UserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		a.logger.Info("otp for unknown email ignored")
		return nil
	}
	if err != nil {
		return err
	}

	code, err := randomDigits(a.opts.OTPLength)
	if err != nil {
		return err
	}
	if err := a.codes.Put(ctx, "otp:"+email, code, a.opts.OTPTTL); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	body := fmt.Sprintf("Your login code is %s. It expires in %s.", code, a.opts.OTPTTL)
	if err := a.notifier.Notify(ctx, email, "Your login code", body); err != nil {
		return err
	}
	a.logger.Info("otp sent", zap.Int64("user_id", user.ID))
	return nil
}

// VerifyOTP spends a login code and returns its user.
func (a *Accounts) VerifyOTP(ctx context.Context, email, code string) (model.User, error) {
	email = NormalizeEmail(email)
	ok, err := a.codes.Consume(ctx, "otp:"+email, code, a.opts.MaxAttempts)
	if err != nil {
		return model.User{}, fmt.Errorf("consume otp: %w", err)
	}
	if !ok {
		return model.User{}, ErrInvalidCode
	}
	return a.users.UserByEmail(ctx, email)
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
