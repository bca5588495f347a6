// Package twofactor enrolls, verifies and removes TOTP second factors.
//
// Enrollment is client-held: GenerateSecret returns a secret and backup codes
// without storing them, and Enable persists them once the user proves
// possession with a current code.
package twofactor

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/clipmarket/internal/common"
	"github.com/garnizeh/clipmarket/internal/identity"
	"github.com/garnizeh/clipmarket/internal/metrics"
	"github.com/garnizeh/clipmarket/internal/models"
	"github.com/garnizeh/clipmarket/internal/validation"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

const (
	BackupCodeCount  = 10
	BackupCodeLength = 8
	backupAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	qrSize           = 200

	MethodTOTP       = "totp"
	MethodBackupCode = "backup_code"
)

// Options tune the TOTP parameters. An empty Issuer and a zero Period take
// the defaults; Skew is used as given, so 0 accepts only the current step.
type Options struct {
	Issuer string
	Period uint
	Skew   uint
}

// Enrollment is what a user needs to add the account to an authenticator app.
type Enrollment struct {
	Secret      string   `json:"secret"`
	OTPAuthURL  string   `json:"otpauthUrl"`
	QRCode      string   `json:"qrCode"`
	BackupCodes []string `json:"backupCodes"`
}

type EnableInput struct {
	Secret      string   `json:"secret" validate:"required"`
	Code        string   `json:"code" validate:"required,len=6,numeric"`
	BackupCodes []string `json:"backupCodes" validate:"required,min=1,max=20,dive,required"`
}

type DisableInput struct {
	Password string `json:"password" validate:"required"`
}

// Verification reports how a code was accepted.
type Verification struct {
	Method               string `json:"method"`
	RemainingBackupCodes int    `json:"remainingBackupCodes"`
}

type Manager struct {
	users  repository.UserRepo
	opts   Options
	now    func() time.Time
	rand   io.Reader
	logger *slog.Logger
}

type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRandom replaces the source of backup-code randomness.
func WithRandom(r io.Reader) Option {
	return func(m *Manager) { m.rand = r }
}

func NewManager(users repository.UserRepo, opts Options, logger *slog.Logger, options ...Option) *Manager {
	if opts.Issuer == "" {
		opts.Issuer = "ClipMarket"
	}
	if opts.Period == 0 {
		opts.Period = 30
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{users: users, opts: opts, now: time.Now, rand: rand.Reader, logger: logger}
	for _, o := range options {
		o(m)
	}
	return m
}

func (m *Manager) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    m.opts.Period,
		Skew:      m.opts.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func (m *Manager) currentUser(ctx context.Context, actor identity.Actor) (*models.User, error) {
	if !actor.Authenticated() {
		return nil, common.ErrUnauthenticated
	}

	u, err := m.users.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, common.ErrUnauthenticated
	}
	return u, nil
}

// GenerateSecret draws a new secret, its otpauth QR code and a fresh set of
// backup codes. Nothing is persisted.
func (m *Manager) GenerateSecret(ctx context.Context, actor identity.Actor) (*Enrollment, error) {
	u, err := m.currentUser(ctx, actor)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.opts.Issuer,
		AccountName: u.Email,
		Period:      m.opts.Period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}

	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}

	codes, err := m.backupCodes()
	if err != nil {
		return nil, err
	}

	return &Enrollment{
		Secret:      key.Secret(),
		OTPAuthURL:  key.URL(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		BackupCodes: codes,
	}, nil
}

// backupCodes draws each code independently, so repeats are possible.
func (m *Manager) backupCodes() ([]string, error) {
	base := big.NewInt(int64(len(backupAlphabet)))
	codes := make([]string, BackupCodeCount)
	for i := range codes {
		var sb strings.Builder
		for range BackupCodeLength {
			n, err := rand.Int(m.rand, base)
			if err != nil {
				return nil, fmt.Errorf("draw backup code: %w", err)
			}
			sb.WriteByte(backupAlphabet[n.Int64()])
		}
		codes[i] = sb.String()
	}
	return codes, nil
}

// normalizeCode is the form backup codes are stored and matched in.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (m *Manager) validTOTP(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, m.now().UTC(), m.validateOpts())
	return err == nil && ok
}

// Enable confirms enrollment and stores the secret with its backup codes.
func (m *Manager) Enable(ctx context.Context, actor identity.Actor, in EnableInput) error {
	codes := make([]string, len(in.BackupCodes))
	for i, c := range in.BackupCodes {
		codes[i] = normalizeCode(c)
	}
	in.BackupCodes = codes

	if err := validation.Struct(in); err != nil {
		return err
	}
	u, err := m.currentUser(ctx, actor)
	if err != nil {
		return err
	}

	if !m.validTOTP(in.Code, in.Secret) {
		return common.ErrInvalidCode
	}

	if err := m.users.EnableTwoFactor(ctx, u.ID, in.Secret, in.BackupCodes); err != nil {
		return fmt.Errorf("enable two-factor: %w", err)
	}

	m.logger.Info("two-factor enabled", slog.Int64("user_id", u.ID))
	return nil
}

// Disable removes the second factor after re-checking the account password.
func (m *Manager) Disable(ctx context.Context, actor identity.Actor, in DisableInput) error {
	u, err := m.currentUser(ctx, actor)
	if err != nil {
		return err
	}
	if err := validation.Struct(in); err != nil {
		return err
	}

	if u.PasswordHash == "" {
		return common.ErrNoPasswordSet
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return common.ErrIncorrectPassword
		}
		return fmt.Errorf("compare password: %w", err)
	}

	if err := m.users.DisableTwoFactor(ctx, u.ID); err != nil {
		return fmt.Errorf("disable two-factor: %w", err)
	}

	m.logger.Info("two-factor disabled", slog.Int64("user_id", u.ID))
	return nil
}

// VerifyCode accepts a current TOTP code or consumes one backup code.
func (m *Manager) VerifyCode(ctx context.Context, actor identity.Actor, code string) (Verification, error) {
	u, err := m.currentUser(ctx, actor)
	if err != nil {
		return Verification{}, err
	}
	if !u.TwoFactorEnabled || u.TwoFactorSecret == nil {
		return Verification{}, common.ErrInvalidCode
	}

	code = normalizeCode(code)
	if code == "" {
		return Verification{}, common.ErrInvalidCode
	}

	if m.validTOTP(code, *u.TwoFactorSecret) {
		metrics.TwoFactorVerification(MethodTOTP, "ok")
		return Verification{Method: MethodTOTP, RemainingBackupCodes: len(u.TwoFactorBackupCodes)}, nil
	}

	consumed, err := m.users.ConsumeBackupCode(ctx, u.ID, code)
	if err != nil {
		return Verification{}, fmt.Errorf("consume backup code: %w", err)
	}
	if !consumed {
		metrics.TwoFactorVerification("none", "rejected")
		return Verification{}, common.ErrInvalidCode
	}
	metrics.TwoFactorVerification(MethodBackupCode, "ok")

	remaining, err := m.users.CountBackupCodes(ctx, u.ID)
	if err != nil {
		return Verification{}, fmt.Errorf("count backup codes: %w", err)
	}

	m.logger.Info("backup code consumed", slog.Int64("user_id", u.ID), slog.Int("remaining", remaining))
	return Verification{Method: MethodBackupCode, RemainingBackupCodes: remaining}, nil
}
