// Package auth issues and validates team and admin identities. Teams are
// created on first login and bound to a device fingerprint; a different
// device on the same email is rejected.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"codearena/internal/store"
	appErr "codearena/pkg/errors"
	"codearena/pkg/logger"
)

// Config holds auth settings.
type Config struct {
	JWTSecret     string `yaml:"jwt_secret"`
	JWTIssuer     string `yaml:"jwt_issuer"`
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
}

const (
	teamTokenTTL  = 4 * time.Hour
	adminTokenTTL = 8 * time.Hour

	RoleTeam  = "team"
	RoleAdmin = "admin"
)

// Service authenticates teams and admins.
type Service struct {
	cfg   Config
	teams store.TeamRepository
}

func NewService(cfg Config, teams store.TeamRepository) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "codearena"
	}
	return &Service{cfg: cfg, teams: teams}, nil
}

// Fingerprint derives the device identity bound at first login.
func Fingerprint(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + userAgent))
	return hex.EncodeToString(sum[:])
}

// TeamLoginInput is one team login attempt.
type TeamLoginInput struct {
	TeamName   string
	LeaderName string
	Email      string
	IP         string
	UserAgent  string
}

// TeamAuthResult carries the issued token and the team it belongs to.
type TeamAuthResult struct {
	Token string      `json:"token"`
	Team  *store.Team `json:"team"`
}

// TeamLogin registers the team on first sight of its email and re-issues a
// token on later logins from the same device.
func (s *Service) TeamLogin(ctx context.Context, in TeamLoginInput) (*TeamAuthResult, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	teamName := strings.TrimSpace(in.TeamName)
	leaderName := strings.TrimSpace(in.LeaderName)
	if teamName == "" || leaderName == "" {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("team name and leader name are required")
	}

	fingerprint := Fingerprint(in.IP, in.UserAgent)

	team, err := s.teams.GetByEmail(ctx, email)
	if err != nil {
		if appErr.GetCode(err) != appErr.TeamNotFound {
			return nil, err
		}
		team = &store.Team{
			TeamID:            newTeamID(),
			TeamName:          teamName,
			LeaderName:        leaderName,
			Email:             email,
			StartTime:         store.NowISO(),
			DeviceFingerprint: fingerprint,
		}
		if err := s.teams.Create(ctx, team); err != nil {
			return nil, err
		}
		logger.Info(ctx, "team registered",
			zap.String("team_id", team.TeamID),
			zap.String("email", email))
	} else {
		if team.Disqualified {
			return nil, appErr.New(appErr.TeamDisqualified).WithDetail("reason", team.DisqualifiedReason)
		}
		if team.DeviceFingerprint != "" && team.DeviceFingerprint != fingerprint {
			logger.Warn(ctx, "login from unknown device rejected",
				zap.String("team_id", team.TeamID),
				zap.String("email", email))
			return nil, appErr.New(appErr.SessionConflict)
		}
	}

	token, err := s.issueToken(team.TeamID, RoleTeam, teamTokenTTL)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InternalServerError, "sign token")
	}
	if err := s.teams.UpdateSession(ctx, email, fingerprint, hashToken(token)); err != nil {
		return nil, err
	}
	return &TeamAuthResult{Token: token, Team: team}, nil
}

// AdminLogin checks the configured credentials and issues an admin token.
func (s *Service) AdminLogin(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(strings.ToLower(s.cfg.AdminEmail))) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.AdminPassword)) == 1
	if s.cfg.AdminEmail == "" || s.cfg.AdminPassword == "" || !emailOK || !passOK {
		logger.Warn(ctx, "admin login rejected", zap.String("email", email))
		return "", appErr.New(appErr.InvalidCredentials)
	}

	token, err := s.issueToken(email, RoleAdmin, adminTokenTTL)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.InternalServerError, "sign token")
	}
	return token, nil
}

// Identity is a validated token subject.
type Identity struct {
	Subject string
	Role    string
}

type tokenClaims struct {
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Authenticate validates a raw bearer token and returns its identity.
func (s *Service) Authenticate(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, appErr.New(appErr.TokenInvalid)
	}
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, appErr.New(appErr.TokenExpired)
		}
		return Identity{}, appErr.New(appErr.TokenInvalid)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Identity{}, appErr.New(appErr.TokenInvalid)
	}
	if claims.Issuer != s.cfg.JWTIssuer || claims.TokenType != "access" || claims.Subject == "" {
		return Identity{}, appErr.New(appErr.TokenInvalid)
	}
	return Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

func (s *Service) issueToken(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Role:      role,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.cfg.JWTIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", appErr.New(appErr.InvalidParams).WithMessage("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", appErr.New(appErr.InvalidParams).WithMessage("email is invalid")
	}
	return email, nil
}

// newTeamID derives a short public team id from a fresh uuid.
func newTeamID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TEAM-" + strings.ToUpper(raw[:8])
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
