package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/carebook/appointment-booking/internal/apperr"
	"github.com/carebook/appointment-booking/internal/model"
)

const minPasswordLen = 8

// Identity is the resolved {userId, role} pair downstream components
// trust without re-validation.
type Identity struct {
	UserID uuid.UUID
	Role   model.Role
}

// Registration carries everything needed to create a user plus its
// role-specific profile.
type Registration struct {
	Email       string
	Password    string
	DisplayName string
	Role        model.Role

	// Patient fields
	Age    int
	Gender model.Gender

	// Provider fields
	Specialty string
}

// Gateway resolves credentials into identities and mints the bearer
// tokens the API layer carries per request.
type Gateway struct {
	repo     Repository
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewGateway(repo Repository, secret string, tokenTTL time.Duration) *Gateway {
	return &Gateway{
		repo:     repo,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

func (g *Gateway) Register(ctx context.Context, reg Registration) (*Identity, error) {
	email := strings.ToLower(strings.TrimSpace(reg.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation("email is required")
	}
	if strings.TrimSpace(reg.DisplayName) == "" {
		return nil, apperr.Validation("display name is required")
	}
	if len(reg.Password) < minPasswordLen {
		return nil, ErrWeakCredential
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := g.now().UTC()
	user := model.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: strings.TrimSpace(reg.DisplayName),
		Role:        reg.Role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	switch reg.Role {
	case model.RolePatient:
		if reg.Age < 1 || reg.Age > 120 {
			return nil, apperr.Validation("age must be between 1 and 120")
		}
		switch reg.Gender {
		case model.GenderMale, model.GenderFemale, model.GenderOther:
		default:
			return nil, apperr.Validation("gender must be male, female or other")
		}
		profile := model.PatientProfile{User: user, Age: reg.Age, Gender: reg.Gender}
		if err := g.repo.CreatePatient(ctx, &profile, string(hash)); err != nil {
			return nil, err
		}
	case model.RoleProvider:
		if strings.TrimSpace(reg.Specialty) == "" {
			return nil, apperr.Validation("specialty is required")
		}
		profile := model.ProviderProfile{User: user, Specialty: strings.TrimSpace(reg.Specialty)}
		if err := g.repo.CreateProvider(ctx, &profile, string(hash)); err != nil {
			return nil, err
		}
	default:
		return nil, apperr.Validation("role must be patient or provider")
	}

	return &Identity{UserID: user.ID, Role: user.Role}, nil
}

func (g *Gateway) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	creds, err := g.repo.GetCredentials(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}

	return &Identity{UserID: creds.UserID, Role: creds.Role}, nil
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// MintToken issues a signed bearer token for an authenticated identity.
func (g *Gateway) MintToken(id Identity) (string, error) {
	now := g.now()
	claims := tokenClaims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken resolves a bearer token back into an identity. This is the
// per-request CurrentIdentity source; nothing reads ambient session state.
func (g *Gateway) ParseToken(raw string) (*Identity, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithTimeFunc(g.now))
	if err != nil || !token.Valid {
		return nil, apperr.Forbidden("invalid or expired token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperr.Forbidden("invalid token subject")
	}

	role := model.Role(claims.Role)
	if role != model.RolePatient && role != model.RoleProvider {
		return nil, apperr.Forbidden("invalid token role")
	}

	return &Identity{UserID: userID, Role: role}, nil
}

// GetPatient exposes the directory lookup for API handlers.
func (g *Gateway) GetPatient(ctx context.Context, id uuid.UUID) (*model.PatientProfile, error) {
	return g.repo.GetPatient(ctx, id)
}

// GetProvider exposes the directory lookup for API handlers.
func (g *Gateway) GetProvider(ctx context.Context, id uuid.UUID) (*model.ProviderProfile, error) {
	return g.repo.GetProvider(ctx, id)
}
