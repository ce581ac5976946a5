package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
)

// Token purposes. A token minted for one purpose never validates for another.
const (
	PurposeAccess            = "access"
	PurposeEmailVerification = "email_verification"
)

// Claims are the JWT claims shared by access tokens and email verification links.
type Claims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Purpose  string `json:"purpose"`
	Continue string `json:"continue,omitempty"`
	jwt.RegisteredClaims
}

// JWTService mints and validates HS256 tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

// WithClock returns a copy of the service reading time from now.
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	cp := *s
	cp.now = now
	return &cp
}

func (s *JWTService) sign(claims Claims, expiresIn time.Duration) (string, error) {
	issuedAt := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(expiresIn)),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		Issuer:    s.issuer,
		Audience:  []string{s.audience},
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// GenerateAccessToken mints the bearer token used by authenticated endpoints.
func (s *JWTService) GenerateAccessToken(userID id.UserID, email string, expiresIn time.Duration) (string, error) {
	return s.sign(Claims{
		UserID:  userID.String(),
		Email:   email,
		Purpose: PurposeAccess,
	}, expiresIn)
}

// GenerateEmailVerificationToken mints the token embedded in a verification link.
func (s *JWTService) GenerateEmailVerificationToken(userID id.UserID, email, continueURL string, expiresIn time.Duration) (string, error) {
	return s.sign(Claims{
		UserID:   userID.String(),
		Email:    email,
		Purpose:  PurposeEmailVerification,
		Continue: continueURL,
	}, expiresIn)
}

func (s *JWTService) parse(tokenString, purpose string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Purpose != purpose {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token purpose mismatch")
	}
	return claims, nil
}

// ValidateToken validates an access token.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	return s.parse(tokenString, PurposeAccess)
}

// ValidateEmailVerificationToken validates a verification link token.
func (s *JWTService) ValidateEmailVerificationToken(tokenString string) (*Claims, error) {
	return s.parse(tokenString, PurposeEmailVerification)
}
