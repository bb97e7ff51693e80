package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
	authmw "rwaledger/pkg/platform/middleware/auth"
)

// Claims are the claims carried by operator access tokens. The registered
// subject is the caller address in checksummed hex.
type Claims struct {
	Label string `json:"label,omitempty"`
	jwt.RegisteredClaims
}

// IssuedToken is a freshly signed access token.
type IssuedToken struct {
	Token     string
	JTI       string
	Subject   domain.Address
	ExpiresAt time.Time
}

// JWTService handles JWT creation and validation
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

// IssueToken signs an HS256 token whose subject is the caller address.
func (s *JWTService) IssueToken(subject domain.Address, label string, expiresIn time.Duration) (IssuedToken, error) {
	if subject.IsZero() {
		return IssuedToken{}, dErrors.New(dErrors.CodeInvalidInput, "token subject must be a non-zero address")
	}
	if expiresIn <= 0 {
		return IssuedToken{}, dErrors.New(dErrors.CodeInvalidInput, "token ttl must be positive")
	}

	now := s.now()
	jti := uuid.NewString()
	expiresAt := now.Add(expiresIn)
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Label: label,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.Hex(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        jti,
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return IssuedToken{}, dErrors.Wrap(err, dErrors.CodeInternal, "sign token")
	}
	return IssuedToken{
		Token:     signedToken,
		JTI:       jti,
		Subject:   subject,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
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
	return claims, nil
}

// MiddlewareValidator adapts JWTService to the auth middleware.
type MiddlewareValidator struct {
	service *JWTService
}

func NewMiddlewareValidator(service *JWTService) *MiddlewareValidator {
	return &MiddlewareValidator{service: service}
}

func (a *MiddlewareValidator) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{
		Subject: claims.Subject,
		JTI:     claims.ID,
	}, nil
}
