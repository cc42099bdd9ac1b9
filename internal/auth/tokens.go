package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType — значение claim token_type.
type TokenType string

const (
	// TokenAccess — access token (Authorization: Bearer).
	TokenAccess TokenType = "access"
	// TokenRefresh — refresh token (HTTP-only cookie).
	TokenRefresh TokenType = "refresh"
)

// ErrTokenInvalid — подпись, срок действия или тип токена не прошли проверку.
var ErrTokenInvalid = errors.New("токен недействителен или просрочен")

// Claims — claims выпускаемых JWT.
// jti, iat, exp — в RegisteredClaims.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	UserID    int64     `json:"user_id"`
}

// Pair — выпущенная пара токенов.
type Pair struct {
	// Access — подписанный access token
	Access string
	// Refresh — подписанный refresh token
	Refresh string
	// RefreshJTI — jti refresh token (для outstanding_token)
	RefreshJTI string
	// IssuedAt — время выпуска пары
	IssuedAt time.Time
	// RefreshExpiresAt — срок действия refresh token
	RefreshExpiresAt time.Time
}

// TokenManager подписывает JWT (HS256) и проверяет их через JWK set.
type TokenManager struct {
	secret     []byte
	kid        string
	accessTTL  time.Duration
	refreshTTL time.Duration
	keyfunc    keyfunc.Keyfunc
	now        func() time.Time
}

// NewTokenManager создаёт менеджер токенов.
// Симметричный ключ регистрируется в in-memory JWK set под kid,
// вычисленным из ключа, проверка подписи идёт через keyfunc.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("пустой ключ подписи")
	}

	sum := sha256.Sum256([]byte(secret))
	kid := hex.EncodeToString(sum[:8])

	jwk, err := jwkset.NewJWKFromKey([]byte(secret), jwkset.JWKOptions{
		Marshal: jwkset.JWKMarshalOptions{Private: true},
		Metadata: jwkset.JWKMetadataOptions{
			ALG: jwkset.AlgHS256,
			KID: kid,
			USE: jwkset.UseSig,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWK: %w", err)
	}

	storage := jwkset.NewMemoryStorage()
	if err := storage.KeyWrite(context.Background(), jwk); err != nil {
		return nil, fmt.Errorf("запись JWK: %w", err)
	}

	kf, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return &TokenManager{
		secret:     []byte(secret),
		kid:        kid,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		keyfunc:    kf,
		now:        time.Now,
	}, nil
}

// RefreshTTL возвращает время жизни refresh token (Max-Age cookie).
func (m *TokenManager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// IssuePair выпускает access и refresh token для пользователя.
func (m *TokenManager) IssuePair(userID int64) (*Pair, error) {
	now := m.now().Truncate(time.Second)

	access, _, err := m.sign(userID, TokenAccess, now, now.Add(m.accessTTL))
	if err != nil {
		return nil, err
	}
	refreshExp := now.Add(m.refreshTTL)
	refresh, jti, err := m.sign(userID, TokenRefresh, now, refreshExp)
	if err != nil {
		return nil, err
	}

	return &Pair{
		Access:           access,
		Refresh:          refresh,
		RefreshJTI:       jti,
		IssuedAt:         now,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (m *TokenManager) sign(userID int64, typ TokenType, iat, exp time.Time) (signed, jti string, err error) {
	jti = uuid.NewString()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		TokenType: typ,
		UserID:    userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = m.kid

	signed, err = token.SignedString(m.secret)
	if err != nil {
		return "", "", fmt.Errorf("подпись %s token: %w", typ, err)
	}
	return signed, jti, nil
}

// Parse проверяет подпись, срок действия и тип токена.
// Любая ошибка проверки оборачивает ErrTokenInvalid.
func (m *TokenManager) Parse(ctx context.Context, tokenString string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, m.keyfunc.KeyfuncCtx(ctx),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.TokenType != want {
		return nil, fmt.Errorf("%w: ожидался %s token, получен %q", ErrTokenInvalid, want, claims.TokenType)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: отсутствует jti", ErrTokenInvalid)
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		return nil, fmt.Errorf("%w: jti не UUID", ErrTokenInvalid)
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: отсутствует user_id", ErrTokenInvalid)
	}

	return claims, nil
}
