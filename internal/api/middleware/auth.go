package middleware

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/venuelens/social-indexer/internal/config"
	"github.com/venuelens/social-indexer/internal/logger"
)

const (
	// AuthTypeKey is the gin context key holding how the caller authenticated
	AuthTypeKey = "auth_type"
	// AuthSubjectKey is the gin context key holding the JWT subject
	AuthSubjectKey = "auth_subject"
)

// Auth returns a gin middleware that accepts either a Bearer JWT signed
// with the configured RSA key, or a static API key via "Authorization:
// ApiKey <key>".
func Auth(cfg config.AuthConfig) gin.HandlerFunc {
	apiKeys := make(map[string]bool, len(cfg.APIKeys))
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeys[key] = true
		}
	}

	return func(c *gin.Context) {
		authType, subject, err := authenticate(c.GetHeader("Authorization"), cfg.JWTPublicKey, apiKeys)
		if err != nil {
			logger.Warn("authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication failed",
			})
			return
		}

		c.Set(AuthTypeKey, authType)
		if subject != "" {
			c.Set(AuthSubjectKey, subject)
		}
		c.Next()
	}
}

// authenticate validates the Authorization header, returning the mechanism
// used and the JWT subject when present
func authenticate(header string, jwtPublicKey string, apiKeys map[string]bool) (string, string, error) {
	if header == "" {
		return "", "", errors.New("missing Authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", "", errors.New("invalid Authorization header format")
	}

	credentials := parts[1]
	switch strings.ToLower(parts[0]) {
	case "bearer":
		claims, err := validateJWT(credentials, jwtPublicKey)
		if err != nil {
			return "", "", err
		}
		return "jwt", claims.Subject, nil

	case "apikey":
		if len(apiKeys) == 0 {
			return "", "", errors.New("no API keys configured")
		}
		if !apiKeys[credentials] {
			return "", "", errors.New("invalid API key")
		}
		return "apikey", "", nil

	default:
		return "", "", fmt.Errorf("unsupported authorization type: %s", parts[0])
	}
}

// validateJWT validates a JWT with an RSA signature and returns its claims
func validateJWT(tokenString string, publicKeyPEM string) (*jwt.RegisteredClaims, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("JWT public key not configured")
	}

	publicKey, err := parseRSAPublicKey(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	now := time.Now()
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(now) {
		return nil, errors.New("token has expired")
	}
	if claims.NotBefore != nil && claims.NotBefore.After(now) {
		return nil, errors.New("token not yet valid")
	}

	return claims, nil
}

// parseRSAPublicKey parses an RSA public key from PEM format
func parseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		// Older tooling emits PKCS1
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an RSA key")
	}

	return rsaKey, nil
}
