// Package jwt emite y valida los tokens de acceso de la API. Cada token
// queda acotado a una empresa y lleva el rol del usuario, de forma que el
// middleware resuelve el acceso sin consultar la base de datos.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken firma incorrecta, token expirado o claims malformados.
var ErrInvalidToken = errors.New("jwt: token inválido")

// Claims es el contenido del token de acceso. El sujeto estándar es el
// usuario; company_id y role acotan lo que ese token puede tocar.
type Claims struct {
	CompanyID string `json:"company_id"`
	Role      string `json:"role"` // admin | operator | auditor
	jwt.RegisteredClaims
}

// UserID devuelve el sujeto del token.
func (c *Claims) UserID() string { return c.Subject }

// Generate firma un token HS256 para el usuario, acotado a la empresa y el
// rol dados.
func Generate(secret, userID, companyID, role, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", errors.New("jwt: secret vacío")
	}
	now := time.Now()
	claims := Claims{
		CompanyID: companyID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma y expiración y devuelve los claims del token.
func Parse(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
