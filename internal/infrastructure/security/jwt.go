// Package security provides JWT, signing, and encryption utilities
package security

import (
	"errors"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenRole values carried in the "role" claim.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GenerateAdminToken creates a JWT for a tenant operator.
func GenerateAdminToken(organizationID, jwtSecret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"organizationId": organizationID,
		"role":           RoleAdmin,
		"iat":            time.Now().UTC().Unix(),
		"exp":            time.Now().UTC().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	result, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		log.Printf("ERROR: Failed to sign admin JWT: %v", err)
		return "", err
	}
	return result, nil
}

// GenerateCustomerToken creates a JWT tying a checkout session to a returning
// customer. The customer id travels encrypted so tokens leak no identity
// even when decoded offline.
func GenerateCustomerToken(organizationID, customerID, email, jwtSecret, aesKey string, ttl time.Duration) (string, error) {
	encryptedID, err := Encrypt(customerID, aesKey)
	if err != nil {
		log.Printf("ERROR: Failed to encrypt customer id in GenerateCustomerToken: %v", err)
		return "", err
	}

	claims := jwt.MapClaims{
		"organizationId": organizationID,
		"role":           RoleCustomer,
		"email":          email,
		"encryptedId":    encryptedID,
		"iat":            time.Now().UTC().Unix(),
		"exp":            time.Now().UTC().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	result, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		log.Printf("ERROR: Failed to sign customer JWT: %v", err)
		return "", err
	}
	return result, nil
}

// CustomerIDFromClaims decrypts the customer id out of a validated token.
func CustomerIDFromClaims(claims jwt.MapClaims, aesKey string) (string, error) {
	encrypted, ok := claims["encryptedId"].(string)
	if !ok || encrypted == "" {
		return "", errors.New("token carries no customer id")
	}
	return Decrypt(encrypted, aesKey)
}
