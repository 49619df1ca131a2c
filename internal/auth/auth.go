package auth

import (
	"errors"
	"time"
)

const (
	DefaultTTL       = 24 * 7 * time.Hour
	sessionKeyPrefix = "devpy-service-session||"
	tokensSetKey     = "devpy-service-sessions"
)

var (
	ErrWrongUsername = errors.New("wrong username")
	ErrWrongPassword = errors.New("wrong password")
)

// Admin is the single operator account of the service. There are no
// per-user accounts, just one admin role gating the write surface.
type Admin struct {
	Username     string
	PasswordHash string
}

type Credentials struct {
	Username string
	Password string
}
