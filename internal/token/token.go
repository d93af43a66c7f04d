// Package token mints short-lived LiveKit room access tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTTL = 2 * time.Hour

var ErrNotConfigured = errors.New("livekit credentials not configured")

// VideoGrant is the LiveKit room grant carried in the "video" claim.
type VideoGrant struct {
	Room           string `json:"room"`
	RoomJoin       bool   `json:"roomJoin"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

type Claims struct {
	jwt.RegisteredClaims
	Video VideoGrant `json:"video"`
}

// Service signs access tokens with the API secret. The clock is injected
// so expiry can be pinned in tests.
type Service struct {
	url       string
	apiKey    string
	apiSecret string
	ttl       time.Duration
	now       func() time.Time
}

func NewService(url, apiKey, apiSecret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		url:       url,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *Service) Configured() bool {
	return s.url != "" && s.apiKey != "" && s.apiSecret != ""
}

// URL returns the configured LiveKit endpoint verbatim.
func (s *Service) URL() string { return s.url }

// Mint issues an HS256 token granting identity join/publish/subscribe/
// publish-data rights in roomID, valid for the service TTL.
func (s *Service) Mint(roomID, identity string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.apiKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Video: VideoGrant{
			Room:           roomID,
			RoomJoin:       true,
			CanPublish:     true,
			CanSubscribe:   true,
			CanPublishData: true,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.apiSecret))
}
