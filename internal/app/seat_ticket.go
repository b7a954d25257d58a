package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/google/uuid"
)

// ErrInvalidTicket is returned for tickets that fail signature, expiry or match checks.
var ErrInvalidTicket = errors.New("invalid seat ticket")

// SeatTicket is the decoded content of a signed seat ticket.
type SeatTicket struct {
	UserID  string
	MatchID string
	Seat    int
	Expires time.Time
}

// TicketService signs and verifies seat tickets. A ticket lets a player who dropped out of
// a running deal reclaim their seat.
type TicketService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTicketService(secret, issuer string, ttl time.Duration) *TicketService {
	return &TicketService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Issue signs a ticket binding userID to seat in matchID.
func (s *TicketService) Issue(userID, matchID string, seat int) (string, error) {
	if s == nil {
		return "", fmt.Errorf("ticket service is nil")
	}
	if userID == "" || matchID == "" {
		return "", fmt.Errorf("user and match are required")
	}
	if len(s.secret) == 0 || s.issuer == "" {
		return "", fmt.Errorf("ticket config is incomplete")
	}
	if seat < 0 || seat >= SeatsPerTable {
		return "", fmt.Errorf("%w: %d", ErrUnknownSeat, seat)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  s.issuer,
		"sub":  userID,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
		"jti":  uuid.NewString(),
		"mid":  matchID,
		"seat": seat,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks a ticket and that it was issued for matchID.
func (s *TicketService) Verify(tokenString, matchID string) (SeatTicket, error) {
	if s == nil || len(s.secret) == 0 {
		return SeatTicket{}, fmt.Errorf("%w: ticket service not configured", ErrInvalidTicket)
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return SeatTicket{}, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return SeatTicket{}, ErrInvalidTicket
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return SeatTicket{}, fmt.Errorf("%w: wrong issuer", ErrInvalidTicket)
	}

	ticket := SeatTicket{}
	ticket.UserID, _ = claims["sub"].(string)
	ticket.MatchID, _ = claims["mid"].(string)
	if ticket.UserID == "" || ticket.MatchID != matchID {
		return SeatTicket{}, fmt.Errorf("%w: not issued for this match", ErrInvalidTicket)
	}
	seat, ok := claims["seat"].(float64)
	if !ok || seat < 0 || int(seat) >= SeatsPerTable {
		return SeatTicket{}, fmt.Errorf("%w: bad seat", ErrInvalidTicket)
	}
	ticket.Seat = int(seat)
	if exp, ok := claims["exp"].(float64); ok {
		ticket.Expires = time.Unix(int64(exp), 0)
	}
	return ticket, nil
}
