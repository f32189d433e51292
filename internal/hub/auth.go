package hub

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/errs"
)

// Claims is the bearer credential presented on connect.
type Claims struct {
	UserID          domain.UserID  `json:"uid"`
	Role            domain.Role    `json:"role"`
	HotelID         domain.HotelID `json:"hotelId,omitempty"`
	Tier            domain.Tier    `json:"tier,omitempty"`
	LoyaltyEnrolled bool           `json:"loyaltyEnrolled,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens with an HMAC secret.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a token verifier.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a bearer token.
func (v *Verifier) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, errs.E(errs.KindUnauthorized, "invalid credential", err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, errs.E(errs.KindUnauthorized, "invalid credential",
			fmt.Errorf("token valid=%t uid=%q", parsed.Valid, claims.UserID))
	}
	return claims, nil
}

// adminRooms require the ADMIN role to join.
var adminRooms = map[string]bool{
	"admin":              true,
	"yield-admin":        true,
	"revenue-monitoring": true,
	"loyalty-admin":      true,
	"loyalty-dashboard":  true,
}

// canJoin applies the room authorization matrix. Denied joins must not
// mutate membership.
func canJoin(c *Claims, room string) bool {
	if adminRooms[room] {
		return c.Role == domain.RoleAdmin
	}
	kind, arg := splitRoom(room)
	switch kind {
	case "pricing":
		return c.Role == domain.RoleAdmin ||
			(c.Role == domain.RoleReceptionist && c.HotelID == domain.HotelID(arg)) ||
			c.Role == domain.RoleClient
	case "chain-loyalty":
		return c.Tier.AtLeast(domain.TierGold)
	case "cross-hotel":
		return c.Tier.AtLeast(domain.TierPlatinum)
	case "user":
		return domain.UserID(arg) == c.UserID || c.Role == domain.RoleAdmin
	default:
		return true
	}
}

// roomKind names the room family for the denied-join metric.
func roomKind(room string) string {
	if adminRooms[room] {
		return "admin"
	}
	kind, arg := splitRoom(room)
	if arg == "" {
		return "static"
	}
	return kind
}

func splitRoom(room string) (kind, arg string) {
	if i := strings.IndexByte(room, ':'); i >= 0 {
		return room[:i], room[i+1:]
	}
	return room, ""
}

// autoJoinRooms lists the rooms a subscriber enters on connect, derived from
// role and loyalty context.
func autoJoinRooms(c *Claims) []string {
	var rooms []string
	switch c.Role {
	case domain.RoleAdmin:
		rooms = append(rooms, "admin", "yield-admin", "revenue-monitoring", "loyalty-admin", "loyalty-dashboard")
	case domain.RoleReceptionist:
		if c.HotelID != "" {
			rooms = append(rooms,
				fmt.Sprintf("hotel:%s", c.HotelID),
				fmt.Sprintf("pricing:%s", c.HotelID),
				fmt.Sprintf("loyalty-hotel:%s", c.HotelID))
		}
	case domain.RoleClient:
		rooms = append(rooms, "clients", fmt.Sprintf("user:%s", c.UserID))
	}
	if c.LoyaltyEnrolled {
		rooms = append(rooms, "loyalty-members")
		if c.Tier != "" {
			rooms = append(rooms, fmt.Sprintf("loyalty-tier:%s", c.Tier))
			for _, tier := range domain.TierOrder {
				rooms = append(rooms, fmt.Sprintf("tier-benefits:%s", tier))
				if tier == c.Tier {
					break
				}
			}
		}
	}
	return rooms
}
