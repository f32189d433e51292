package hub

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/errs"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestVerifier(t *testing.T) {
	v := NewVerifier(testSecret)

	t.Run("valid token", func(t *testing.T) {
		token := signToken(t, testSecret, &Claims{
			UserID: "U1", Role: domain.RoleClient, Tier: domain.TierGold, LoyaltyEnrolled: true,
		})
		claims, err := v.Verify(token)
		if err != nil {
			t.Fatalf("verify failed: %v", err)
		}
		if claims.UserID != "U1" || claims.Role != domain.RoleClient || claims.Tier != domain.TierGold {
			t.Errorf("claims mismatch: %+v", claims)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "other-secret", &Claims{UserID: "U1", Role: domain.RoleClient})
		if _, err := v.Verify(token); !errs.IsKind(err, errs.KindUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("missing uid", func(t *testing.T) {
		token := signToken(t, testSecret, &Claims{Role: domain.RoleClient})
		if _, err := v.Verify(token); !errs.IsKind(err, errs.KindUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := v.Verify("not-a-token"); !errs.IsKind(err, errs.KindUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})
}

func TestCanJoin(t *testing.T) {
	admin := &Claims{UserID: "A1", Role: domain.RoleAdmin}
	receptionist := &Claims{UserID: "S1", Role: domain.RoleReceptionist, HotelID: "H1"}
	client := &Claims{UserID: "C1", Role: domain.RoleClient, Tier: domain.TierSilver}
	goldClient := &Claims{UserID: "C2", Role: domain.RoleClient, Tier: domain.TierGold, LoyaltyEnrolled: true}
	platinumClient := &Claims{UserID: "C3", Role: domain.RoleClient, Tier: domain.TierPlatinum, LoyaltyEnrolled: true}

	cases := []struct {
		name   string
		claims *Claims
		room   string
		want   bool
	}{
		{"admin joins yield-admin", admin, "yield-admin", true},
		{"client denied yield-admin", client, "yield-admin", false},
		{"receptionist denied loyalty-admin", receptionist, "loyalty-admin", false},
		{"receptionist joins own pricing room", receptionist, "pricing:H1", true},
		{"receptionist denied foreign pricing room", receptionist, "pricing:H2", false},
		{"client joins pricing room", client, "pricing:H1", true},
		{"silver denied chain loyalty", client, "chain-loyalty:summer", false},
		{"gold joins chain loyalty", goldClient, "chain-loyalty:summer", true},
		{"gold denied cross hotel", goldClient, "cross-hotel:eu", false},
		{"platinum joins cross hotel", platinumClient, "cross-hotel:eu", true},
		{"own user room", client, "user:C1", true},
		{"foreign user room denied", client, "user:C2", false},
		{"admin joins any user room", admin, "user:C1", true},
		{"public hotel room", client, "hotel:H1", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := canJoin(tc.claims, tc.room); got != tc.want {
				t.Errorf("got %t, want %t", got, tc.want)
			}
		})
	}
}

func TestAutoJoinRooms(t *testing.T) {
	t.Run("admin", func(t *testing.T) {
		rooms := autoJoinRooms(&Claims{UserID: "A1", Role: domain.RoleAdmin})
		want := []string{"admin", "yield-admin", "revenue-monitoring", "loyalty-admin", "loyalty-dashboard"}
		if len(rooms) != len(want) {
			t.Fatalf("got %v", rooms)
		}
		for i, room := range want {
			if rooms[i] != room {
				t.Errorf("room %d: got %s, want %s", i, rooms[i], room)
			}
		}
	})

	t.Run("receptionist", func(t *testing.T) {
		rooms := autoJoinRooms(&Claims{UserID: "S1", Role: domain.RoleReceptionist, HotelID: "H1"})
		want := []string{"hotel:H1", "pricing:H1", "loyalty-hotel:H1"}
		if len(rooms) != len(want) {
			t.Fatalf("got %v", rooms)
		}
	})

	t.Run("enrolled gold client", func(t *testing.T) {
		rooms := autoJoinRooms(&Claims{
			UserID: "C1", Role: domain.RoleClient, Tier: domain.TierGold, LoyaltyEnrolled: true,
		})
		joined := make(map[string]bool, len(rooms))
		for _, room := range rooms {
			joined[room] = true
		}
		for _, room := range []string{
			"clients", "user:C1", "loyalty-members", "loyalty-tier:GOLD",
			"tier-benefits:BRONZE", "tier-benefits:SILVER", "tier-benefits:GOLD",
		} {
			if !joined[room] {
				t.Errorf("missing %s in %v", room, rooms)
			}
		}
		if joined["tier-benefits:PLATINUM"] {
			t.Error("gold client must not enter platinum benefits")
		}
	})
}

func TestRoomKind(t *testing.T) {
	cases := map[string]string{
		"yield-admin": "admin",
		"pricing:H1":  "pricing",
		"user:U1":     "user",
		"clients":     "static",
	}
	for room, want := range cases {
		if got := roomKind(room); got != want {
			t.Errorf("%s: got %s, want %s", room, got, want)
		}
	}
}
