package utils

import "github.com/google/uuid"

// roomNamespace scopes the name-based UUIDs of direct and vault rooms
var roomNamespace = uuid.MustParse("6f1c2d9e-4b7a-5e3f-9a8d-2c1b0e7f6a53")

// DirectRoomID returns the id of the 1:1 room between a and b. The result
// does not depend on argument order.
func DirectRoomID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return uuid.NewSHA1(roomNamespace, []byte("direct:"+a+":"+b)).String()
}

// VaultRoomID returns the id of userID's private notes room
func VaultRoomID(userID string) string {
	return uuid.NewSHA1(roomNamespace, []byte("vault:"+userID)).String()
}
