// Package chain derives the decorative on-chain identifiers shown next to
// tickets and profiles. Nothing here talks to a blockchain: values are
// deterministic blake3 digests that only need to look like token ids and
// wallet addresses.
package chain

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

const (
	tokenDomain  = "blocktix token v1"
	walletDomain = "blocktix wallet v1"
)

// TokenID returns the mock NFT identifier for a ticket.
func TokenID(ticketID uuid.UUID) string {
	h := blake3.NewDeriveKey(tokenDomain)
	h.Write(ticketID[:])
	return "0x" + hex.EncodeToString(h.Sum(nil)[:32])
}

// WalletAddress returns the mock wallet address for a user: 20 bytes,
// hex encoded with a 0x prefix.
func WalletAddress(userID uuid.UUID) string {
	h := blake3.NewDeriveKey(walletDomain)
	h.Write(userID[:])
	return "0x" + hex.EncodeToString(h.Sum(nil)[:20])
}

// LooksLikeAddress reports whether s has the shape of a wallet address.
func LooksLikeAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}
