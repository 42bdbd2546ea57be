package storage

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Key schema:
//
//	ord:<token>:<b|s>:<orderID> → Order (JSON)
//	tok:<token>                 → token marker, for Tokens()
//
// Token addresses are lower-case hex so keys sort independently of checksum case.

const (
	prefixOrder = "ord:"
	prefixToken = "tok:"
)

func sideTag(isSell bool) string {
	if isSell {
		return "s"
	}
	return "b"
}

func tokenHex(token common.Address) string {
	return strings.ToLower(token.Hex())
}

// orderKey returns the key for an order
// Format: "ord:{token}:{b|s}:{orderID}"
func orderKey(token common.Address, isSell bool, orderID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s", prefixOrder, tokenHex(token), sideTag(isSell), orderID))
}

// bookPrefix covers both sides of a token's book
func bookPrefix(token common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixOrder, tokenHex(token)))
}

func tokenKey(token common.Address) []byte {
	return []byte(prefixToken + tokenHex(token))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
