// utils/wallet.go
package utils

import (
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ErrInvalidWallet is returned for anything that is not a 20-byte 0x-hex address, or a mixed-case
// address whose EIP-55 checksum does not match.
var ErrInvalidWallet = errors.New("invalid wallet address")

const walletHexLen = 40

// NormalizeWallet validates addr and returns its lowercase form, which is the storage key.
func NormalizeWallet(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if len(addr) != walletHexLen+2 || (addr[:2] != "0x" && addr[:2] != "0X") {
		return "", ErrInvalidWallet
	}
	body := addr[2:]

	var hasUpper, hasLower bool
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
			hasLower = true
		case c >= 'A' && c <= 'F':
			hasUpper = true
		default:
			return "", ErrInvalidWallet
		}
	}

	lower := "0x" + strings.ToLower(body)
	if hasUpper && hasLower && checksum(lower[2:]) != body {
		return "", ErrInvalidWallet
	}
	return lower, nil
}

// ChecksumWallet returns the EIP-55 mixed-case rendering of addr.
func ChecksumWallet(addr string) (string, error) {
	lower, err := NormalizeWallet(addr)
	if err != nil {
		return "", err
	}
	return "0x" + checksum(lower[2:]), nil
}

// ShortWallet renders 0x1234…abcd for logs and display names.
func ShortWallet(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// checksum applies EIP-55 casing to a lowercase 40-char hex string.
func checksum(lowerHex string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lowerHex))
	sum := h.Sum(nil)

	out := []byte(lowerHex)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = c - ('a' - 'A')
		}
	}
	return string(out)
}
