package tron

import "github.com/btcsuite/btcd/btcutil/base58"

// mainnet address version byte
const addressPrefix = 0x41

// ValidAddress reports whether s is a well-formed base58check TRON address.
func ValidAddress(s string) bool {
	if len(s) != 34 {
		return false
	}
	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return false
	}
	return version == addressPrefix && len(payload) == 20
}
