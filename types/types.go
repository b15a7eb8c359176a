// Package types contains the shared scalar types used across the engine:
// identifiers for requests, batches and asset pairs, plus the hex-encoded
// byte slice used on the API surface.
package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// RequestID identifies a swap request. IDs are assigned monotonically by the
// engine and are never reused.
type RequestID uint64

// BatchID identifies a swap batch. IDs are assigned monotonically by the
// engine and are never reused.
type BatchID uint64

// HexBytes is a []byte which encodes as hexadecimal in JSON.
type HexBytes []byte

// String returns the hex string representation of the bytes.
func (b HexBytes) String() string {
	return hex.EncodeToString(b)
}

// MarshalJSON encodes the bytes as a 0x-prefixed hex JSON string.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	enc := make([]byte, hex.EncodedLen(len(b))+4)
	enc[0] = '"'
	enc[1] = '0'
	enc[2] = 'x'
	hex.Encode(enc[3:], b)
	enc[len(enc)-1] = '"'
	return enc, nil
}

// UnmarshalJSON decodes a hex JSON string, with or without 0x prefix.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid JSON string: %q", data)
	}
	s := strings.TrimPrefix(string(data[1:len(data)-1]), "0x")
	dec, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*b = dec
	return nil
}
