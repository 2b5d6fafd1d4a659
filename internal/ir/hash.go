package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainPayload    = "adl/payload/v1"
	DomainConversion = "adl/conversion/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PayloadHash computes the content address of a payload tree.
// Two payloads hash equal exactly when their canonical JSON is equal.
func PayloadHash(payload IRObject) (string, error) {
	canonical, err := MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("PayloadHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPayload, canonical), nil
}

// ConversionID computes the content-addressed ID of one conversion run.
// The run ID keeps repeated conversions of the same input distinct.
func ConversionID(runID, api, version, typeName, direction, inputHash string) (string, error) {
	obj := IRObject{
		"run_id":     IRString(runID),
		"api":        IRString(api),
		"version":    IRString(version),
		"type":       IRString(typeName),
		"direction":  IRString(direction),
		"input_hash": IRString(inputHash),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ConversionID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainConversion, canonical), nil
}

// MustPayloadHash is like PayloadHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustPayloadHash(payload IRObject) string {
	h, err := PayloadHash(payload)
	if err != nil {
		panic(err)
	}
	return h
}
