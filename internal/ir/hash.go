package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainPackage = "spaghetti/package/v1"
	DomainTrace   = "spaghetti/trace/v1"
)

// TypeHash is the stable 64-bit hash of an element type name.
// The registry is keyed by it and elements compare types with it.
func TypeHash(typeName string) uint64 {
	return xxhash.Sum64String(typeName)
}

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PackageID computes the content-addressed ID of a package document.
// Equal documents always produce equal IDs.
func PackageID(doc PackageDoc) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("PackageID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPackage, canonical), nil
}

// TraceHash summarizes a sample sequence. Two runs with the same trace
// hash produced identical samples in identical order.
func TraceHash(samples []Sample) (string, error) {
	if samples == nil {
		samples = []Sample{}
	}
	canonical, err := MarshalCanonical(samples)
	if err != nil {
		return "", fmt.Errorf("TraceHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}

// MustPackageID is like PackageID but panics on error.
// Use only in tests or when the document is known to be valid.
func MustPackageID(doc PackageDoc) string {
	id, err := PackageID(doc)
	if err != nil {
		panic(err)
	}
	return id
}
