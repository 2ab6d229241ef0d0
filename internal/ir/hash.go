package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainPackage = "p4ir/package/v1"
	DomainDecls   = "p4ir/decls/v1"
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

// Fingerprint computes the content-addressed identity of a resolved package.
// Equal packages (same stages, roles, states and call targets) have equal fingerprints
// across builds and processes.
func Fingerprint(p *ResolvedPackage) (string, error) {
	canonical, err := MarshalCanonical(Snapshot(p))
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPackage, canonical), nil
}

// CatalogueHash identifies an ordered declaration catalogue by names and kinds.
func CatalogueHash(decls []Declaration) (string, error) {
	entries := make([]any, len(decls))
	for i, d := range decls {
		entries[i] = map[string]any{"name": d.Name, "kind": d.Kind.String()}
	}
	canonical, err := MarshalCanonical(entries)
	if err != nil {
		return "", fmt.Errorf("CatalogueHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDecls, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(p *ResolvedPackage) string {
	fp, err := Fingerprint(p)
	if err != nil {
		panic(err)
	}
	return fp
}
