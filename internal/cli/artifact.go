package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/p4ir/internal/ir"
	"github.com/roach88/p4ir/internal/store"
)

// Artifact is the binary form of a resolved package handed to an evaluator.
// Package holds the canonical JSON snapshot the fingerprint was computed over.
type Artifact struct {
	IRVersion      string `msgpack:"ir_version"`
	BuilderVersion string `msgpack:"builder_version"`
	Program        string `msgpack:"program"`
	Arch           string `msgpack:"arch"`
	Fingerprint    string `msgpack:"fingerprint"`
	CatalogueHash  string `msgpack:"catalogue_hash"`
	Package        []byte `msgpack:"package"`
}

// NewArtifact captures a build record as an artifact.
func NewArtifact(b store.Build) Artifact {
	return Artifact{
		IRVersion:      b.IRVersion,
		BuilderVersion: b.BuilderVersion,
		Program:        b.Program,
		Arch:           b.Arch,
		Fingerprint:    b.Fingerprint,
		CatalogueHash:  b.CatalogueHash,
		Package:        []byte(b.Snapshot),
	}
}

// WriteArtifact encodes a to path, replacing any existing file atomically.
func WriteArtifact(path string, a Artifact) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".p4ir-*.mp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := msgpack.NewEncoder(f).Encode(&a); err != nil {
		f.Close()
		return fmt.Errorf("encoding artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadArtifact decodes an artifact and rejects ones written for another IR version.
func ReadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var a Artifact
	if err := msgpack.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding artifact %s: %w", path, err)
	}
	if a.IRVersion != ir.IRVersion {
		return nil, fmt.Errorf("artifact %s has IR version %q, want %q", path, a.IRVersion, ir.IRVersion)
	}
	return &a, nil
}
