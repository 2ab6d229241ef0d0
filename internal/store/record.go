package store

import (
	"fmt"

	"github.com/roach88/p4ir/internal/ir"
)

// Build is one recorded build of a program.
type Build struct {
	ID             string      `json:"id"`
	Seq            int64       `json:"seq"`
	Program        string      `json:"program"`
	Arch           string      `json:"arch"`
	Package        string      `json:"package"`
	Fingerprint    string      `json:"fingerprint"`
	CatalogueHash  string      `json:"catalogue_hash"`
	IRVersion      string      `json:"ir_version"`
	BuilderVersion string      `json:"builder_version"`
	DeclCount      int         `json:"decl_count"`
	Snapshot       string      `json:"snapshot"`
	Decls          []DeclEntry `json:"decls,omitempty"`
}

// DeclEntry is one line of a build's declaration catalogue.
type DeclEntry struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// NewBuild assembles the record of a successful build. decls is the full ordered
// declaration sequence the builder saw, prelude included. ID and Seq are
// assigned by RecordBuild.
func NewBuild(program, arch string, decls []ir.Declaration, pkg *ir.ResolvedPackage) (Build, error) {
	if pkg == nil {
		return Build{}, fmt.Errorf("new build: no resolved package")
	}
	snapshot, err := ir.MarshalCanonical(ir.Snapshot(pkg))
	if err != nil {
		return Build{}, fmt.Errorf("new build: snapshot: %w", err)
	}
	fp, err := ir.Fingerprint(pkg)
	if err != nil {
		return Build{}, fmt.Errorf("new build: %w", err)
	}
	cat, err := ir.CatalogueHash(decls)
	if err != nil {
		return Build{}, fmt.Errorf("new build: %w", err)
	}

	entries := make([]DeclEntry, len(decls))
	for i, d := range decls {
		entries[i] = DeclEntry{Name: d.Name, Kind: d.Kind.String()}
	}
	return Build{
		Program:        program,
		Arch:           arch,
		Package:        pkg.Package,
		Fingerprint:    fp,
		CatalogueHash:  cat,
		IRVersion:      ir.IRVersion,
		BuilderVersion: ir.BuilderVersion,
		DeclCount:      len(decls),
		Snapshot:       string(snapshot),
		Decls:          entries,
	}, nil
}
