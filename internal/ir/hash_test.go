package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintIsStable(t *testing.T) {
	a := MustFingerprint(samplePackage())
	b := MustFingerprint(samplePackage())
	assert.Equal(t, a, b)
	assert.Len(t, a, 64, "hex-encoded SHA-256")
}

func TestFingerprintChangesWithContent(t *testing.T) {
	base := MustFingerprint(samplePackage())

	renamed := samplePackage()
	renamed.Name = "other"
	assert.NotEqual(t, base, MustFingerprint(renamed))

	wider := samplePackage()
	wider.Stages[0].Parser.States[0].Extractions[0].Width = 16
	assert.NotEqual(t, base, MustFingerprint(wider))

	calls := samplePackage()
	calls.Stages[1].Control.Calls = calls.Stages[1].Control.Calls[:1]
	assert.NotEqual(t, base, MustFingerprint(calls))
}

func TestFingerprintIgnoresCallSiteDetail(t *testing.T) {
	base := MustFingerprint(samplePackage())
	p := samplePackage()
	p.Stages[1].Control.Calls[0].Where = "apply[3]"
	p.Stages[1].Control.Calls[0].Overload = 2
	assert.Equal(t, base, MustFingerprint(p))
}

func TestDomainSeparation(t *testing.T) {
	data := []byte("same")
	assert.NotEqual(t, hashWithDomain(DomainPackage, data), hashWithDomain(DomainDecls, data))
}

func TestCatalogueHash(t *testing.T) {
	decls := []Declaration{NewHeader("H"), NewControl("c", nil, nil)}
	h1, err := CatalogueHash(decls)
	require.NoError(t, err)

	h2, err := CatalogueHash([]Declaration{decls[1], decls[0]})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2, "order matters")

	again, err := CatalogueHash(decls)
	require.NoError(t, err)
	assert.Equal(t, h1, again)
}
