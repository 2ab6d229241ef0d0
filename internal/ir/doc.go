// Package ir provides the declarative intermediate representation of a P4-like
// packet-processing program.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. The model is built once by the
// builder and is immutable afterwards:
//   - Declarations are tagged variants (DeclKind) with one payload pointer set
//   - TypeRef is BitVector(width), Bool, Named(name<args>) or TypeParam(name)
//   - ResolvedPackage is the single root handed to the evaluator
//   - All JSON tags use snake_case; canonical JSON is used for fingerprints
package ir
