// Package builder turns an ordered sequence of top-level declarations into a
// checked, sealed program.
//
// Declarations are processed strictly in order. Each DeclareGlobal call fully
// resolves, binds and validates its declaration before appending it to the
// declaration table:
//
//   - type references are normalized (names of in-scope type parameters become
//     parameter references) and resolved against earlier declarations
//   - composites are checked for duplicate fields and self-containment
//   - parsers are checked as state machines and record their extractions
//   - controls and actions have every method call resolved to one overload,
//     with generic arguments bound and slices bounds-checked
//   - package instances are matched against their architecture roles
//
// The first error poisons the builder: every later call returns it, and no
// partial program is ever exposed. Program seals the table and returns the
// immutable result.
package builder
