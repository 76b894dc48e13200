// Package model defines the declarative form schema shared by every other
// package: fields with a closed set of input types, per-field validation rules
// expressed as tagged constraints, and the records a schema describes.
//
// A Schema is built once (usually at init time through MustSchema or the
// loaders in pkg/schema) and is immutable afterwards. Constraints are data, not
// code paths: the validation engine walks them in the canonical order given by
// RuleKind (pattern, minLength, maxLength, min, max, custom) regardless of the
// order they were declared in. LayoutHint is an opaque renderer directive the
// core never interprets.
package model
