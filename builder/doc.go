// Package builder renders the literal SQL statements of entities.
//
// Values are inlined with StringValueForSQL; no placeholders are used and
// string literals are not escaped. Callers must not pass untrusted text.
package builder
