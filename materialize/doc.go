// Package materialize builds entities from result rows.
//
// A Materializer never issues queries. Reference columns become stub
// entities holding only their id; list relations stay empty until the
// repository populates them.
package materialize
