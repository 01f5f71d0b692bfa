// Package schema compiles collection models written in CUE and answers the
// attribute-type questions the view cache asks.
//
// A model lists collections and their attributes under a top-level
// "collections" struct:
//
//	collections: users: {
//		name:    string
//		age:     int
//		tags:    [...string]
//		address: {city: string}
//	}
//
// CUE kinds map to attribute kinds: string, int, bool, list → set,
// struct → record. Floats are forbidden, matching the ir package.
package schema
