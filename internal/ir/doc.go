// Package ir provides the foundational value and record types for viewcache.
//
// This package contains type definitions and their encodings only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - numbers are int64 (IRInt)
//   - IRValue is a sealed union; use a type switch, never reflection
//   - Compare defines the single total order used for sorting views and
//     for binary search over them
//   - Content-addressed identity uses RFC 8785 canonical JSON + SHA-256 with
//     domain separation (see hash.go)
package ir
