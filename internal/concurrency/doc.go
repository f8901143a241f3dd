// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives for hioload-uipc. Queue carries lifecycle actions
// requested by caller goroutines to the single reactor goroutine that applies
// them.
package concurrency
