// Package fake
// Author: momentics <momentics@gmail.com>
//
// Test doubles for hioload-uipc: a channel peer that connects the way the
// media producer does, and a callback recorder with wait helpers.
package fake
