// Package api holds the contracts shared between the uipc core, its
// collaborators and its consumers: channel identifiers, callback events,
// control requests and error values.
package api
