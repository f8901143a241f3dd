// File: api/channel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Channel identifiers, callback events and control requests shared by the
// uipc core and its consumers.

package api

import "fmt"

// ChannelID identifies one of the fixed byte-stream channels.
type ChannelID int

const (
	// ChannelAVCtrl carries audio control commands.
	ChannelAVCtrl ChannelID = iota
	// ChannelAVAudio carries the streamed audio data. It is serviced first
	// on every reactor pass.
	ChannelAVAudio

	// ChannelCount is the size of the channel table.
	ChannelCount
)

// ChannelAll addresses the whole subsystem. Closing it shuts uipc down.
const ChannelAll = ChannelCount

// PriorityChannel is serviced before any other channel within one wait cycle.
const PriorityChannel = ChannelAVAudio

// Valid reports whether id addresses a single channel of the table.
func (id ChannelID) Valid() bool {
	return id >= 0 && id < ChannelCount
}

func (id ChannelID) String() string {
	switch id {
	case ChannelAVCtrl:
		return "AV_CTRL"
	case ChannelAVAudio:
		return "AV_AUDIO"
	case ChannelAll:
		return "ALL"
	}
	return fmt.Sprintf("CHANNEL(%d)", int(id))
}

// Event is a notification delivered to a channel callback.
type Event int

const (
	EventOpen Event = iota
	EventClose
	// EventRxData and EventTxData are reserved; nothing emits them.
	EventRxData
	EventRxDataReady
	EventTxDataReady
)

var eventNames = map[Event]string{
	EventOpen:        "OPEN_EVT",
	EventClose:       "CLOSE_EVT",
	EventRxData:      "RX_DATA_EVT",
	EventRxDataReady: "RX_DATA_READY_EVT",
	EventTxDataReady: "TX_DATA_READY_EVT",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "UNKNOWN MSG ID"
}

// Callback receives channel notifications. It runs on the reactor goroutine
// and must not block. It may use the channel operations of the instance that
// invoked it, except Shutdown.
type Callback func(id ChannelID, ev Event)

// IoctlRequest selects a control operation.
type IoctlRequest int

const (
	// IoctlFlushReceive discards bytes buffered on the connected socket.
	IoctlFlushReceive IoctlRequest = iota + 1
	// IoctlRegisterCallback replaces the channel callback; param is a Callback.
	IoctlRegisterCallback
	// IoctlRemoveFromActiveSet stops reactor notifications for the connected
	// socket so the caller can read it directly.
	IoctlRemoveFromActiveSet
	// IoctlSetReadPollTimeout sets the per-read poll timeout; param is a
	// time.Duration or an integer number of milliseconds.
	IoctlSetReadPollTimeout
)

func (r IoctlRequest) String() string {
	switch r {
	case IoctlFlushReceive:
		return "REQ_RX_FLUSH"
	case IoctlRegisterCallback:
		return "REG_CBACK"
	case IoctlRemoveFromActiveSet:
		return "REG_REMOVE_ACTIVE_READSET"
	case IoctlSetReadPollTimeout:
		return "SET_READ_POLL_TMO"
	}
	return fmt.Sprintf("REQUEST(%d)", int(r))
}
