// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the blocking readiness wait used by the uipc event
// loop: a level-triggered interest set over raw descriptors (epoll on Linux).
package reactor
