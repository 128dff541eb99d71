//go:build tools

// Package chat_relay pins the code generators used by go:generate (mockgen)
// so go.mod and go.sum track them.
package chat_relay

import (
	_ "go.uber.org/mock/mockgen"
)
