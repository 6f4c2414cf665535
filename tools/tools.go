//go:build tools

// Package tools pins development tool dependencies so go.mod tracks their
// versions.
package tools

import (
	_ "github.com/air-verse/air"
	_ "github.com/swaggo/swag/cmd/swag"
)
