// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

//go:build !linux

package bluetooth

import "context"

// Discover is unavailable without an HCI socket.
func (a *HCIAdapter) Discover(ctx context.Context) ([]Device, error) {
	return nil, ErrUnsupported
}

// Connect is unavailable without an HCI socket.
func (a *HCIAdapter) Connect(ctx context.Context, address string) (Link, error) {
	return nil, ErrUnsupported
}
