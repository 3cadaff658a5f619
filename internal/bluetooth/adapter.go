// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package bluetooth

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// HCIAdapter talks to the local controller through an HCI socket. Every
// operation opens the device fresh and closes it before returning, so no
// radio state survives between menu selections.
type HCIAdapter struct {
	// DeviceID is the HCI index (0 for hci0).
	DeviceID int
	// ConnectTimeout bounds dialing a peripheral.
	ConnectTimeout time.Duration
	Log            *slog.Logger
}

// collector deduplicates advertisements by address in first-seen order.
type collector struct {
	mu    sync.Mutex
	index map[string]int
	list  []Device
}

func newCollector() *collector {
	return &collector{index: make(map[string]int)}
}

func (c *collector) add(name, address string) {
	address = strings.ToUpper(strings.TrimSpace(address))
	if address == "" {
		return
	}
	name = strings.TrimSpace(name)

	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.index[address]; ok {
		// Names often arrive later in a scan response.
		if c.list[i].Name == "" && name != "" {
			c.list[i].Name = name
		}
		return
	}
	c.index[address] = len(c.list)
	c.list = append(c.list, Device{Name: name, Address: address})
}

func (c *collector) devices() []Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Device, len(c.list))
	copy(out, c.list)
	return out
}
