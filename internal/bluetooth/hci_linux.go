// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

//go:build linux

package bluetooth

import (
	"context"
	"fmt"
	"time"

	"github.com/rigado/ble"
	"github.com/rigado/ble/linux/hci"
)

// disconnectWait bounds how long Close waits for the controller to confirm.
const disconnectWait = 2 * time.Second

func (a *HCIAdapter) open() (*hci.HCI, error) {
	opts := []ble.Option{ble.OptTransportHCISocket(a.DeviceID)}
	if a.ConnectTimeout > 0 {
		opts = append(opts, ble.OptDialerTimeout(a.ConnectTimeout))
	}

	h, err := hci.NewHCI(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create hci%d device: %w", a.DeviceID, err)
	}
	if err := h.Init(); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("failed to initialize hci%d (is the adapter up and are you allowed to use it?): %w", a.DeviceID, err)
	}
	return h, nil
}

// Discover scans without a filter until ctx is done and returns every
// advertiser seen, deduplicated by address.
func (a *HCIAdapter) Discover(ctx context.Context) ([]Device, error) {
	h, err := a.open()
	if err != nil {
		return nil, err
	}
	defer h.Close()

	c := newCollector()
	if err := h.SetAdvHandler(func(adv ble.Advertisement) {
		addr, err := adv.Addr()
		if err != nil || addr == nil {
			return
		}
		name, _ := adv.LocalName()
		c.add(name, addr.String())
	}); err != nil {
		return nil, fmt.Errorf("failed to set advertisement handler: %w", err)
	}

	if err := h.Scan(false); err != nil {
		return nil, fmt.Errorf("failed to start scanning on hci%d: %w", a.DeviceID, err)
	}

	<-ctx.Done()

	if err := h.StopScanning(); err != nil && a.Log != nil {
		a.Log.Warn("Failed to stop scanning", "device", a.DeviceID, "error", err)
	}
	return c.devices(), nil
}

// Connect dials the peripheral at address.
func (a *HCIAdapter) Connect(ctx context.Context, address string) (Link, error) {
	h, err := a.open()
	if err != nil {
		return nil, err
	}

	cln, err := h.Dial(ctx, ble.NewAddr(address))
	if err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}
	return &hciLink{address: address, hci: h, client: cln}, nil
}

type hciLink struct {
	address string
	hci     *hci.HCI
	client  ble.Client
}

func (l *hciLink) Address() string { return l.address }

func (l *hciLink) Close() error {
	err := l.client.CancelConnection()
	if err == nil {
		select {
		case <-l.client.Disconnected():
		case <-time.After(disconnectWait):
		}
	}
	if cerr := l.hci.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to disconnect %s: %w", l.address, err)
	}
	return nil
}
