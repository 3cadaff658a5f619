// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package bluetooth implements the BLE scan and connect flows on top of narrow
// collaborator interfaces, plus an HCI-socket implementation of those
// collaborators for Linux.
package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"device-manager/internal/ui"
)

// ErrUnsupported is returned by the HCI adapter on platforms without an HCI socket.
var ErrUnsupported = errors.New("BLE radio access is only supported on Linux")

// Device is one advertiser seen during a scan.
type Device struct {
	Name    string // empty when the device did not advertise a local name
	Address string
}

// DisplayName returns the name to show for the device.
func (d Device) DisplayName() string {
	if d.Name == "" {
		return "Unknown"
	}
	return d.Name
}

// Scanner discovers nearby devices until ctx is done.
type Scanner interface {
	Discover(ctx context.Context) ([]Device, error)
}

// Link is an open connection to a device.
type Link interface {
	Address() string
	Close() error
}

// Connector opens connections to devices by address.
type Connector interface {
	Connect(ctx context.Context, address string) (Link, error)
}

// Indicator shows progress while a scan is running. *spinner.Spinner fits.
type Indicator interface {
	Start()
	Stop()
}

// Flow runs the user-facing BLE operations and renders their results.
type Flow struct {
	Scanner   Scanner
	Connector Connector
	Out       io.Writer
	Log       *slog.Logger
	Indicator Indicator

	// ScanTimeout bounds Discover; zero leaves it to the caller's context.
	ScanTimeout time.Duration
	// Hold is how long Connect keeps the link open.
	Hold time.Duration
}

func (f *Flow) log() *slog.Logger {
	if f.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return f.Log
}

// Scan discovers devices and prints a 1-indexed list of them. A scanner
// failure is printed and returned; the result is never retried.
func (f *Flow) Scan(ctx context.Context) ([]Device, error) {
	log := f.log()
	log.Info("Scanning for BLE devices... (Ctrl+C to stop)", "timeout", f.ScanTimeout)

	if f.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.ScanTimeout)
		defer cancel()
	}

	if f.Indicator != nil {
		f.Indicator.Start()
	}
	devices, err := f.Scanner.Discover(ctx)
	if f.Indicator != nil {
		f.Indicator.Stop()
	}

	if err != nil {
		log.Error("BLE scan failed", "error", err)
		ui.ErrorColor.Fprintf(f.Out, "BLE scan failed: %v\n", err)
		return nil, fmt.Errorf("ble scan: %w", err)
	}

	if len(devices) == 0 {
		log.Info("No devices found.")
		fmt.Fprintln(f.Out, "No devices found.")
		return []Device{}, nil
	}

	fmt.Fprintln(f.Out, "\nFound Devices:")
	for i, d := range devices {
		fmt.Fprintf(f.Out, "[%d] %s | Address: %s\n", i+1, d.DisplayName(), d.Address)
	}
	return devices, nil
}

// Connect opens a link to address, holds it for f.Hold (or until ctx is
// done) and closes it. Failures are logged and reported as false.
func (f *Flow) Connect(ctx context.Context, address string) bool {
	log := f.log()
	address = strings.TrimSpace(address)
	if address == "" {
		log.Error("Failed to connect: no device address given")
		return false
	}

	link, err := f.Connector.Connect(ctx, address)
	if err != nil {
		log.Error(fmt.Sprintf("Failed to connect to %s: %v", address, err))
		return false
	}
	log.Info(fmt.Sprintf("Connected to %s", address))

	if f.Hold > 0 {
		timer := time.NewTimer(f.Hold)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	if err := link.Close(); err != nil {
		log.Error(fmt.Sprintf("Failed to connect to %s: %v", address, err))
		return false
	}
	log.Info(fmt.Sprintf("Disconnected from %s", address))
	return true
}
