package bluetooth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

type fakeScanner struct {
	devices  []Device
	err      error
	calls    int
	deadline bool
}

func (s *fakeScanner) Discover(ctx context.Context) ([]Device, error) {
	s.calls++
	_, s.deadline = ctx.Deadline()
	return s.devices, s.err
}

type fakeLink struct {
	address string
	closed  int
	err     error
}

func (l *fakeLink) Address() string { return l.address }
func (l *fakeLink) Close() error {
	l.closed++
	return l.err
}

type fakeConnector struct {
	link *fakeLink
	err  error
	got  string
}

func (c *fakeConnector) Connect(ctx context.Context, address string) (Link, error) {
	c.got = address
	if c.err != nil {
		return nil, c.err
	}
	return c.link, nil
}

type countingIndicator struct{ starts, stops int }

func (i *countingIndicator) Start() { i.starts++ }
func (i *countingIndicator) Stop()  { i.stops++ }

func newFlow(out *bytes.Buffer, logs *bytes.Buffer) *Flow {
	return &Flow{
		Out: out,
		Log: slog.New(slog.NewTextHandler(logs, nil)),
	}
}

func indexedLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if strings.HasPrefix(l, "[") {
			lines = append(lines, l)
		}
	}
	return lines
}

func TestScanSingleDeviceScenario(t *testing.T) {
	var out, logs bytes.Buffer
	f := newFlow(&out, &logs)
	f.Scanner = &fakeScanner{devices: []Device{{Name: "Speaker", Address: "AA:BB:CC:DD:EE:FF"}}}

	devices, err := f.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, []string{"[1] Speaker | Address: AA:BB:CC:DD:EE:FF"}, indexedLines(out.String()))
}

func TestScanPrintsOneIndexedLinePerDevice(t *testing.T) {
	var out, logs bytes.Buffer
	f := newFlow(&out, &logs)
	f.Scanner = &fakeScanner{devices: []Device{
		{Name: "Band", Address: "11:22:33:44:55:66"},
		{Address: "22:33:44:55:66:77"},
		{Name: "Lamp", Address: "33:44:55:66:77:88"},
	}}

	_, err := f.Scan(context.Background())
	require.NoError(t, err)

	lines := indexedLines(out.String())
	require.Len(t, lines, 3)
	assert.Equal(t, "[1] Band | Address: 11:22:33:44:55:66", lines[0])
	assert.Equal(t, "[2] Unknown | Address: 22:33:44:55:66:77", lines[1])
	assert.Equal(t, "[3] Lamp | Address: 33:44:55:66:77:88", lines[2])
}

func TestScanNoDevices(t *testing.T) {
	var out, logs bytes.Buffer
	f := newFlow(&out, &logs)
	f.Scanner = &fakeScanner{}

	devices, err := f.Scan(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, devices)
	assert.Empty(t, devices)
	assert.Contains(t, out.String(), "No devices found.")
	assert.Empty(t, indexedLines(out.String()))
}

func TestScanFailureIsReported(t *testing.T) {
	var out, logs bytes.Buffer
	f := newFlow(&out, &logs)
	boom := errors.New("adapter unavailable")
	s := &fakeScanner{err: boom}
	f.Scanner = s

	devices, err := f.Scan(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, devices)
	assert.Equal(t, 1, s.calls, "no retry")
	assert.Contains(t, out.String(), "BLE scan failed: adapter unavailable")
	assert.Contains(t, logs.String(), "BLE scan failed")
}

func TestScanAppliesTimeoutAndIndicator(t *testing.T) {
	var out, logs bytes.Buffer
	f := newFlow(&out, &logs)
	s := &fakeScanner{}
	ind := &countingIndicator{}
	f.Scanner = s
	f.Indicator = ind
	f.ScanTimeout = time.Second

	_, err := f.Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, s.deadline)
	assert.Equal(t, 1, ind.starts)
	assert.Equal(t, 1, ind.stops)
}

func TestConnectHoldsThenCloses(t *testing.T) {
	var out, logs bytes.Buffer
	f := newFlow(&out, &logs)
	link := &fakeLink{address: "AA:BB:CC:DD:EE:FF"}
	conn := &fakeConnector{link: link}
	f.Connector = conn
	f.Hold = 10 * time.Millisecond

	ok := f.Connect(context.Background(), " AA:BB:CC:DD:EE:FF ")
	assert.True(t, ok)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", conn.got)
	assert.Equal(t, 1, link.closed)
	assert.Contains(t, logs.String(), "Connected to AA:BB:CC:DD:EE:FF")
	assert.Contains(t, logs.String(), "Disconnected from AA:BB:CC:DD:EE:FF")
}

func TestConnectHoldEndsWithContext(t *testing.T) {
	var out, logs bytes.Buffer
	f := newFlow(&out, &logs)
	link := &fakeLink{}
	f.Connector = &fakeConnector{link: link}
	f.Hold = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, f.Connect(ctx, "AA:BB:CC:DD:EE:FF"))
	assert.Equal(t, 1, link.closed)
}

func TestConnectFailuresReturnFalse(t *testing.T) {
	var out, logs bytes.Buffer
	f := newFlow(&out, &logs)

	f.Connector = &fakeConnector{err: errors.New("dial timeout")}
	assert.False(t, f.Connect(context.Background(), "AA:BB:CC:DD:EE:FF"))
	assert.Contains(t, logs.String(), "Failed to connect to AA:BB:CC:DD:EE:FF: dial timeout")

	link := &fakeLink{err: errors.New("cancel failed")}
	f.Connector = &fakeConnector{link: link}
	assert.False(t, f.Connect(context.Background(), "AA:BB:CC:DD:EE:FF"))
	assert.Equal(t, 1, link.closed)

	conn := &fakeConnector{link: &fakeLink{}}
	f.Connector = conn
	assert.False(t, f.Connect(context.Background(), "  "))
	assert.Empty(t, conn.got, "blank address never reaches the connector")
}

func TestCollectorDeduplicatesAndBackfillsNames(t *testing.T) {
	c := newCollector()
	c.add("", "aa:bb:cc:dd:ee:ff")
	c.add("Speaker", "AA:BB:CC:DD:EE:FF")
	c.add("Other", "aa:bb:cc:dd:ee:ff")
	c.add("Lamp", "11:22:33:44:55:66")
	c.add("Ghost", "")

	assert.Equal(t, []Device{
		{Name: "Speaker", Address: "AA:BB:CC:DD:EE:FF"},
		{Name: "Lamp", Address: "11:22:33:44:55:66"},
	}, c.devices())
}

func TestStackLoggerWritesThroughLogrus(t *testing.T) {
	var buf bytes.Buffer
	l := NewStackLogger(&buf, slog.LevelInfo)

	l.Debug("dropped")
	l.ChildLogger(map[string]interface{}{"hci": 0}).Infof("reset %s", "done")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "reset done")
	assert.Contains(t, buf.String(), "hci=0")
	assert.Contains(t, buf.String(), "component=ble")
}
