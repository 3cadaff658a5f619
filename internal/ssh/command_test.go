package ssh

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

type fakeSession struct {
	connectErr error
	execErr    error
	result     Result

	target   Target
	commands []string
	closes   int
}

func (s *fakeSession) Connect(ctx context.Context, t Target) error {
	s.target = t
	return s.connectErr
}

func (s *fakeSession) Exec(ctx context.Context, command string) (Result, error) {
	s.commands = append(s.commands, command)
	return s.result, s.execErr
}

func (s *fakeSession) Close() error {
	s.closes++
	return nil
}

type fakeDialer struct{ session *fakeSession }

func (d *fakeDialer) NewSession() Session { return d.session }

func newRunner(out, logs *bytes.Buffer, s *fakeSession) *Runner {
	return &Runner{
		Dialer:         &fakeDialer{session: s},
		Out:            out,
		Log:            slog.New(slog.NewTextHandler(logs, nil)),
		DefaultPort:    22,
		DefaultCommand: "ls -la",
	}
}

func TestRunClosesExactlyOnce(t *testing.T) {
	cases := map[string]*fakeSession{
		"connect failure": {connectErr: errors.New("dial tcp: connection refused")},
		"auth failure":    {connectErr: newError(ErrAuth, "handshake", errors.New("ssh: unable to authenticate"))},
		"exec failure":    {execErr: errors.New("ssh: could not open channel")},
		"success":         {result: Result{Stdout: []string{"ok"}}},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			var out, logs bytes.Buffer
			_ = newRunner(&out, &logs, s).Run(context.Background(), Request{Host: "pi", User: "pi"})
			assert.Equal(t, 1, s.closes)
			assert.Contains(t, logs.String(), "SSH connection closed.")
		})
	}
}

func TestRunBlankCommandUsesDefault(t *testing.T) {
	var out, logs bytes.Buffer
	s := &fakeSession{}
	require.NoError(t, newRunner(&out, &logs, s).Run(context.Background(), Request{Host: "pi", User: "pi", Command: "   "}))
	assert.Equal(t, []string{"ls -la"}, s.commands)

	r := newRunner(&out, &logs, s)
	r.DefaultCommand = ""
	require.NoError(t, r.Run(context.Background(), Request{Host: "pi", User: "pi"}))
	assert.Equal(t, "ls -la", s.commands[1])
}

func TestRunAuthFailureScenario(t *testing.T) {
	var out, logs bytes.Buffer
	s := &fakeSession{connectErr: newError(ErrAuth, "handshake", errors.New("ssh: handshake failed: ssh: unable to authenticate"))}

	err := newRunner(&out, &logs, s).Run(context.Background(), Request{Host: "pi", User: "pi", Password: "wrong"})
	assert.ErrorIs(t, err, ErrAuth)
	assert.Contains(t, out.String(), "Authentication failed")
	assert.Contains(t, logs.String(), "Authentication failed")
	assert.Empty(t, s.commands, "no exec after failed connect")
	assert.Equal(t, 1, s.closes)
}

func TestRunPrintsStdoutThenStderr(t *testing.T) {
	var out, logs bytes.Buffer
	s := &fakeSession{result: Result{Stdout: []string{"a", "b"}, Stderr: []string{}}}

	require.NoError(t, newRunner(&out, &logs, s).Run(context.Background(), Request{Host: "pi", User: "pi", Command: "x"}))
	assert.Equal(t, "\n--- Command Output (STDOUT) ---\na\nb\n--- Errors (STDERR) ---\n", out.String())
}

func TestRunPrintsStderrLines(t *testing.T) {
	var out, logs bytes.Buffer
	s := &fakeSession{result: Result{Stdout: []string{"partial"}, Stderr: []string{"ls: cannot access 'x'"}, ExitStatus: 2}}

	require.NoError(t, newRunner(&out, &logs, s).Run(context.Background(), Request{Host: "pi", User: "pi"}))
	text := out.String()
	assert.Less(t, strings.Index(text, "partial"), strings.Index(text, "--- Errors (STDERR) ---"))
	assert.True(t, strings.HasSuffix(text, "--- Errors (STDERR) ---\nls: cannot access 'x'\n"))
	assert.Contains(t, logs.String(), "status=2")
}

func TestRunClassifiesErrorsForTheUser(t *testing.T) {
	cases := []struct {
		err  error
		kind error
		msg  string
	}{
		{errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password]"), ErrAuth, "Authentication failed"},
		{errors.New("ssh: rejected: administratively prohibited"), ErrProtocol, "SSH error:"},
		{&os.PathError{Op: "dial", Path: "x", Err: os.ErrDeadlineExceeded}, ErrTransport, "An error occurred:"},
	}
	for _, c := range cases {
		var out, logs bytes.Buffer
		s := &fakeSession{execErr: c.err}
		err := newRunner(&out, &logs, s).Run(context.Background(), Request{Host: "pi", User: "pi"})
		assert.ErrorIs(t, err, c.kind, c.err.Error())
		assert.ErrorIs(t, err, c.err)
		assert.Contains(t, out.String(), c.msg)
	}
}

func TestRunResolvesSSHConfigAlias(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "ssh_config")
	require.NoError(t, os.WriteFile(cfgPath, []byte("Host pi\n  HostName 10.0.0.7\n  User alice\n  Port 2200\n  IdentityFile /keys/pi\n"), 0600))

	var out, logs bytes.Buffer
	s := &fakeSession{}
	r := newRunner(&out, &logs, s)
	r.SSHConfigPath = cfgPath

	require.NoError(t, r.Run(context.Background(), Request{Host: "pi", Password: "pw"}))
	assert.Equal(t, Target{Host: "10.0.0.7", Port: 2200, User: "alice", Password: "pw", KeyPath: "/keys/pi"}, s.target)

	require.NoError(t, r.Run(context.Background(), Request{Host: "pi", User: "bob", Port: 22, KeyPath: "/keys/bob"}))
	assert.Equal(t, Target{Host: "10.0.0.7", Port: 22, User: "bob", KeyPath: "/keys/bob"}, s.target)
}

func TestRunAppliesDefaults(t *testing.T) {
	var out, logs bytes.Buffer
	s := &fakeSession{}
	r := newRunner(&out, &logs, s)
	r.DefaultPort = 2022
	r.DefaultKeyPath = "/keys/default"

	require.NoError(t, r.Run(context.Background(), Request{Host: " 192.168.1.5 ", User: "root"}))
	assert.Equal(t, Target{Host: "192.168.1.5", Port: 2022, User: "root", KeyPath: "/keys/default"}, s.target)
}

func TestClassifyKeepsExistingKind(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), ErrProtocol)
	assert.Same(t, wrapped, classify("x", wrapped))
	assert.Nil(t, classify("x", nil))

	err := classify("dial", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "dial: context deadline exceeded", err.Error())
}
