package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/browser/browsertest"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	testingclock "k8s.io/utils/clock/testing"
)

type fakeResolver struct {
	address string
	failure string
	err     error
	calls   []string
}

func (r *fakeResolver) Resolve(_ context.Context, profile string) (string, string, error) {
	r.calls = append(r.calls, profile)

	return r.address, r.failure, r.err
}

func newSessionFixture(t *testing.T, resolver *fakeResolver) (*SessionManager, *browsertest.Connector) {
	t.Helper()

	clk := testingclock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	connector := &browsertest.Connector{Conn: browsertest.NewConnection(clk)}

	return NewSessionManager(zaptest.NewLogger(t), resolver, connector, clk), connector
}

func TestSessionStart(t *testing.T) {
	resolver := &fakeResolver{address: "ws://localhost:40001"}
	mgr, connector := newSessionFixture(t, resolver)

	_, err := mgr.Connection()
	require.ErrorIs(t, err, ErrSessionNotStarted)

	msg, err := mgr.Start(context.Background(), "work")
	require.NoError(t, err)
	assert.Equal(t, "Browser session started for profile: work", msg)
	assert.Equal(t, []string{"ws://localhost:40001"}, connector.Addresses)

	session, ok := mgr.Active()
	require.True(t, ok)
	assert.Equal(t, "work", session.Profile)
	assert.NotEmpty(t, session.ID)

	conn, err := mgr.Connection()
	require.NoError(t, err)
	assert.Same(t, connector.Conn, conn)
}

func TestSessionStartTwiceIsNoop(t *testing.T) {
	resolver := &fakeResolver{address: "ws://localhost:40001"}
	mgr, connector := newSessionFixture(t, resolver)

	_, err := mgr.Start(context.Background(), "work")
	require.NoError(t, err)

	msg, err := mgr.Start(context.Background(), "work")
	require.NoError(t, err)
	assert.Equal(t, MsgSessionAlreadyStarted, msg)
	assert.Len(t, resolver.calls, 1)
	assert.Len(t, connector.Addresses, 1)
}

func TestSessionStartWithoutProfile(t *testing.T) {
	resolver := &fakeResolver{address: "ws://localhost:40001"}
	mgr, _ := newSessionFixture(t, resolver)

	msg, err := mgr.Start(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, MsgNoProfile, msg)
	assert.Empty(t, resolver.calls)

	_, ok := mgr.Active()
	assert.False(t, ok)
}

func TestSessionStartProvisioningRefused(t *testing.T) {
	tests := []struct {
		name    string
		failure string
		want    string
	}{
		{name: "with error text", failure: "profile is locked", want: "Failed to start browser session: profile is locked"},
		{name: "without error text", failure: "", want: "Failed to start browser session: Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, connector := newSessionFixture(t, &fakeResolver{failure: tt.failure})

			msg, err := mgr.Start(context.Background(), "work")
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg)
			assert.Empty(t, connector.Addresses)

			_, ok := mgr.Active()
			assert.False(t, ok)
		})
	}
}

func TestSessionStartLookupFault(t *testing.T) {
	mgr, _ := newSessionFixture(t, &fakeResolver{err: errors.New("connection refused")})

	_, err := mgr.Start(context.Background(), "work")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))
}

func TestSessionStartConnectFault(t *testing.T) {
	mgr, connector := newSessionFixture(t, &fakeResolver{address: "ws://localhost:40001"})
	connector.Err = errors.New("handshake failed")

	_, err := mgr.Start(context.Background(), "work")
	require.Error(t, err)

	_, ok := mgr.Active()
	assert.False(t, ok)
}

func TestSessionClose(t *testing.T) {
	mgr, connector := newSessionFixture(t, &fakeResolver{address: "ws://localhost:40001"})

	require.NoError(t, mgr.Close(context.Background()))

	_, err := mgr.Start(context.Background(), "work")
	require.NoError(t, err)
	require.NoError(t, mgr.Close(context.Background()))
	assert.True(t, connector.Conn.Closed)
}
