// ABOUTME: Tests for the connection registry.
// ABOUTME: Covers fan-out, empty-entry cleanup, failure isolation, and concurrent access.

package registry

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
)

// mockChannel records sent payloads and can be set to fail.
type mockChannel struct {
	mu       sync.Mutex
	sent     [][]byte
	failSend bool
	closed   bool
}

func (m *mockChannel) Send(payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend {
		return errors.New("send failed")
	}
	m.sent = append(m.sent, payload)
	return nil
}

func (m *mockChannel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockChannel) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockChannel) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConnect(t *testing.T) {
	r := New(testLogger(), nil)

	conn := NewConn(AudienceCustomer, "cust-1", "Ada", &mockChannel{})
	if err := r.Connect(conn); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if !r.IsConnected(AudienceCustomer, "cust-1") {
		t.Error("IsConnected() = false after Connect")
	}
	if got := r.Len(AudienceCustomer); got != 1 {
		t.Errorf("Len(customer) = %d, want 1", got)
	}
}

func TestConnect_InvalidAudience(t *testing.T) {
	r := New(testLogger(), nil)

	conn := NewConn(Audience("visitor"), "x", "", &mockChannel{})
	if err := r.Connect(conn); !errors.Is(err, ErrUnknownAudience) {
		t.Errorf("Connect() error = %v, want ErrUnknownAudience", err)
	}
}

func TestConnect_MultipleConnectionsPerIdentity(t *testing.T) {
	r := New(testLogger(), nil)

	tab1 := NewConn(AudienceCustomer, "cust-1", "Ada", &mockChannel{})
	tab2 := NewConn(AudienceCustomer, "cust-1", "Ada", &mockChannel{})

	if err := r.Connect(tab1); err != nil {
		t.Fatalf("Connect(tab1) error = %v", err)
	}
	if err := r.Connect(tab2); err != nil {
		t.Fatalf("Connect(tab2) error = %v", err)
	}

	if got := r.Len(AudienceCustomer); got != 2 {
		t.Errorf("Len(customer) = %d, want 2", got)
	}
	if got := len(r.Identities(AudienceCustomer)); got != 1 {
		t.Errorf("Identities(customer) len = %d, want 1", got)
	}
}

func TestDisconnect_DropsEmptyEntry(t *testing.T) {
	r := New(testLogger(), nil)

	conn := NewConn(AudienceAgent, "agent-1", "Sam", &mockChannel{})
	if err := r.Connect(conn); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	r.Disconnect(conn)

	if r.IsConnected(AudienceAgent, "agent-1") {
		t.Error("IsConnected() = true after last Disconnect, entry should be gone")
	}
	if got := len(r.Identities(AudienceAgent)); got != 0 {
		t.Errorf("Identities(agent) len = %d, want 0", got)
	}
}

func TestDisconnect_KeepsRemainingConnections(t *testing.T) {
	r := New(testLogger(), nil)

	tab1 := NewConn(AudienceCustomer, "cust-1", "Ada", &mockChannel{})
	tab2 := NewConn(AudienceCustomer, "cust-1", "Ada", &mockChannel{})
	_ = r.Connect(tab1)
	_ = r.Connect(tab2)

	r.Disconnect(tab1)

	if !r.IsConnected(AudienceCustomer, "cust-1") {
		t.Error("IsConnected() = false, second connection should remain")
	}
	if got := r.Len(AudienceCustomer); got != 1 {
		t.Errorf("Len(customer) = %d, want 1", got)
	}
}

func TestDisconnect_UnknownIsNoOp(t *testing.T) {
	r := New(testLogger(), nil)

	// Never connected; must not panic or mutate anything.
	stranger := NewConn(AudienceCustomer, "cust-9", "", &mockChannel{})
	r.Disconnect(stranger)

	if got := r.Len(AudienceCustomer); got != 0 {
		t.Errorf("Len(customer) = %d, want 0", got)
	}
}

func TestSendToIdentity_FanOut(t *testing.T) {
	r := New(testLogger(), nil)

	ch1 := &mockChannel{}
	ch2 := &mockChannel{}
	_ = r.Connect(NewConn(AudienceCustomer, "cust-1", "Ada", ch1))
	_ = r.Connect(NewConn(AudienceCustomer, "cust-1", "Ada", ch2))

	// A different identity must not receive the payload.
	other := &mockChannel{}
	_ = r.Connect(NewConn(AudienceCustomer, "cust-2", "Bo", other))

	delivered := r.SendToIdentity(AudienceCustomer, "cust-1", []byte(`{"hello":true}`))

	if delivered != 2 {
		t.Errorf("SendToIdentity() = %d, want 2", delivered)
	}
	if ch1.sentCount() != 1 || ch2.sentCount() != 1 {
		t.Errorf("fan-out counts = %d, %d, want 1, 1", ch1.sentCount(), ch2.sentCount())
	}
	if other.sentCount() != 0 {
		t.Errorf("other identity received %d payloads, want 0", other.sentCount())
	}
}

func TestSendToIdentity_AbsentIdentity(t *testing.T) {
	r := New(testLogger(), nil)

	delivered := r.SendToIdentity(AudienceAgent, "nobody", []byte("x"))
	if delivered != 0 {
		t.Errorf("SendToIdentity() = %d, want 0", delivered)
	}
}

func TestSendToIdentity_FailureIsolation(t *testing.T) {
	r := New(testLogger(), nil)

	good1 := &mockChannel{}
	bad := &mockChannel{failSend: true}
	good2 := &mockChannel{}
	_ = r.Connect(NewConn(AudienceCustomer, "cust-1", "Ada", good1))
	badConn := NewConn(AudienceCustomer, "cust-1", "Ada", bad)
	_ = r.Connect(badConn)
	_ = r.Connect(NewConn(AudienceCustomer, "cust-1", "Ada", good2))

	delivered := r.SendToIdentity(AudienceCustomer, "cust-1", []byte("payload"))

	// Channels after the failing one still receive the payload.
	if delivered != 2 {
		t.Errorf("SendToIdentity() = %d, want 2", delivered)
	}
	if good2.sentCount() != 1 {
		t.Errorf("channel after failure got %d payloads, want 1", good2.sentCount())
	}

	// The failed connection is closed and gone after the pass.
	if !bad.isClosed() {
		t.Error("failed channel not closed")
	}
	if got := r.Len(AudienceCustomer); got != 2 {
		t.Errorf("Len(customer) = %d after reap, want 2", got)
	}

	// A second send reaches only the survivors.
	delivered = r.SendToIdentity(AudienceCustomer, "cust-1", []byte("again"))
	if delivered != 2 {
		t.Errorf("second SendToIdentity() = %d, want 2", delivered)
	}
}

func TestSendToIdentity_AllChannelsFailDropsEntry(t *testing.T) {
	r := New(testLogger(), nil)

	bad := &mockChannel{failSend: true}
	_ = r.Connect(NewConn(AudienceCustomer, "cust-1", "Ada", bad))

	delivered := r.SendToIdentity(AudienceCustomer, "cust-1", []byte("x"))
	if delivered != 0 {
		t.Errorf("SendToIdentity() = %d, want 0", delivered)
	}

	if r.IsConnected(AudienceCustomer, "cust-1") {
		t.Error("entry should be dropped once its last connection is reaped")
	}
}

func TestBroadcast(t *testing.T) {
	r := New(testLogger(), nil)

	agent1 := &mockChannel{}
	agent2a := &mockChannel{}
	agent2b := &mockChannel{}
	customer := &mockChannel{}
	_ = r.Connect(NewConn(AudienceAgent, "agent-1", "Sam", agent1))
	_ = r.Connect(NewConn(AudienceAgent, "agent-2", "Kim", agent2a))
	_ = r.Connect(NewConn(AudienceAgent, "agent-2", "Kim", agent2b))
	_ = r.Connect(NewConn(AudienceCustomer, "cust-1", "Ada", customer))

	delivered := r.Broadcast(AudienceAgent, []byte("announce"))

	if delivered != 3 {
		t.Errorf("Broadcast() = %d, want 3", delivered)
	}
	if customer.sentCount() != 0 {
		t.Errorf("customer audience received %d broadcast payloads, want 0", customer.sentCount())
	}
}

func TestBroadcast_FailureIsolationAcrossIdentities(t *testing.T) {
	r := New(testLogger(), nil)

	bad := &mockChannel{failSend: true}
	good := &mockChannel{}
	_ = r.Connect(NewConn(AudienceAgent, "agent-1", "Sam", bad))
	_ = r.Connect(NewConn(AudienceAgent, "agent-2", "Kim", good))

	delivered := r.Broadcast(AudienceAgent, []byte("x"))

	if delivered != 1 {
		t.Errorf("Broadcast() = %d, want 1", delivered)
	}
	if good.sentCount() != 1 {
		t.Errorf("healthy identity got %d payloads, want 1", good.sentCount())
	}
	if r.IsConnected(AudienceAgent, "agent-1") {
		t.Error("identity with only a dead channel should be gone after reap")
	}
}

func TestClose(t *testing.T) {
	r := New(testLogger(), nil)

	ch1 := &mockChannel{}
	ch2 := &mockChannel{}
	_ = r.Connect(NewConn(AudienceAgent, "agent-1", "Sam", ch1))
	_ = r.Connect(NewConn(AudienceCustomer, "cust-1", "Ada", ch2))

	r.Close()

	if !ch1.isClosed() || !ch2.isClosed() {
		t.Error("Close() should close every channel")
	}
	if r.Len(AudienceAgent) != 0 || r.Len(AudienceCustomer) != 0 {
		t.Error("Close() should empty the registry")
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := New(testLogger(), nil)

	var wg sync.WaitGroup
	numGoroutines := 10
	opsPerGoroutine := 50

	// Concurrent connects and disconnects
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				conn := NewConn(AudienceCustomer, fmt.Sprintf("cust-%d", id), "", &mockChannel{})
				if err := r.Connect(conn); err != nil {
					t.Errorf("Connect() error = %v", err)
				}
				r.Disconnect(conn)
			}
		}(i)
	}

	// Concurrent sends and broadcasts against the churn
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				r.SendToIdentity(AudienceCustomer, fmt.Sprintf("cust-%d", id), []byte("ping"))
				r.Broadcast(AudienceCustomer, []byte("all"))
			}
		}(i)
	}

	wg.Wait()

	// Every connect was paired with a disconnect.
	if got := r.Len(AudienceCustomer); got != 0 {
		t.Errorf("Len(customer) = %d after churn, want 0", got)
	}
}
