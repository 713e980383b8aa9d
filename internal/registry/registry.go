// ABOUTME: Tracks live delivery channels per connected customer and agent identity.
// ABOUTME: Central lookup for targeted sends and audience-wide broadcasts.

package registry

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownAudience indicates an audience outside the supported set.
var ErrUnknownAudience = errors.New("unknown audience")

// Audience partitions connections into the two independently routed groups.
type Audience string

const (
	AudienceCustomer Audience = "customer"
	AudienceAgent    Audience = "agent"
)

// Valid reports whether the audience is one of the supported values.
func (a Audience) Valid() bool {
	return a == AudienceCustomer || a == AudienceAgent
}

// Channel is the transport a connection delivers payloads over.
// Send must be safe for serialized calls from multiple goroutines;
// implementations wrap non-reentrant transports with their own locking.
type Channel interface {
	Send(payload []byte) error
	Close() error
}

// Conn is one live connection for an identity. An identity may hold
// several concurrent connections (multiple tabs, devices).
type Conn struct {
	ID          string
	Audience    Audience
	Identity    string
	DisplayName string
	ConnectedAt time.Time

	ch Channel
}

// NewConn wraps a delivery channel into a registered connection record.
func NewConn(audience Audience, identity, displayName string, ch Channel) *Conn {
	return &Conn{
		ID:          uuid.New().String(),
		Audience:    audience,
		Identity:    identity,
		DisplayName: displayName,
		ConnectedAt: time.Now().UTC(),
		ch:          ch,
	}
}

// Stats receives delivery outcomes. Implementations must be safe for
// concurrent use; a nil Stats disables reporting.
type Stats interface {
	Delivered(audience string)
	SendFailed(audience string)
}

type key struct {
	audience Audience
	identity string
}

// Registry maps (audience, identity) to the ordered set of live connections.
// All state lives behind one RWMutex; sends happen outside the lock against
// a snapshot so a slow or dead channel never blocks registration.
type Registry struct {
	mu     sync.RWMutex
	conns  map[key][]*Conn
	logger *slog.Logger
	stats  Stats
}

// New creates an empty Registry. stats may be nil.
func New(logger *slog.Logger, stats Stats) *Registry {
	return &Registry{
		conns:  make(map[key][]*Conn),
		logger: logger.With("component", "registry"),
		stats:  stats,
	}
}

// Connect registers a live connection under its audience and identity.
// The first connection for an identity creates the entry; later ones
// append in arrival order.
func (r *Registry) Connect(conn *Conn) error {
	if !conn.Audience.Valid() {
		return ErrUnknownAudience
	}

	k := key{conn.Audience, conn.Identity}

	r.mu.Lock()
	r.conns[k] = append(r.conns[k], conn)
	total := len(r.conns[k])
	r.mu.Unlock()

	r.logger.Info("connection registered",
		"audience", conn.Audience,
		"identity", conn.Identity,
		"conn_id", conn.ID,
		"identity_conns", total,
	)
	return nil
}

// Disconnect removes a connection. When the last connection for an
// identity goes away the entry itself is dropped, so identity presence
// can be read off map membership. Removing a connection that is not
// registered is a logged no-op.
func (r *Registry) Disconnect(conn *Conn) {
	k := key{conn.Audience, conn.Identity}

	r.mu.Lock()
	removed := r.removeLocked(k, conn.ID)
	r.mu.Unlock()

	if !removed {
		r.logger.Debug("disconnect for unregistered connection",
			"audience", conn.Audience,
			"identity", conn.Identity,
			"conn_id", conn.ID,
		)
		return
	}

	r.logger.Info("connection removed",
		"audience", conn.Audience,
		"identity", conn.Identity,
		"conn_id", conn.ID,
	)
}

// removeLocked removes the connection with the given ID from the entry,
// deleting the entry when it empties. Caller holds the write lock.
func (r *Registry) removeLocked(k key, connID string) bool {
	entry, ok := r.conns[k]
	if !ok {
		return false
	}

	for i, c := range entry {
		if c.ID == connID {
			entry = append(entry[:i], entry[i+1:]...)
			if len(entry) == 0 {
				delete(r.conns, k)
			} else {
				r.conns[k] = entry
			}
			return true
		}
	}
	return false
}

// SendToIdentity delivers a payload to every live connection of one
// identity. Delivery iterates a snapshot taken under the read lock, so
// connects and disconnects during the pass affect later sends only.
// A failed channel does not stop the pass; failed connections are
// closed and removed after the pass completes. Returns the number of
// successful deliveries; an absent identity delivers to zero.
func (r *Registry) SendToIdentity(audience Audience, identity string, payload []byte) int {
	r.mu.RLock()
	entry := r.conns[key{audience, identity}]
	snapshot := make([]*Conn, len(entry))
	copy(snapshot, entry)
	r.mu.RUnlock()

	delivered, failed := r.sendAll(snapshot, payload)
	r.reap(failed)
	return delivered
}

// Broadcast delivers a payload to every connection of every identity in
// an audience. Same snapshot, failure isolation, and deferred-removal
// semantics as SendToIdentity.
func (r *Registry) Broadcast(audience Audience, payload []byte) int {
	r.mu.RLock()
	var snapshot []*Conn
	for k, entry := range r.conns {
		if k.audience == audience {
			snapshot = append(snapshot, entry...)
		}
	}
	r.mu.RUnlock()

	delivered, failed := r.sendAll(snapshot, payload)
	r.reap(failed)
	return delivered
}

// sendAll pushes the payload to each connection in turn, collecting the
// ones whose channel errored.
func (r *Registry) sendAll(conns []*Conn, payload []byte) (int, []*Conn) {
	var failed []*Conn
	delivered := 0

	for _, c := range conns {
		if err := c.ch.Send(payload); err != nil {
			r.logger.Warn("channel send failed",
				"audience", c.Audience,
				"identity", c.Identity,
				"conn_id", c.ID,
				"error", err,
			)
			if r.stats != nil {
				r.stats.SendFailed(string(c.Audience))
			}
			failed = append(failed, c)
			continue
		}
		if r.stats != nil {
			r.stats.Delivered(string(c.Audience))
		}
		delivered++
	}
	return delivered, failed
}

// reap closes and unregisters connections whose channel failed during a
// send pass. Removal happens here, after the pass, never mid-iteration.
func (r *Registry) reap(failed []*Conn) {
	if len(failed) == 0 {
		return
	}

	r.mu.Lock()
	for _, c := range failed {
		r.removeLocked(key{c.Audience, c.Identity}, c.ID)
	}
	r.mu.Unlock()

	for _, c := range failed {
		_ = c.ch.Close()
		r.logger.Info("dead connection reaped",
			"audience", c.Audience,
			"identity", c.Identity,
			"conn_id", c.ID,
		)
	}
}

// IsConnected reports whether the identity has at least one live connection.
func (r *Registry) IsConnected(audience Audience, identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.conns[key{audience, identity}]
	return ok
}

// Identities returns the identities currently holding connections in an
// audience. Order is unspecified.
func (r *Registry) Identities(audience Audience) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for k := range r.conns {
		if k.audience == audience {
			ids = append(ids, k.identity)
		}
	}
	return ids
}

// Len returns the total number of live connections in an audience.
func (r *Registry) Len(audience Audience) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for k, entry := range r.conns {
		if k.audience == audience {
			n += len(entry)
		}
	}
	return n
}

// Close tears down every connection. Used during gateway shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.conns
	r.conns = make(map[key][]*Conn)
	r.mu.Unlock()

	for _, entry := range all {
		for _, c := range entry {
			_ = c.ch.Close()
		}
	}
}
