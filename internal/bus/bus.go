// Package bus propagates case and settlement change notifications to every
// server process over one shared redis pub/sub channel, with per-process
// local fan-out. Delivery is best-effort and at-least-once: the durable
// source of truth is the audit and ledger records, not the bus.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/meridianclear/clearcore/pkg/metrics"
)

const (
	// Channel is the single broadcast channel shared by all processes.
	Channel = "clearcore:case-events"

	// maxPayloadBytes is the hard envelope ceiling. Redis itself tolerates
	// far larger values; the ceiling keeps slow subscribers from stalling
	// local fan-out.
	maxPayloadBytes = 64 * 1024

	// warnPayloadBytes logs a warning as envelopes approach the ceiling
	// instead of silently truncating them.
	warnPayloadBytes = 48 * 1024

	// reconnectDelay is the fixed wait before re-establishing a failed
	// listener connection.
	reconnectDelay = 2 * time.Second
)

// Envelope is the wire format on the shared channel. OriginNode lets a
// receiving process distinguish local-origin from cross-node delivery.
type Envelope struct {
	SubjectID  string          `json:"subject_id"`
	CaseID     string          `json:"case_id"`
	Event      json.RawMessage `json:"event"`
	OriginNode string          `json:"origin_node"`
}

// Callback receives envelopes for a subscribed subject. Callbacks run
// synchronously on the listener goroutine and must not block.
type Callback func(env Envelope)

// Bus is one process's handle on the shared channel. Construct one per
// process and inject it; there is no package-level singleton.
type Bus struct {
	rdb    *redis.Client
	logger *zap.Logger
	nodeID string

	mu          sync.Mutex
	subscribers map[string]map[int]Callback
	nextToken   int
	listening   bool
	ready       bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a bus identified on the wire as nodeID.
func New(rdb *redis.Client, logger *zap.Logger, nodeID string) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		rdb:         rdb,
		logger:      logger,
		nodeID:      nodeID,
		subscribers: make(map[string]map[int]Callback),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Publish broadcasts an event for subjectID to every process, this one
// included. Events over the payload ceiling are rejected, never truncated.
func (b *Bus) Publish(ctx context.Context, subjectID, caseID string, event any) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("bus: marshal event: %w", err)
	}

	env := Envelope{
		SubjectID:  subjectID,
		CaseID:     caseID,
		Event:      raw,
		OriginNode: b.nodeID,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("bus: marshal envelope: %w", err)
	}

	if len(payload) > maxPayloadBytes {
		return fmt.Errorf("bus: envelope for subject %s is %d bytes, over the %d byte ceiling",
			subjectID, len(payload), maxPayloadBytes)
	}
	if len(payload) >= warnPayloadBytes {
		b.logger.Warn("bus envelope approaching payload ceiling",
			zap.String("subject_id", subjectID),
			zap.Int("bytes", len(payload)),
			zap.Int("ceiling", maxPayloadBytes))
	}

	if err := b.rdb.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("bus: publish %s: %w", Channel, err)
	}

	metrics.BusEnvelopesPublished.WithLabelValues(b.nodeID).Inc()
	return nil
}

// Subscribe registers a callback for envelopes whose subject matches
// subjectID and returns an unsubscribe function. The first subscription
// lazily starts the single listener connection shared by all local
// subscribers.
func (b *Bus) Subscribe(subjectID string, fn Callback) func() {
	b.mu.Lock()
	token := b.nextToken
	b.nextToken++
	if b.subscribers[subjectID] == nil {
		b.subscribers[subjectID] = make(map[int]Callback)
	}
	b.subscribers[subjectID][token] = fn

	start := !b.listening && b.ctx.Err() == nil
	if start {
		b.listening = true
	}
	b.mu.Unlock()

	if start {
		go b.listen()
	}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subscribers[subjectID]; ok {
			delete(set, token)
			if len(set) == 0 {
				delete(b.subscribers, subjectID)
			}
		}
	}
}

// Ready reports whether the listener connection is currently established.
func (b *Bus) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// Close stops the listener goroutine.
func (b *Bus) Close() {
	b.cancel()
}

// listen is the single long-lived subscriber loop. On connection error it
// marks the bus not-ready, waits the fixed reconnect delay, and tries
// again; it never crashes the process. On exit it clears the listening
// flag so a later Subscribe can start a fresh listener.
func (b *Bus) listen() {
	defer func() {
		b.mu.Lock()
		b.listening = false
		b.ready = false
		b.mu.Unlock()
	}()

	for {
		if b.ctx.Err() != nil {
			return
		}

		pubsub := b.rdb.Subscribe(b.ctx, Channel)
		if _, err := pubsub.Receive(b.ctx); err != nil {
			_ = pubsub.Close()
			if b.ctx.Err() != nil {
				return
			}
			b.setReady(false)
			metrics.BusConnectionErrors.Inc()
			b.logger.Warn("bus listener connection failed; will reconnect",
				zap.Error(err),
				zap.Duration("delay", reconnectDelay))
			if !b.waitReconnect() {
				return
			}
			continue
		}

		b.setReady(true)
		b.logger.Info("bus listener established", zap.String("channel", Channel))

		ch := pubsub.Channel()
	recv:
		for {
			select {
			case <-b.ctx.Done():
				_ = pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				b.dispatch([]byte(msg.Payload))
			}
		}

		_ = pubsub.Close()
		if b.ctx.Err() != nil {
			return
		}
		b.setReady(false)
		metrics.BusConnectionErrors.Inc()
		b.logger.Warn("bus listener connection lost; will reconnect",
			zap.Duration("delay", reconnectDelay))
		if !b.waitReconnect() {
			return
		}
	}
}

// waitReconnect sleeps for the reconnect delay unless the bus is closed
// first, in which case it reports false so the listener exits promptly.
func (b *Bus) waitReconnect() bool {
	select {
	case <-b.ctx.Done():
		return false
	case <-time.After(reconnectDelay):
		metrics.BusReconnects.Inc()
		return true
	}
}

// dispatch decodes one envelope and fans it out to the local subscribers
// for its subject. Malformed envelopes are logged and counted, never
// surfaced to callbacks.
func (b *Bus) dispatch(payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil || env.SubjectID == "" {
		metrics.BusMalformedEnvelopes.Inc()
		b.logger.Error("bus dropped malformed envelope",
			zap.Int("bytes", len(payload)),
			zap.Error(err))
		return
	}

	b.mu.Lock()
	callbacks := make([]Callback, 0, len(b.subscribers[env.SubjectID]))
	for _, fn := range b.subscribers[env.SubjectID] {
		callbacks = append(callbacks, fn)
	}
	b.mu.Unlock()

	for _, fn := range callbacks {
		fn(env)
	}
}

func (b *Bus) setReady(ready bool) {
	b.mu.Lock()
	b.ready = ready
	b.mu.Unlock()
}
