// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package core

import (
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
)

// notifyBuffer is the per-session message backlog before messages drop.
const notifyBuffer = 100

// Notifier delivers text messages to the sessions connected as a player.
type Notifier struct {
	mu   sync.RWMutex
	subs map[ulid.ULID][]chan string
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		subs: make(map[ulid.ULID][]chan string),
	}
}

// Subscribe creates a channel receiving messages for player.
func (n *Notifier) Subscribe(player ulid.ULID) chan string {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan string, notifyBuffer)
	n.subs[player] = append(n.subs[player], ch)
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (n *Notifier) Unsubscribe(player ulid.ULID, ch chan string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	subs := n.subs[player]
	for i, sub := range subs {
		if sub == ch {
			n.subs[player] = append(subs[:i], subs[i+1:]...)
			if len(n.subs[player]) == 0 {
				delete(n.subs, player)
			}
			close(ch)
			return
		}
	}
}

// Connected reports whether any session is subscribed for player.
func (n *Notifier) Connected(player ulid.ULID) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs[player]) > 0
}

// Notify sends msg to every session of player and returns how many
// received it. It never blocks: a full session buffer drops the message.
func (n *Notifier) Notify(player ulid.ULID, msg string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	delivered := 0
	for _, ch := range n.subs[player] {
		select {
		case ch <- msg:
			delivered++
		default:
			NotificationsDropped.Inc()
			slog.Warn("notification dropped: session buffer full",
				"player", player.String(),
			)
		}
	}
	return delivered
}
