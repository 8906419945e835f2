package relay

import "log"

// Presence fans a user's status change out to every friend that
// currently holds a live session. Best-effort: one failed send never
// blocks the others, and nobody outside the friend set is notified.
type Presence struct {
	store Store
	hub   *Hub
}

func NewPresence(st Store, hub *Hub) *Presence {
	return &Presence{store: st, hub: hub}
}

func (p *Presence) AnnounceOnline(userID int64) {
	p.announce(userID, StatusOnline)
}

func (p *Presence) AnnounceOffline(userID int64) {
	p.announce(userID, StatusOffline)
}

func (p *Presence) announce(userID int64, status string) {
	friends, err := p.store.GetFriends(userID)
	if err != nil {
		log.Printf("presence: failed to load friends of user %d: %v", userID, err)
		return
	}

	frame := NewOnlineStatusFrame(userID, status)
	for _, friend := range friends {
		if client, ok := p.hub.Lookup(friend.ID); ok {
			client.sendFrame(frame)
		}
	}
}
