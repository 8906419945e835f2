package relay

var (
	HubInstance      *Hub
	RouterInstance   *Router
	PresenceInstance *Presence
	StoreInstance    Store
)

// Init wires the hub, router and presence broadcaster around the given
// store. Must run before the first websocket upgrade.
func Init(st Store) {
	HubInstance = NewHub()
	RouterInstance = NewRouter(st, HubInstance)
	PresenceInstance = NewPresence(st, HubInstance)
	StoreInstance = st
}
