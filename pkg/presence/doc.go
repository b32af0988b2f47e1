// Package presence implements the in-memory presence and room-messaging core
// behind a live chat feature: per-connection identity, room membership and
// message fan-out, independent of any durable chat-history store.
//
// # Components
//
//   - Registry: every live connection and its mutable identity
//   - Directory: room membership with automatic room lifecycle
//   - Broadcaster: join/leave/online/offline notices and presence queries
//   - Router: room fan-out and direct messages with sender acknowledgement
//   - Relay: best-effort typing indicator fan-out
//
// All components are owned by a single State value created with New and torn
// down with Close. Nothing here is a process-wide singleton; multiple State
// instances can coexist (e.g. in tests).
//
// # Basic Usage
//
//	state := presence.New(
//	    presence.WithPolicy(presence.PolicyMultiRoom),
//	    presence.WithLogger(log),
//	)
//	defer state.Close()
//
//	// transport hands every new connection to the core
//	identity := state.Connect(peer)
//
//	// every decoded inbound frame goes through one dispatch point
//	cmd, err := presence.ParseCommand(frame)
//	if err != nil { ... }
//	state.Dispatch(identity.ConnectionID, cmd)
//
//	// transport close drives the full cleanup cascade
//	state.Disconnect(identity.ConnectionID)
//
// # Delivery model
//
// Delivery is best-effort and at-most-once. Peers must implement non-blocking
// writes; a slow or broken peer loses its own notifications but never stalls
// delivery to the rest of a room. Scale-out across processes is explicitly
// out of scope: the State is the single authority for its process.
package presence
