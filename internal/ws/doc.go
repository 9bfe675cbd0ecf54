// Package ws implements the WebSocket hub behind /ws/stream.
//
// Each client picks its own window with ?window= (or ?since=) when it
// connects; an invalid value is rejected with 400 before the upgrade. The hub
// sends {event:"dashboard", data: Dashboard} immediately on connect, again
// every interval, and whenever Notify is called after a refresh. Clients
// sharing a window share one recompute per broadcast.
package ws
