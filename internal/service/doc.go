// Package service implements the queue lifecycle of printkeeper.
//
// The services sit between the command and HTTP layers and the collaborators
// they drive: the spooler (QueueManager), network discovery
// (EndpointScanner), hardware address resolution (HardwareResolver) and the
// identity registry (IdentityStore).
//
// # Services
//
// ReconcileService runs a reconciliation pass: every discovered endpoint is
// resolved to a hardware address and matched against the registry and the
// configured queues, producing one action (AddNew, UpdateURI, Reattach,
// RegisterMacOnly or Skip) that is applied before the next endpoint. The
// registry is stored once per pass. Passes are serialized.
//
// ReadinessGate checks that a queue exists, that its network target accepts
// connections, that it is not stopped and that it accepts jobs, optionally
// enabling the queue on the way.
//
// Dispatcher submits a job with a bounded retry policy, gating every attempt
// on readiness. When attempts run out the caller gets the last failure.
//
// BootNotifier waits for the network and the spooler after a power cycle,
// reconciles, and prints a status notice on every queue.
//
// # Event System
//
// Passes and dispatches publish events on an EventBus, which the hub streams
// to connected clients as Server-Sent Events.
package service
