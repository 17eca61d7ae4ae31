// Package domain defines the core types for the printkeeper receipt-printer queue keeper.
//
// This package contains the value objects shared by discovery, identity
// reconciliation and job dispatch. It has no infrastructure dependencies.
//
// # Discovery
//
// Endpoint is a network location offering raw print service, addressed by its
// canonical socket URI. DeviceURI extracts host and port metadata from any
// queue target URI the spooler understands.
//
// # Identity
//
// HardwareAddress is the stable identity key of a physical printer. It survives
// DHCP reassignment, so two endpoints with the same address are the same device.
//
// IdentityRecord maps a hardware address to the queue name it was last bound to,
// together with the last address it was seen at.
//
// # Queues
//
// Queue mirrors a spooler queue as read on each pass. It is never persisted.
//
// Action is one reconciliation step (add, retarget, reattach, backfill, skip)
// together with its outcome once applied.
//
// # Errors
//
// Every collaborator failure is converted into one of the error kinds in
// errors.go so callers can match them with errors.Is and errors.As.
package domain
