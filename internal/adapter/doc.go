// Package adapter implements network discovery and hardware address resolution for printkeeper.
//
// # Discovery Sources
//
// A Source finds raw-print endpoints. Passive sources only read what is
// already advertised (mDNS, the spooler's own device list); active sources
// probe every host on the subnet (nmap, or a TCP sweep when nmap is missing).
//
// NetworkScanner runs every registered source against one subnet, merges the
// results by URI and enforces a wall-clock ceiling. A source still running at
// the ceiling contributes whatever it reported so far.
//
// # Hardware Address Resolution
//
// MACResolver pokes a host to populate the kernel neighbor cache, then asks a
// chain of NeighborLookup mechanisms in order: addresses nmap saw during the
// pass, `ip neighbor`, `arp -n`, /proc/net/arp and finally SNMP ifPhysAddress.
// Not finding an address is a normal outcome.
//
// # Events
//
// Sources and the scanner publish progress through EventPublisher.
package adapter
