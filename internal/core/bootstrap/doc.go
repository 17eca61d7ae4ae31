// Package bootstrap inspects the host network before discovery runs: the
// default gateway, the local address and the subnet worth scanning.
package bootstrap
