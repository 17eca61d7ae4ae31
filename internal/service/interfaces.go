package service

//go:generate mockgen -destination=mock_service.go -package=service printkeeper/internal/service QueueManager,EndpointScanner,HardwareResolver

import (
	"context"

	"printkeeper/internal/domain"
	"printkeeper/internal/registry"
)

// QueueManager is the print spooler's queue administration surface
type QueueManager interface {
	ListQueues(ctx context.Context) ([]domain.Queue, error)
	Queue(ctx context.Context, name string) (domain.Queue, bool, error)
	CreateQueue(ctx context.Context, name, uri string) error
	SetQueueURI(ctx context.Context, name, uri string) error
	Enable(ctx context.Context, name string) error
	Accept(ctx context.Context, name string) error
	Submit(ctx context.Context, name, title string, data []byte) (string, error)
	Jobs(ctx context.Context, name string) ([]domain.Job, error)
	Cancel(ctx context.Context, jobID string) error
}

// EndpointScanner finds raw-print endpoints on the local network
type EndpointScanner interface {
	Scan(ctx context.Context) ([]domain.Endpoint, error)
}

// HardwareResolver maps an IP to a hardware address, best effort
type HardwareResolver interface {
	Resolve(ctx context.Context, ip string) (domain.HardwareAddress, bool)
}

// IdentityStore is the identity registry as the reconciler uses it
type IdentityStore interface {
	Update(ctx context.Context, fn func(registry.Records) (bool, error)) error
	Snapshot() registry.Records
}
