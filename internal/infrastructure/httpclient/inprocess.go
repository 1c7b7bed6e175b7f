package httpclient

import (
	"context"

	appinventory "github.com/synexstock/orderflow/internal/application/inventory"
	appuser "github.com/synexstock/orderflow/internal/application/user"
)

// InProcessDeductor satisfies the orchestrator's deduct port with the
// local stock ledger. The credential parameter is accepted for contract
// parity with the HTTP client; the ledger call inherits the request's
// already-verified context.
type InProcessDeductor struct {
	inventory *appinventory.Service
}

func NewInProcessDeductor(inventory *appinventory.Service) *InProcessDeductor {
	return &InProcessDeductor{inventory: inventory}
}

func (d *InProcessDeductor) Deduct(ctx context.Context, credential, skuCode string, quantity int) (bool, error) {
	_ = credential
	return d.inventory.Deduct(ctx, skuCode, quantity)
}

// InProcessEmailResolver resolves emails from the local user service.
type InProcessEmailResolver struct {
	users *appuser.Service
}

func NewInProcessEmailResolver(users *appuser.Service) *InProcessEmailResolver {
	return &InProcessEmailResolver{users: users}
}

func (r *InProcessEmailResolver) EmailOf(ctx context.Context, credential, username string) (string, error) {
	_ = credential
	return r.users.EmailOf(ctx, username)
}
