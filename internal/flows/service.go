package flows

import (
	"context"

	"github.com/MrEthical07/goAuth-client/transport"
)

// Service is the centralized flow runner built once by the root client.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

func (s Service) Login(ctx context.Context, creds transport.Credentials) LoginResult {
	return RunLogin(ctx, creds, s.deps.Login)
}

func (s Service) Logout(ctx context.Context) LogoutResult {
	return RunLogout(ctx, s.deps.Logout)
}

func (s Service) Restore(ctx context.Context) RestoreResult {
	return RunRestore(ctx, s.deps.Restore)
}

func (s Service) Register(ctx context.Context, creds transport.Credentials) LoginResult {
	return RunRegister(ctx, creds, s.deps.Login)
}
