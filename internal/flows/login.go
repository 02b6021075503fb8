package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAuth-client/tokenstore"
	"github.com/MrEthical07/goAuth-client/transport"
)

// LoginFailureKind classifies login and register flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRejected
	LoginFailureConflict
	LoginFailureTransport
	LoginFailureSave
	LoginFailureProfile
)

// LoginResult carries either the new session material or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Pair    tokenstore.Pair
	Profile transport.Profile

	// Registered is set by RunRegister once the account exists, even if the
	// follow-up login failed.
	Registered bool
}

// LoginTransport is the subset of the authority client used by login and register.
type LoginTransport interface {
	Register(ctx context.Context, creds transport.Credentials) (transport.Profile, error)
	Login(ctx context.Context, creds transport.Credentials) (tokenstore.Pair, error)
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Transport LoginTransport

	// Save persists a freshly issued pair; Clear undoes it when the profile fetch fails.
	Save  func(context.Context, tokenstore.Pair) error
	Clear func(context.Context) error

	// FetchProfile resolves the account behind the stored pair.
	FetchProfile func(context.Context) (transport.Profile, error)

	InvalidCredentials     error
	EmailAlreadyRegistered error
}

// RunLogin exchanges credentials for a pair, persists it and resolves the profile.
//
// A rejected login leaves the store untouched.
func RunLogin(ctx context.Context, creds transport.Credentials, deps LoginDeps) LoginResult {
	pair, err := deps.Transport.Login(ctx, creds)
	if err != nil {
		kind := LoginFailureTransport
		if deps.InvalidCredentials != nil && errors.Is(err, deps.InvalidCredentials) {
			kind = LoginFailureRejected
		}
		return LoginResult{Failure: kind, Err: err}
	}

	if err := deps.Save(ctx, pair); err != nil {
		return LoginResult{Failure: LoginFailureSave, Err: err, Pair: pair}
	}

	profile, err := deps.FetchProfile(ctx)
	if err != nil {
		if deps.Clear != nil {
			_ = deps.Clear(ctx)
		}
		return LoginResult{Failure: LoginFailureProfile, Err: err, Pair: pair}
	}

	return LoginResult{
		Failure: LoginFailureNone,
		Pair:    pair,
		Profile: profile,
	}
}

// RunRegister creates the account and then logs in with the same credentials.
func RunRegister(ctx context.Context, creds transport.Credentials, deps LoginDeps) LoginResult {
	if _, err := deps.Transport.Register(ctx, creds); err != nil {
		kind := LoginFailureTransport
		switch {
		case deps.EmailAlreadyRegistered != nil && errors.Is(err, deps.EmailAlreadyRegistered):
			kind = LoginFailureConflict
		case deps.InvalidCredentials != nil && errors.Is(err, deps.InvalidCredentials):
			kind = LoginFailureRejected
		}
		return LoginResult{Failure: kind, Err: err}
	}

	res := RunLogin(ctx, creds, deps)
	res.Registered = true
	return res
}
