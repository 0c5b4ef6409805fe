package middleware

import (
	"context"
	"errors"
	"strings"

	"staysync/internal/app/commands"
	"staysync/internal/app/queries"
)

var ErrUnauthenticated = errors.New("middleware: caller identity required")

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// ActorScoped is implemented by messages that act on behalf of a guest or host.
type ActorScoped interface {
	ActorID() string
}

// ActorAuthorizer rejects actor-scoped messages that carry no actor.
// Ownership of the target property is checked by the handlers.
type ActorAuthorizer struct{}

func (ActorAuthorizer) Authorize(ctx context.Context, message any) error {
	scoped, ok := message.(ActorScoped)
	if !ok {
		return nil
	}
	if strings.TrimSpace(scoped.ActorID()) == "" {
		return ErrUnauthenticated
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
