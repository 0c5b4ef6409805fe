// Package wiring registers every command and query handler on the in-memory
// buses and wraps them in the middleware chain shared by all entry points.
package wiring

import (
	"log/slog"
	"time"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	availabilityapp "staysync/internal/app/handlers/availability"
	bookingapp "staysync/internal/app/handlers/booking"
	"staysync/internal/app/middleware"
	"staysync/internal/app/outbox"
	"staysync/internal/app/policies"
	"staysync/internal/app/queries"
	"staysync/internal/app/uow"
)

type Deps struct {
	UoWFactory  uow.UoWFactory
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Idempotency middleware.IdempotencyStore
	Renderer    policies.CalendarRenderer
	Logger      *slog.Logger
	Retry       middleware.RetryPolicy

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func Build(d Deps) Buses {
	if d.Encoder == nil {
		d.Encoder = outbox.JSONEventEncoder{}
	}
	if d.Retry.Logger == nil {
		d.Retry.Logger = d.Logger
	}

	commandBus := commands.NewInMemoryBus()
	blocks := &availabilityapp.BlockDatesHandler{Outbox: d.Outbox, Encoder: d.Encoder, Logger: d.Logger, Now: d.Now, NewID: d.NewID}
	commands.RegisterHandler(commandBus, blocks)
	unblock := &availabilityapp.RemoveBlockHandler{Outbox: d.Outbox, Encoder: d.Encoder, Logger: d.Logger, Now: d.Now}
	commands.RegisterHandler(commandBus, unblock)
	link := &availabilityapp.LinkExternalCalendarHandler{Outbox: d.Outbox, Encoder: d.Encoder, Now: d.Now}
	commands.RegisterHandler(commandBus, link)
	imports := &availabilityapp.ImportExternalBlocksHandler{Outbox: d.Outbox, Encoder: d.Encoder, Logger: d.Logger, Now: d.Now, NewID: d.NewID}
	commands.RegisterHandler(commandBus, imports)

	request := &bookingapp.RequestBookingHandler{Outbox: d.Outbox, Encoder: d.Encoder, Logger: d.Logger, Now: d.Now, NewID: d.NewID}
	commands.RegisterHandler(commandBus, request)
	capture := &bookingapp.CapturePaymentHandler{Outbox: d.Outbox, Encoder: d.Encoder, Logger: d.Logger, Now: d.Now, NewID: d.NewID}
	commands.RegisterHandler(commandBus, capture)
	transitions := &bookingapp.TransitionHandler{Outbox: d.Outbox, Encoder: d.Encoder, Logger: d.Logger, Now: d.Now}
	commands.RegisterHandler(commandBus, commands.HandlerFunc[bookingapp.AcceptBookingCommand, dto.Booking](transitions.Accept))
	commands.RegisterHandler(commandBus, commands.HandlerFunc[bookingapp.RejectBookingCommand, dto.Booking](transitions.Reject))
	commands.RegisterHandler(commandBus, commands.HandlerFunc[bookingapp.CancelBookingCommand, dto.Booking](transitions.Cancel))

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, &availabilityapp.GetCalendarHandler{UoWFactory: d.UoWFactory, Now: d.Now})
	queries.RegisterHandler(queryBus, &availabilityapp.CheckAvailabilityHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, &availabilityapp.ExportCalendarHandler{UoWFactory: d.UoWFactory, Renderer: d.Renderer})
	queries.RegisterHandler(queryBus, &availabilityapp.ListSyncTargetsHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, &bookingapp.GetBookingHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, &bookingapp.QuoteHandler{UoWFactory: d.UoWFactory})

	validator := middleware.NewStructValidator()
	// An anonymous caller is rejected before its payload is inspected.
	commandMiddleware := []middleware.CommandMiddleware{
		middleware.Authorization(middleware.ActorAuthorizer{}),
		middleware.Validation(validator),
	}
	if d.Idempotency != nil {
		commandMiddleware = append(commandMiddleware, middleware.Idempotency(d.Idempotency, nil))
	}
	commandMiddleware = append(commandMiddleware, middleware.Transaction(d.UoWFactory, nil, d.Retry))
	if d.Outbox != nil {
		commandMiddleware = append(commandMiddleware, middleware.OutboxFlush(d.Outbox))
	}

	return Buses{
		Commands: middleware.ChainCommands(commandBus, commandMiddleware...),
		Queries: middleware.ChainQueries(queryBus,
			middleware.QueryAuthorization(middleware.ActorAuthorizer{}),
			middleware.QueryValidation(validator),
		),
	}
}
