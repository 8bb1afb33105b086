package bootstrap

import (
	"log/slog"
	"time"

	"rentspace/internal/app/commands"
	"rentspace/internal/app/dto"
	availabilityapp "rentspace/internal/app/handlers/availability"
	bookingapp "rentspace/internal/app/handlers/booking"
	listingsapp "rentspace/internal/app/handlers/listings"
	reviewsapp "rentspace/internal/app/handlers/reviews"
	"rentspace/internal/app/middleware"
	"rentspace/internal/app/outbox"
	"rentspace/internal/app/policies"
	"rentspace/internal/app/queries"
	"rentspace/internal/app/uow"
	domainbooking "rentspace/internal/domain/booking"
)

// Deps collects the infrastructure the application layer is built on.
// Idempotency and Locker are optional; without them the matching middleware
// is left out of the command pipeline.
type Deps struct {
	UoWFactory      uow.UoWFactory
	Idempotency     middleware.IdempotencyStore
	Locker          middleware.Locker
	LockTTL         time.Duration
	Gateway         policies.PaymentGateway
	OverlapMode     domainbooking.OverlapMode
	Encoder         outbox.EventEncoder
	Clock           func() time.Time
	IDGenerator     func() string
	Metrics         policies.BookingMetrics
	DefaultCurrency string
	Logger          *slog.Logger
}

// Application is the pair of buses the transport layer talks to.
type Application struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// Build registers every handler and wraps the buses in the middleware
// pipeline: logging, validation, locking, idempotency and then the unit of
// work for commands; validation and a read-only unit for queries. Idempotency
// runs under the lock so retries sharing a key observe the first outcome.
func Build(deps Deps) Application {
	if deps.UoWFactory == nil {
		panic("bootstrap: uow factory required")
	}
	if deps.Gateway == nil {
		panic("bootstrap: payment gateway required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	encoder := deps.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	metrics := policies.MetricsOrNop(deps.Metrics)

	commandBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()

	commands.RegisterHandler[bookingapp.RequestBookingCommand, *dto.Booking](commandBus, bookingapp.RequestBookingKey, &bookingapp.RequestBookingHandler{
		UoWFactory:  deps.UoWFactory,
		Conflicts:   domainbooking.NewConflictDetector(deps.OverlapMode),
		Encoder:     encoder,
		Clock:       clock,
		IDGenerator: deps.IDGenerator,
		Metrics:     metrics,
		Logger:      logger,
	})
	commands.RegisterHandler[bookingapp.PayBookingCommand, *dto.Booking](commandBus, bookingapp.PayBookingKey, &bookingapp.PayBookingHandler{
		UoWFactory: deps.UoWFactory,
		Gateway:    deps.Gateway,
		Encoder:    encoder,
		Clock:      clock,
		Metrics:    metrics,
		Logger:     logger,
	})
	commands.RegisterHandler[bookingapp.ConfirmBookingCommand, *dto.Booking](commandBus, bookingapp.ConfirmBookingKey, &bookingapp.ConfirmBookingHandler{
		UoWFactory: deps.UoWFactory,
		Encoder:    encoder,
		Clock:      clock,
		Logger:     logger,
	})
	commands.RegisterHandler[bookingapp.CancelBookingCommand, *dto.Booking](commandBus, bookingapp.CancelBookingKey, &bookingapp.CancelBookingHandler{
		UoWFactory: deps.UoWFactory,
		Gateway:    deps.Gateway,
		Encoder:    encoder,
		Clock:      clock,
		Metrics:    metrics,
		Logger:     logger,
	})
	commands.RegisterHandler[listingsapp.CreateListingCommand, *dto.Listing](commandBus, listingsapp.CreateListingKey, &listingsapp.CreateListingHandler{
		UoWFactory:      deps.UoWFactory,
		Encoder:         encoder,
		DefaultCurrency: deps.DefaultCurrency,
		Clock:           clock,
		Logger:          logger,
	})
	commands.RegisterHandler[listingsapp.UpdateListingCommand, *dto.Listing](commandBus, listingsapp.UpdateListingKey, &listingsapp.UpdateListingHandler{
		UoWFactory: deps.UoWFactory,
		Encoder:    encoder,
		Clock:      clock,
		Logger:     logger,
	})

	calendars := &availabilityapp.ManageCalendarHandler{
		UoWFactory: deps.UoWFactory,
		Encoder:    encoder,
		Clock:      clock,
		Logger:     logger,
	}
	commands.RegisterHandler[availabilityapp.AddWindowCommand, dto.Calendar](commandBus, availabilityapp.AddWindowKey,
		commands.HandlerFunc[availabilityapp.AddWindowCommand, dto.Calendar](calendars.AddWindow))
	commands.RegisterHandler[availabilityapp.SetDayCommand, dto.Calendar](commandBus, availabilityapp.SetDayKey,
		commands.HandlerFunc[availabilityapp.SetDayCommand, dto.Calendar](calendars.SetDay))

	commands.RegisterHandler[reviewsapp.SubmitReviewCommand, dto.Review](commandBus, reviewsapp.SubmitReviewKey, &reviewsapp.SubmitReviewHandler{
		UoWFactory: deps.UoWFactory,
		Encoder:    encoder,
		Clock:      clock,
		Logger:     logger,
	})

	queries.RegisterHandler[bookingapp.MyBookingsQuery, dto.BookingCollection](queryBus, bookingapp.MyBookingsKey, &bookingapp.MyBookingsHandler{
		UoWFactory: deps.UoWFactory,
	})
	queries.RegisterHandler[bookingapp.HostBookingsQuery, dto.HostBookingCollection](queryBus, bookingapp.HostBookingsKey, &bookingapp.HostBookingsHandler{
		UoWFactory:      deps.UoWFactory,
		DefaultCurrency: deps.DefaultCurrency,
		Logger:          logger,
	})
	queries.RegisterHandler[listingsapp.GetListingQuery, dto.Listing](queryBus, listingsapp.GetListingKey, &listingsapp.GetListingHandler{
		UoWFactory: deps.UoWFactory,
		Logger:     logger,
	})
	queries.RegisterHandler[listingsapp.QuoteListingQuery, dto.Quote](queryBus, listingsapp.QuoteListingKey, &listingsapp.QuoteListingHandler{
		UoWFactory: deps.UoWFactory,
	})
	queries.RegisterHandler[availabilityapp.GetCalendarQuery, dto.Calendar](queryBus, availabilityapp.GetCalendarKey, &availabilityapp.GetCalendarHandler{
		UoWFactory: deps.UoWFactory,
	})
	queries.RegisterHandler[reviewsapp.ListListingReviewsQuery, dto.ReviewCollection](queryBus, reviewsapp.ListListingReviewsKey, &reviewsapp.ListListingReviewsHandler{
		UoWFactory: deps.UoWFactory,
	})

	validator := middleware.NewStructValidator()

	var idempotency middleware.CommandMiddleware
	if deps.Idempotency != nil {
		idempotency = middleware.Idempotency(deps.Idempotency, nil)
	}
	var locking middleware.CommandMiddleware
	if deps.Locker != nil {
		locking = middleware.Locking(deps.Locker, deps.LockTTL)
	}

	return Application{
		Commands: middleware.ChainCommands(commandBus,
			middleware.Logging(logger),
			middleware.Validation(validator),
			locking,
			idempotency,
			middleware.Transaction(deps.UoWFactory, nil),
		),
		Queries: middleware.ChainQueries(queryBus,
			middleware.QueryValidation(validator),
			middleware.QueryTransaction(deps.UoWFactory),
		),
	}
}
