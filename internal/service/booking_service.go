// Package service holds the booking transaction manager: the create and
// cancel workflows that must run atomically against the relational store.
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/database"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/queue"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

// EventPublisher receives booking events after a transaction commits.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error
}

// BookingOptions tunes the booking workflows.
type BookingOptions struct {
	// TxTimeout bounds a whole transaction, lock waits included.  Zero
	// leaves the caller's context untouched.
	TxTimeout time.Duration
	// RestoreAvailabilityOnCancel recomputes Room.is_available inside the
	// cancel transaction.
	RestoreAvailabilityOnCancel bool
}

// BookingService creates and cancels bookings.  Both workflows run in one
// transaction that first locks the room row, so writers for the same room
// are serialized while different rooms proceed in parallel.
type BookingService struct {
	db       *sql.DB
	rooms    *repository.RoomRepo
	bookings *repository.BookingRepo
	payments *repository.PaymentRepo
	events   EventPublisher
	log      *zap.Logger
	opts     BookingOptions
	now      func() time.Time
}

func NewBookingService(db *sql.DB, rooms *repository.RoomRepo, bookings *repository.BookingRepo,
	payments *repository.PaymentRepo, events EventPublisher, log *zap.Logger, opts BookingOptions) *BookingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingService{
		db:       db,
		rooms:    rooms,
		bookings: bookings,
		payments: payments,
		events:   events,
		log:      log.Named("booking"),
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type CreateBookingInput struct {
	RoomID        string
	UserID        string
	CheckIn       time.Time
	CheckOut      time.Time
	PaymentStatus model.PaymentStatus // empty means pending
}

type CreateBookingResult struct {
	Booking model.Booking `json:"booking"`
	Payment model.Payment `json:"payment"`
}

func (in CreateBookingInput) validate() error {
	fields := map[string]string{}
	if in.RoomID == "" {
		fields["room_id"] = "is required"
	}
	if in.UserID == "" {
		fields["user_id"] = "is required"
	}
	if in.CheckIn.IsZero() {
		fields["check_in"] = "is required"
	}
	if in.CheckOut.IsZero() {
		fields["check_out"] = "is required"
	}
	if !in.CheckIn.IsZero() && !in.CheckOut.IsZero() && !in.CheckIn.Before(in.CheckOut) {
		fields["check_out"] = "must be after check_in"
	}
	if in.PaymentStatus != "" && (!in.PaymentStatus.Valid() || in.PaymentStatus == model.PaymentRefunded) {
		fields["status"] = "must be pending or completed"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// CreateBooking books a room for [CheckIn, CheckOut) and records its
// payment.  It fails with repository.ErrRoomNotFound, ErrBookingConflict,
// *ValidationError or *TxError; on any failure nothing is written.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*CreateBookingResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = model.PaymentPending
	}
	ctx, cancel := s.txContext(ctx)
	defer cancel()

	now := s.now().Truncate(time.Second)
	res := &CreateBookingResult{}
	err := database.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		room, err := s.rooms.GetByIDForUpdateTx(ctx, tx, in.RoomID)
		if err != nil {
			return err
		}
		active, err := s.bookings.ListBookedByRoomForUpdateTx(ctx, tx, room.ID)
		if err != nil {
			return err
		}
		for _, b := range active {
			if b.OverlapsRange(in.CheckIn, in.CheckOut) {
				return ErrBookingConflict
			}
		}

		res.Booking = model.Booking{
			ID:        uuid.NewString(),
			RoomID:    room.ID,
			UserID:    in.UserID,
			CheckIn:   in.CheckIn.UTC(),
			CheckOut:  in.CheckOut.UTC(),
			Status:    model.BookingBooked,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.bookings.CreateTx(ctx, tx, &res.Booking); err != nil {
			return err
		}
		res.Payment = model.Payment{
			ID:          uuid.NewString(),
			BookingID:   res.Booking.ID,
			AmountCents: room.PriceCents,
			Status:      in.PaymentStatus,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.payments.CreateTx(ctx, tx, &res.Payment); err != nil {
			return err
		}
		return s.rooms.SetAvailabilityTx(ctx, tx, room.ID, false)
	})
	if err != nil {
		return nil, s.classify("create booking", err)
	}

	s.log.Info("booking created",
		zap.String("booking_id", res.Booking.ID),
		zap.String("room_id", res.Booking.RoomID),
		zap.String("user_id", res.Booking.UserID))
	s.publish(ctx, queue.BookingCreated, res.Booking, &res.Payment)
	return res, nil
}

type CancelBookingInput struct {
	BookingID    string
	ActorID      string
	ActorIsAdmin bool
}

// BookingDetail is a booking with its payment, if one exists.
type BookingDetail struct {
	Booking model.Booking  `json:"booking"`
	Payment *model.Payment `json:"payment,omitempty"`
}

type CancelBookingResult struct {
	BookingDetail
	// AlreadyCancelled is set when the booking was cancelled before this call.
	AlreadyCancelled bool `json:"-"`
}

// CancelBooking moves a booking to cancelled and its payment, if any, to
// refunded in a single transaction.  Cancelling a cancelled booking is not
// an error.  Only the booking's owner or an admin may cancel it; others get
// repository.ErrForbidden.
func (s *BookingService) CancelBooking(ctx context.Context, in CancelBookingInput) (*CancelBookingResult, error) {
	if in.BookingID == "" {
		return nil, &ValidationError{Fields: map[string]string{"booking_id": "is required"}}
	}
	ctx, cancel := s.txContext(ctx)
	defer cancel()

	res := &CancelBookingResult{}
	err := database.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		// Unlocked read to learn the room; the room lock is taken before the
		// booking lock, matching CreateBooking's order.
		b, err := s.bookings.GetByIDTx(ctx, tx, in.BookingID)
		if err != nil {
			return err
		}
		if !in.ActorIsAdmin && b.UserID != in.ActorID {
			return repository.ErrForbidden
		}
		roomLocked := true
		if _, err := s.rooms.GetByIDForUpdateTx(ctx, tx, b.RoomID); err != nil {
			if !errors.Is(err, repository.ErrRoomNotFound) {
				return err
			}
			roomLocked = false // room was removed from the catalog
		}
		if b, err = s.bookings.GetByIDForUpdateTx(ctx, tx, in.BookingID); err != nil {
			return err
		}
		res.AlreadyCancelled = b.Status == model.BookingCancelled
		if err := s.bookings.UpdateStatusTx(ctx, tx, b.ID, model.BookingCancelled); err != nil {
			return err
		}
		b.Status = model.BookingCancelled
		res.Booking = *b

		p, err := s.payments.GetByBookingIDForUpdateTx(ctx, tx, b.ID)
		switch {
		case errors.Is(err, repository.ErrPaymentNotFound):
		case err != nil:
			return err
		default:
			if err := s.payments.UpdateStatusTx(ctx, tx, p.ID, model.PaymentRefunded); err != nil {
				return err
			}
			p.Status = model.PaymentRefunded
			res.Payment = p
		}

		if s.opts.RestoreAvailabilityOnCancel && roomLocked {
			n, err := s.bookings.CountBookedByRoomTx(ctx, tx, b.RoomID)
			if err != nil {
				return err
			}
			if n == 0 {
				return s.rooms.SetAvailabilityTx(ctx, tx, b.RoomID, true)
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.classify("cancel booking", err)
	}

	if !res.AlreadyCancelled {
		s.log.Info("booking cancelled",
			zap.String("booking_id", res.Booking.ID),
			zap.String("actor_id", in.ActorID))
		s.publish(ctx, queue.BookingCancelled, res.Booking, res.Payment)
	}
	return res, nil
}

// GetBooking returns a booking with its payment.  Non-admin actors may only
// read their own bookings.
func (s *BookingService) GetBooking(ctx context.Context, id, actorID string, actorIsAdmin bool) (*BookingDetail, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actorIsAdmin && b.UserID != actorID {
		return nil, repository.ErrForbidden
	}
	res := &BookingDetail{Booking: *b}
	p, err := s.payments.GetByBookingID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrPaymentNotFound):
	case err != nil:
		return nil, err
	default:
		res.Payment = p
	}
	return res, nil
}

// ListBookings returns the bookings made by userID.
func (s *BookingService) ListBookings(ctx context.Context, userID string) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

func (s *BookingService) txContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.TxTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.TxTimeout)
	}
	return context.WithCancel(ctx)
}

// classify passes business outcomes through and wraps everything else in
// a TxError.
func (s *BookingService) classify(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrRoomNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrForbidden),
		errors.Is(err, ErrBookingConflict):
		return err
	}
	txErr := &TxError{Op: op, Err: err, Retryable: database.IsRetryable(err)}
	s.log.Error("transaction rolled back", zap.String("op", op), zap.Bool("retryable", txErr.Retryable), zap.Error(err))
	return txErr
}

// publish is best effort: the booking is already committed.
func (s *BookingService) publish(ctx context.Context, typ string, b model.Booking, p *model.Payment) {
	if s.events == nil {
		return
	}
	ev := queue.BookingEvent{
		Type:       typ,
		BookingID:  b.ID,
		RoomID:     b.RoomID,
		UserID:     b.UserID,
		CheckIn:    b.CheckIn,
		CheckOut:   b.CheckOut,
		OccurredAt: s.now(),
	}
	if p != nil {
		ev.AmountCents = p.AmountCents
		ev.PaymentStatus = string(p.Status)
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.events.PublishBookingEvent(pubCtx, ev); err != nil {
		s.log.Warn("publish booking event failed", zap.String("type", typ), zap.String("booking_id", b.ID), zap.Error(err))
	}
}
