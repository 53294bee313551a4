package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/queue"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error {
	return m.Called(ctx, ev).Error(0)
}

var (
	ts   = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	jan  = func(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }
	cols = struct{ room, booking, payment []string }{
		room:    []string{"id", "hotel_id", "room_number", "type", "price_cents", "is_available", "created_at", "updated_at"},
		booking: []string{"id", "room_id", "user_id", "check_in", "check_out", "status", "created_at", "updated_at"},
		payment: []string{"id", "booking_id", "amount_cents", "status", "created_at", "updated_at"},
	}
)

type fixture struct {
	svc  *BookingService
	mock sqlmock.Sqlmock
	pub  *mockPublisher
}

func newFixture(t *testing.T, opts BookingOptions) *fixture {
	t.Helper()
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	pub := &mockPublisher{}
	t.Cleanup(func() {
		assert.NoError(t, m.ExpectationsWereMet())
		pub.AssertExpectations(t)
		db.Close()
	})
	svc := NewBookingService(db, repository.NewRoomRepo(db), repository.NewBookingRepo(db),
		repository.NewPaymentRepo(db), pub, zap.NewNop(), opts)
	svc.now = func() time.Time { return ts }
	return &fixture{svc: svc, mock: m, pub: pub}
}

func (f *fixture) expectRoomLock(roomID string, priceCents uint64) {
	f.mock.ExpectQuery(`FROM rooms WHERE id = \? AND deleted_at IS NULL FOR UPDATE`).
		WithArgs(roomID).
		WillReturnRows(sqlmock.NewRows(cols.room).AddRow(roomID, "h1", 101, "double", priceCents, true, ts, ts))
}

func (f *fixture) expectBookedList(roomID string, stays ...[2]time.Time) {
	rows := sqlmock.NewRows(cols.booking)
	for i, s := range stays {
		rows.AddRow("existing-"+string(rune('a'+i)), roomID, "u2", s[0], s[1], "booked", ts, ts)
	}
	f.mock.ExpectQuery(`FROM bookings WHERE room_id = \? AND status = 'booked' ORDER BY check_in FOR UPDATE`).
		WithArgs(roomID).WillReturnRows(rows)
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t, BookingOptions{})
	f.mock.ExpectBegin()
	f.expectRoomLock("r1", 10000)
	f.expectBookedList("r1")
	f.mock.ExpectExec(`INSERT INTO bookings`).
		WithArgs(sqlmock.AnyArg(), "r1", "u1", jan(10), jan(12), model.BookingBooked, ts, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`INSERT INTO payments`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), uint64(10000), model.PaymentPending, ts, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`UPDATE rooms SET is_available = \?`).WithArgs(false, "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()
	f.pub.On("PublishBookingEvent", mock.Anything, mock.MatchedBy(func(ev queue.BookingEvent) bool {
		return ev.Type == queue.BookingCreated && ev.RoomID == "r1" && ev.AmountCents == 10000 && ev.PaymentStatus == "pending"
	})).Return(nil).Once()

	res, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		RoomID: "r1", UserID: "u1", CheckIn: jan(10), CheckOut: jan(12),
	})
	require.NoError(t, err)
	assert.Equal(t, model.BookingBooked, res.Booking.Status)
	assert.Equal(t, res.Booking.ID, res.Payment.BookingID)
	assert.Equal(t, uint64(10000), res.Payment.AmountCents)
	assert.Equal(t, model.PaymentPending, res.Payment.Status)
}

func TestCreateBooking_CallerSuppliedPaymentStatus(t *testing.T) {
	f := newFixture(t, BookingOptions{})
	f.mock.ExpectBegin()
	f.expectRoomLock("r1", 5000)
	f.expectBookedList("r1")
	f.mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`INSERT INTO payments`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), uint64(5000), model.PaymentCompleted, ts, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`UPDATE rooms SET is_available`).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()
	f.pub.On("PublishBookingEvent", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	res, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		RoomID: "r1", UserID: "u1", CheckIn: jan(10), CheckOut: jan(12), PaymentStatus: model.PaymentCompleted,
	})
	require.NoError(t, err, "publish failures must not fail a committed booking")
	assert.Equal(t, model.PaymentCompleted, res.Payment.Status)
}

func TestCreateBooking_OverlapIsConflict(t *testing.T) {
	cases := []struct {
		name     string
		in, out  time.Time
		conflict bool
	}{
		{"same stay", jan(10), jan(12), true},
		{"starts inside", jan(11), jan(13), true},
		{"ends inside", jan(9), jan(11), true},
		{"contains", jan(8), jan(14), true},
		{"adjacent after", jan(12), jan(14), false},
		{"adjacent before", jan(8), jan(10), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, BookingOptions{})
			f.mock.ExpectBegin()
			f.expectRoomLock("r1", 10000)
			f.expectBookedList("r1", [2]time.Time{jan(10), jan(12)})
			if tc.conflict {
				f.mock.ExpectRollback()
			} else {
				f.mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
				f.mock.ExpectExec(`INSERT INTO payments`).WillReturnResult(sqlmock.NewResult(0, 1))
				f.mock.ExpectExec(`UPDATE rooms SET is_available`).WillReturnResult(sqlmock.NewResult(0, 1))
				f.mock.ExpectCommit()
				f.pub.On("PublishBookingEvent", mock.Anything, mock.Anything).Return(nil).Once()
			}

			_, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
				RoomID: "r1", UserID: "u1", CheckIn: tc.in, CheckOut: tc.out,
			})
			if tc.conflict {
				assert.ErrorIs(t, err, ErrBookingConflict)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateBooking_PaymentFailureRollsBack(t *testing.T) {
	f := newFixture(t, BookingOptions{})
	f.mock.ExpectBegin()
	f.expectRoomLock("r1", 10000)
	f.expectBookedList("r1")
	f.mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`INSERT INTO payments`).WillReturnError(sql.ErrConnDone)
	f.mock.ExpectRollback()

	_, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		RoomID: "r1", UserID: "u1", CheckIn: jan(10), CheckOut: jan(12),
	})
	var txErr *TxError
	require.ErrorAs(t, err, &txErr)
	assert.False(t, txErr.Retryable)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestCreateBooking_LockTimeoutIsRetryable(t *testing.T) {
	f := newFixture(t, BookingOptions{TxTimeout: time.Second})
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM rooms WHERE id = \? AND deleted_at IS NULL FOR UPDATE`).
		WillReturnError(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})
	f.mock.ExpectRollback()

	_, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		RoomID: "r1", UserID: "u1", CheckIn: jan(10), CheckOut: jan(12),
	})
	var txErr *TxError
	require.ErrorAs(t, err, &txErr)
	assert.True(t, txErr.Retryable)
	assert.NotErrorIs(t, err, ErrBookingConflict)
}

func TestCreateBooking_RoomNotFound(t *testing.T) {
	f := newFixture(t, BookingOptions{})
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM rooms`).WithArgs("nope").WillReturnError(sql.ErrNoRows)
	f.mock.ExpectRollback()

	_, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		RoomID: "nope", UserID: "u1", CheckIn: jan(10), CheckOut: jan(12),
	})
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
}

func TestCreateBooking_ValidationNeverTouchesStore(t *testing.T) {
	f := newFixture(t, BookingOptions{})
	cases := map[string]CreateBookingInput{
		"check_out": {RoomID: "r1", UserID: "u1", CheckIn: jan(12), CheckOut: jan(12)},
		"room_id":   {UserID: "u1", CheckIn: jan(10), CheckOut: jan(12)},
		"check_in":  {RoomID: "r1", UserID: "u1", CheckOut: jan(12)},
		"status":    {RoomID: "r1", UserID: "u1", CheckIn: jan(10), CheckOut: jan(12), PaymentStatus: model.PaymentRefunded},
	}
	for field, in := range cases {
		_, err := f.svc.CreateBooking(context.Background(), in)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, field)
		assert.Contains(t, vErr.Fields, field)
	}
}

func (f *fixture) expectCancelReads(bookingID, userID, status string) {
	row := func() *sqlmock.Rows {
		return sqlmock.NewRows(cols.booking).AddRow(bookingID, "r1", userID, jan(10), jan(12), status, ts, ts)
	}
	f.mock.ExpectQuery(`FROM bookings WHERE id = \?$`).WithArgs(bookingID).WillReturnRows(row())
	f.expectRoomLock("r1", 10000)
	f.mock.ExpectQuery(`FROM bookings WHERE id = \? FOR UPDATE`).WithArgs(bookingID).WillReturnRows(row())
	f.mock.ExpectExec(`UPDATE bookings SET status = \?`).WithArgs(model.BookingCancelled, sqlmock.AnyArg(), bookingID).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func (f *fixture) expectRefund(bookingID string) {
	f.mock.ExpectQuery(`FROM payments WHERE booking_id = \? FOR UPDATE`).WithArgs(bookingID).
		WillReturnRows(sqlmock.NewRows(cols.payment).AddRow("p1", bookingID, 10000, "pending", ts, ts))
	f.mock.ExpectExec(`UPDATE payments SET status = \?`).WithArgs(model.PaymentRefunded, sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestCancelBooking_RefundsAndRestoresAvailability(t *testing.T) {
	f := newFixture(t, BookingOptions{RestoreAvailabilityOnCancel: true})
	f.mock.ExpectBegin()
	f.expectCancelReads("b1", "u1", "booked")
	f.expectRefund("b1")
	f.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE room_id = \? AND status = 'booked'`).WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	f.mock.ExpectExec(`UPDATE rooms SET is_available = \?`).WithArgs(true, "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()
	f.pub.On("PublishBookingEvent", mock.Anything, mock.MatchedBy(func(ev queue.BookingEvent) bool {
		return ev.Type == queue.BookingCancelled && ev.BookingID == "b1" && ev.PaymentStatus == "refunded"
	})).Return(nil).Once()

	res, err := f.svc.CancelBooking(context.Background(), CancelBookingInput{BookingID: "b1", ActorID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, res.Booking.Status)
	require.NotNil(t, res.Payment)
	assert.Equal(t, model.PaymentRefunded, res.Payment.Status)
	assert.False(t, res.AlreadyCancelled)
}

func TestCancelBooking_KeepsFlagWhileOtherBookingsRemain(t *testing.T) {
	f := newFixture(t, BookingOptions{RestoreAvailabilityOnCancel: true})
	f.mock.ExpectBegin()
	f.expectCancelReads("b1", "u1", "booked")
	f.expectRefund("b1")
	f.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	f.mock.ExpectCommit()
	f.pub.On("PublishBookingEvent", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.svc.CancelBooking(context.Background(), CancelBookingInput{BookingID: "b1", ActorID: "u1"})
	require.NoError(t, err)
}

func TestCancelBooking_AlreadyCancelled(t *testing.T) {
	f := newFixture(t, BookingOptions{})
	f.mock.ExpectBegin()
	f.expectCancelReads("b1", "u1", "cancelled")
	f.expectRefund("b1")
	f.mock.ExpectCommit()

	res, err := f.svc.CancelBooking(context.Background(), CancelBookingInput{BookingID: "b1", ActorID: "u1"})
	require.NoError(t, err)
	assert.True(t, res.AlreadyCancelled)
	assert.Equal(t, model.BookingCancelled, res.Booking.Status)
	assert.Equal(t, model.PaymentRefunded, res.Payment.Status)
}

// A second back-to-back stay on a room already flagged unavailable rewrites
// the flag with the same value; the store reports no changed rows.
func TestCreateBooking_AdjacentStayOnUnavailableRoom(t *testing.T) {
	f := newFixture(t, BookingOptions{})
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM rooms WHERE id = \? AND deleted_at IS NULL FOR UPDATE`).WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(cols.room).AddRow("r1", "h1", 101, "double", 10000, false, ts, ts))
	f.expectBookedList("r1", [2]time.Time{jan(10), jan(12)})
	f.mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`INSERT INTO payments`).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`UPDATE rooms SET is_available = \?`).WithArgs(false, "r1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectCommit()
	f.pub.On("PublishBookingEvent", mock.Anything, mock.Anything).Return(nil).Once()

	res, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		RoomID: "r1", UserID: "u1", CheckIn: jan(12), CheckOut: jan(14),
	})
	require.NoError(t, err)
	assert.Equal(t, jan(12), res.Booking.CheckIn)
}

// Cancelling again rewrites statuses that are already in place.
func TestCancelBooking_RepeatWithUnchangedRows(t *testing.T) {
	f := newFixture(t, BookingOptions{RestoreAvailabilityOnCancel: true})
	row := func() *sqlmock.Rows {
		return sqlmock.NewRows(cols.booking).AddRow("b1", "r1", "u1", jan(10), jan(12), "cancelled", ts, ts)
	}
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM bookings WHERE id = \?$`).WithArgs("b1").WillReturnRows(row())
	f.expectRoomLock("r1", 10000)
	f.mock.ExpectQuery(`FROM bookings WHERE id = \? FOR UPDATE`).WithArgs("b1").WillReturnRows(row())
	f.mock.ExpectExec(`UPDATE bookings SET status = \?`).WithArgs(model.BookingCancelled, sqlmock.AnyArg(), "b1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectQuery(`FROM payments WHERE booking_id = \? FOR UPDATE`).WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(cols.payment).AddRow("p1", "b1", 10000, "refunded", ts, ts))
	f.mock.ExpectExec(`UPDATE payments SET status = \?`).WithArgs(model.PaymentRefunded, sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	f.mock.ExpectExec(`UPDATE rooms SET is_available = \?`).WithArgs(true, "r1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectCommit()

	res, err := f.svc.CancelBooking(context.Background(), CancelBookingInput{BookingID: "b1", ActorID: "u1"})
	require.NoError(t, err)
	assert.True(t, res.AlreadyCancelled)
	require.NotNil(t, res.Payment)
	assert.Equal(t, model.PaymentRefunded, res.Payment.Status)
}

func TestCancelBooking_MissingPaymentIsTolerated(t *testing.T) {
	f := newFixture(t, BookingOptions{})
	f.mock.ExpectBegin()
	f.expectCancelReads("b1", "u1", "booked")
	f.mock.ExpectQuery(`FROM payments WHERE booking_id = \? FOR UPDATE`).WithArgs("b1").WillReturnError(sql.ErrNoRows)
	f.mock.ExpectCommit()
	f.pub.On("PublishBookingEvent", mock.Anything, mock.Anything).Return(nil).Once()

	res, err := f.svc.CancelBooking(context.Background(), CancelBookingInput{BookingID: "b1", ActorID: "u1"})
	require.NoError(t, err)
	assert.Nil(t, res.Payment)
}

func TestCancelBooking_AdminMayCancelAnyBooking(t *testing.T) {
	f := newFixture(t, BookingOptions{})
	f.mock.ExpectBegin()
	f.expectCancelReads("b1", "u1", "booked")
	f.expectRefund("b1")
	f.mock.ExpectCommit()
	f.pub.On("PublishBookingEvent", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.svc.CancelBooking(context.Background(), CancelBookingInput{BookingID: "b1", ActorID: "admin", ActorIsAdmin: true})
	require.NoError(t, err)
}

func TestCancelBooking_Forbidden(t *testing.T) {
	f := newFixture(t, BookingOptions{})
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM bookings WHERE id = \?$`).WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(cols.booking).AddRow("b1", "r1", "u1", jan(10), jan(12), "booked", ts, ts))
	f.mock.ExpectRollback()

	_, err := f.svc.CancelBooking(context.Background(), CancelBookingInput{BookingID: "b1", ActorID: "someone-else"})
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestCancelBooking_NotFound(t *testing.T) {
	f := newFixture(t, BookingOptions{})
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM bookings WHERE id = \?$`).WithArgs("b9").WillReturnError(sql.ErrNoRows)
	f.mock.ExpectRollback()

	_, err := f.svc.CancelBooking(context.Background(), CancelBookingInput{BookingID: "b9", ActorID: "u1"})
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)
}

func TestCancelBooking_RefundFailureRollsBackStatus(t *testing.T) {
	f := newFixture(t, BookingOptions{})
	f.mock.ExpectBegin()
	f.expectCancelReads("b1", "u1", "booked")
	f.mock.ExpectQuery(`FROM payments WHERE booking_id = \? FOR UPDATE`).WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(cols.payment).AddRow("p1", "b1", 10000, "pending", ts, ts))
	f.mock.ExpectExec(`UPDATE payments SET status = \?`).WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})
	f.mock.ExpectRollback()

	_, err := f.svc.CancelBooking(context.Background(), CancelBookingInput{BookingID: "b1", ActorID: "u1"})
	var txErr *TxError
	require.ErrorAs(t, err, &txErr)
	assert.True(t, txErr.Retryable)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"room_id": "is required", "check_in": "is required"}}
	assert.Equal(t, "validation failed: check_in: is required, room_id: is required", err.Error())
}
