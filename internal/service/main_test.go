package service

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/YusovID/feedback-360-service/internal/apperrors"
	"github.com/YusovID/feedback-360-service/internal/clock"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMockDBAndTx(t *testing.T) (*sqlx.DB, *sqlx.Tx, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, smock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")
	smock.ExpectBegin()
	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)
	return sqlxDB, tx, smock
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// testNow is two days before the nomination deadline of testCycle.
var testNow = time.Date(2025, time.January, 8, 10, 0, 0, 0, time.UTC)

func testCycle() *domain.Cycle {
	return &domain.Cycle{
		ID:                 7,
		Name:               "q1-2025",
		DisplayName:        "Q1 2025",
		Year:               2025,
		Quarter:            "Q1",
		NominationStart:    date(2025, time.January, 1),
		NominationDeadline: date(2025, time.January, 10),
		FeedbackDeadline:   date(2025, time.January, 31),
		Phase:              domain.PhaseNomination,
		IsActive:           true,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// env holds the collaborators most services share. The active cycle is testCycle and
// nobody has a deadline extension unless a test overrides those expectations first.
type env struct {
	db    *sqlx.DB
	tx    *sqlx.Tx
	smock sqlmock.Sqlmock
	clock *clock.Fixed
	base  BaseService

	transactor *TransactorMock
	cycleRepo  *CycleRepositoryMock
	extensions *ExtensionRepositoryMock
	users      *UserRepositoryMock
	requests   *RequestCommandRepositoryMock
	query      *RequestQueryRepositoryMock
	notifier   *NotifierMock

	cycles *CycleServiceImpl
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, tx, smock := newMockDBAndTx(t)

	e := &env{
		db:         db,
		tx:         tx,
		smock:      smock,
		clock:      clock.NewFixed(testNow),
		transactor: new(TransactorMock),
		cycleRepo:  new(CycleRepositoryMock),
		extensions: new(ExtensionRepositoryMock),
		users:      new(UserRepositoryMock),
		requests:   new(RequestCommandRepositoryMock),
		query:      new(RequestQueryRepositoryMock),
		notifier:   new(NotifierMock),
	}

	e.base = NewBaseService(e.transactor, db, testLogger(), e.clock)
	e.cycles = NewCycleService(e.base, e.cycleRepo, e.requests, e.extensions, e.users, time.Minute, time.UTC)

	return e
}

// withActiveCycle registers the default active cycle and no extensions.
func (e *env) withActiveCycle() *env {
	e.cycleRepo.On("GetActive", mock.Anything, mock.Anything).Return(testCycle(), nil).Maybe()
	e.extensions.On("Get", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.ErrNotFound).Maybe()

	return e
}

// expectTx hands out the prepared transaction once.
func (e *env) expectTx() {
	e.transactor.On("BeginTxx", mock.Anything, (*sql.TxOptions)(nil)).Return(e.tx, nil).Once()
}

// nextTx prepares another transaction for services that open more than one.
func (e *env) nextTx(t *testing.T) {
	t.Helper()

	e.smock.ExpectBegin()
	tx, err := e.db.Beginx()
	require.NoError(t, err)

	e.tx = tx
}

func (e *env) assertExpectations(t *testing.T) {
	t.Helper()

	e.transactor.AssertExpectations(t)
	e.cycleRepo.AssertExpectations(t)
	e.extensions.AssertExpectations(t)
	e.users.AssertExpectations(t)
	e.requests.AssertExpectations(t)
	e.query.AssertExpectations(t)
	e.notifier.AssertExpectations(t)
	assert.NoError(t, e.smock.ExpectationsWereMet())
}

func requireRejection(t *testing.T, err error, code apperrors.Code) *apperrors.RejectedError {
	t.Helper()

	require.Error(t, err)

	rej, ok := apperrors.AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, code, rej.Code)

	return rej
}

func user(id int64, email, vertical, manager string) domain.User {
	return domain.User{
		ID:           id,
		Email:        email,
		FirstName:    "User",
		LastName:     email[:1],
		Vertical:     vertical,
		Designation:  "Engineer",
		ManagerEmail: manager,
		Role:         domain.RoleEmployee,
		IsActive:     true,
	}
}
