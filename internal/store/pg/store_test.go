package pg

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/refgate/internal/domain/repository"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewFromDB(db), mock
}

var userCols = []string{"id", "email", "identity", "name", "password_hash", "referral_id", "created_at"}

func TestUsers_CreateMapsUniqueViolation(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "ana@example.com", sqlmock.AnyArg(), "Ana", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: repository.ConstraintUserEmail})

	_, err := s.Users().Create(context.Background(), repository.CreateUserInput{Email: " Ana@Example.com", Name: "Ana"})
	require.True(t, repository.IsConflictOn(err, repository.ConstraintUserEmail))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsers_CreateScansRow(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("7d3c1c1e-2f9b-4e0a-9a55-0c9f2b7b1a11", "ana@example.com", "github:1", "Ana", nil, "REF0000001", now))

	u, err := s.Users().Create(context.Background(), repository.CreateUserInput{
		Email: "ana@example.com", Identity: "github:1", Name: "Ana", ReferralCodeUsed: "REF0000001",
	})
	require.NoError(t, err)
	require.Equal(t, "github:1", u.Identity)
	require.Nil(t, u.PasswordHash)
	require.NotNil(t, u.ReferralCodeUsed)
	require.Equal(t, "REF0000001", *u.ReferralCodeUsed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsers_GetByEmailNotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("ghost@x.io").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Users().GetByEmail(context.Background(), "ghost@x.io")
	require.True(t, repository.IsNotFound(err))
}

func TestUsers_ConnectionFailureIsUnavailable(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnError(&pgconn.PgError{Code: "08006"})

	_, err := s.Users().Exists(context.Background(), "github:1", "a@x.io")
	require.True(t, repository.IsUnavailable(err))
}

func TestUsers_ListByReferralCode(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE referral_id = $1")).
		WithArgs("CODE").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("ORDER BY created_at, id LIMIT").
		WithArgs("CODE", 2, 1).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("a", "a@x.io", nil, "", nil, "CODE", now).
			AddRow("b", "b@x.io", nil, "", "hash", "CODE", now))

	total, items, err := s.Users().ListByReferralCode(context.Background(), "CODE", repository.Page{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, items, 2)
	require.NotNil(t, items[1].PasswordHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReferrals_CreateReplacesExpiredInTx(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now().UTC()
	owner := "7d3c1c1e-2f9b-4e0a-9a55-0c9f2b7b1a11"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM referrers WHERE user_id = $1 AND until_at <= $2")).
		WithArgs(owner, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO referrers").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "referrer_id", "created_at", "until_at"}).
			AddRow("r1", owner, "ABCDEFGHIJ", now, now.Add(time.Hour)))
	mock.ExpectCommit()

	ref, err := s.Referrals().Create(context.Background(), repository.CreateReferralInput{
		OwnerUserID: owner, Code: "ABCDEFGHIJ", UntilAt: now.Add(time.Hour),
	}, now)
	require.NoError(t, err)
	require.Equal(t, "ABCDEFGHIJ", ref.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReferrals_CreateActiveOwnerRollsBack(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM referrers").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO referrers").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: repository.ConstraintReferralOwner})
	mock.ExpectRollback()

	_, err := s.Referrals().Create(context.Background(), repository.CreateReferralInput{
		OwnerUserID: "u1", Code: "ABCDEFGHIJ", UntilAt: now.Add(time.Hour),
	}, now)
	require.True(t, repository.IsConflictOn(err, repository.ConstraintReferralOwner))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReferrals_DeleteNoRowsIsNotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("DELETE FROM referrers WHERE user_id").
		WithArgs("u1", "NOPE").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Referrals().Delete(context.Background(), "u1", "NOPE")
	require.True(t, repository.IsNotFound(err))
}

func TestReferrals_DeleteExpiredReturnsCodes(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("DELETE FROM referrers WHERE until_at").
		WillReturnRows(sqlmock.NewRows([]string{"referrer_id"}).AddRow("OLD1").AddRow("OLD2"))

	codes, err := s.Referrals().DeleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, []string{"OLD1", "OLD2"}, codes)
}

func TestSession_AcquireAndRelease(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM referrers WHERE referrer_id = $1 AND until_at > $2")).
		WillReturnError(sql.ErrNoRows)

	sess, err := s.Acquire(context.Background())
	require.NoError(t, err)
	_, err = sess.Referrals().GetActiveByCode(context.Background(), "X", time.Now())
	require.True(t, repository.IsNotFound(err))
	require.NoError(t, sess.Close())
}
