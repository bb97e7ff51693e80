//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	audit "rwaledger/pkg/platform/audit"
	auditpostgres "rwaledger/pkg/platform/audit/store/postgres"
	txcontext "rwaledger/pkg/platform/tx"
	"rwaledger/pkg/testutil/containers"
)

const (
	holderA = "0xf4a2d5e1A29A32F6336803b52fa349CeD34dad27"
	holderB = "0x9C28162EB3D7fF34Ac3eACa9F98cbd12D9F3CFe6"
)

type StoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditpostgres.Store
}

func TestStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = auditpostgres.New(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *StoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events", "outbox"))
}

func event(seq uint64, action audit.AuditEvent, subject, counterparty string) audit.Event {
	return audit.Event{
		Sequence:     seq,
		Timestamp:    time.Now().UTC().Truncate(time.Microsecond),
		LedgerTime:   1_700_000_000,
		Action:       string(action),
		Subject:      subject,
		Counterparty: counterparty,
		Decision:     "applied",
	}
}

func (s *StoreSuite) outboxCount() int {
	var n int
	s.Require().NoError(s.postgres.DB.QueryRow(`SELECT COUNT(*) FROM outbox`).Scan(&n))
	return n
}

func (s *StoreSuite) TestAppendAndQuery() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, event(1, audit.EventIdentitySet, holderA, "")))
	s.Require().NoError(s.store.Append(ctx, event(2, audit.EventIdentitySet, holderB, "")))
	transfer := event(3, audit.EventTransferred, holderA, holderB)
	transfer.Amount = "250"
	s.Require().NoError(s.store.Append(ctx, transfer))

	s.Run("subject query matches either side of a movement", func() {
		events, err := s.store.ListBySubject(ctx, holderB)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(uint64(2), events[0].Sequence)
		s.Equal(uint64(3), events[1].Sequence)
		s.Equal("250", events[1].Amount)
		s.Equal(audit.CategoryOperations, events[1].Category)
	})

	s.Run("recent returns the newest in sequence order", func() {
		events, err := s.store.ListRecent(ctx, 2)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(uint64(2), events[0].Sequence)
		s.Equal(uint64(3), events[1].Sequence)
	})

	s.Run("last sequence continues numbering", func() {
		seq, err := s.store.LastSequence(ctx)
		s.Require().NoError(err)
		s.Equal(uint64(3), seq)
	})

	s.Equal(3, s.outboxCount())
}

func (s *StoreSuite) TestDuplicateSequenceIsIgnored() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, event(7, audit.EventMinted, holderA, "")))
	s.Require().NoError(s.store.Append(ctx, event(7, audit.EventMinted, holderA, "")))

	events, err := s.store.ListBySubject(ctx, holderA)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *StoreSuite) TestAppendJoinsCallerTransaction() {
	ctx := context.Background()
	tx, err := s.postgres.DB.BeginTx(ctx, &sql.TxOptions{})
	s.Require().NoError(err)

	s.Require().NoError(s.store.Append(txcontext.WithTx(ctx, tx), event(1, audit.EventLockupSet, holderA, "")))
	s.Require().NoError(tx.Rollback())

	seq, err := s.store.LastSequence(ctx)
	s.Require().NoError(err)
	s.Zero(seq)
	s.Zero(s.outboxCount())
}

func (s *StoreSuite) TestEmptyJournal() {
	seq, err := s.store.LastSequence(context.Background())
	s.Require().NoError(err)
	s.Zero(seq)

	events, err := s.store.ListRecent(context.Background(), 10)
	s.Require().NoError(err)
	s.Empty(events)
}
