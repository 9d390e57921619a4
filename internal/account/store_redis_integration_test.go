//go:build integration

package account_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"vigil/internal/account"
	"vigil/internal/graph"
	"vigil/pkg/platform/sentinel"
	"vigil/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *account.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = account.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.redis.FlushAll(ctx)
	s.Require().NoError(err)
}

func blockPatch(appliedAt, expected int64) account.InterventionPatch {
	return account.InterventionPatch{
		State:             graph.AccountState{Blocked: true},
		Intervention:      "ACCOUNT_BLOCKED",
		SentAt:            appliedAt,
		AppliedAt:         appliedAt,
		UpdatedAt:         appliedAt + 5,
		HistoryEntry:      "1000|TICF_CRI|03|fraud-detected|||",
		ExpectedAppliedAt: expected,
	}
}

func (s *RedisStoreSuite) TestGetAbsentReturnsNilNil() {
	ctx := context.Background()

	rec, err := s.store.Get(ctx, uuid.NewString())
	s.Require().NoError(err)
	s.Nil(rec)
}

func (s *RedisStoreSuite) TestInterventionRoundTrip() {
	ctx := context.Background()
	userID := uuid.NewString()

	err := s.store.Apply(ctx, userID, blockPatch(1000, 0))
	s.Require().NoError(err)

	rec, err := s.store.Get(ctx, userID)
	s.Require().NoError(err)
	s.Require().NotNil(rec)

	s.True(rec.Blocked)
	s.False(rec.Suspended)
	s.Equal("ACCOUNT_BLOCKED", rec.Intervention)
	s.Equal(int64(1000), rec.SentAt)
	s.Equal(int64(1000), rec.AppliedAt)
	s.Equal(int64(1005), rec.UpdatedAt)
	s.Equal(account.AuditLevelStandard, rec.AuditLevel)
	s.Equal([]string{"1000|TICF_CRI|03|fraud-detected|||"}, rec.History)
	s.False(rec.IsAccountDeleted)
}

func (s *RedisStoreSuite) TestHistoryIsAppendOnly() {
	ctx := context.Background()
	userID := uuid.NewString()

	s.Require().NoError(s.store.Apply(ctx, userID, blockPatch(1000, 0)))

	unblock := account.InterventionPatch{
		State:             graph.AccountState{},
		Intervention:      "ACCOUNT_UNBLOCKED",
		SentAt:            2000,
		AppliedAt:         2000,
		UpdatedAt:         2000,
		HistoryEntry:      "2000|TICF_CRI|07|fraud-cleared|||",
		ExpectedAppliedAt: 1000,
	}
	s.Require().NoError(s.store.Apply(ctx, userID, unblock))

	rec, err := s.store.Get(ctx, userID)
	s.Require().NoError(err)
	s.False(rec.Blocked)
	s.Equal("ACCOUNT_UNBLOCKED", rec.Intervention)
	s.Len(rec.History, 2)
	s.Equal("1000|TICF_CRI|03|fraud-detected|||", rec.History[0])
	s.Equal("2000|TICF_CRI|07|fraud-cleared|||", rec.History[1])
}

func (s *RedisStoreSuite) TestStaleExpectedAppliedAtConflicts() {
	ctx := context.Background()
	userID := uuid.NewString()

	s.Require().NoError(s.store.Apply(ctx, userID, blockPatch(1000, 0)))

	// A second writer that read the record before the first write landed
	// still carries expected 0 and must lose.
	err := s.store.Apply(ctx, userID, blockPatch(2000, 0))
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	rec, err := s.store.Get(ctx, userID)
	s.Require().NoError(err)
	s.Equal(int64(1000), rec.AppliedAt)
	s.Len(rec.History, 1)
}

func (s *RedisStoreSuite) TestConcurrentApplySingleWinner() {
	ctx := context.Background()
	userID := uuid.NewString()

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount atomic.Int32
	var conflictCount atomic.Int32

	// All goroutines read the absent record (expected 0) and race to write.
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			err := s.store.Apply(ctx, userID, blockPatch(int64(1000+i), 0))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one write should land")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "remaining should conflict")

	rec, err := s.store.Get(ctx, userID)
	s.Require().NoError(err)
	s.Len(rec.History, 1, "only the winning write may append history")
}

func (s *RedisStoreSuite) TestUserPatchesLeaveInterventionBookkeeping() {
	ctx := context.Background()
	userID := uuid.NewString()

	forced := account.InterventionPatch{
		State:             graph.AccountState{Suspended: true, ResetPassword: true},
		Intervention:      "FRAUD_FORCED_USER_PASSWORD_RESET",
		SentAt:            1000,
		AppliedAt:         1000,
		UpdatedAt:         1000,
		HistoryEntry:      "1000|TICF_CRI|04|reset-required|||",
		ExpectedAppliedAt: 0,
	}
	s.Require().NoError(s.store.Apply(ctx, userID, forced))

	reset := account.PasswordResetPatch{
		State:             graph.AccountState{},
		UpdatedAt:         2000,
		ResetPasswordAt:   2000,
		ExpectedAppliedAt: 1000,
	}
	s.Require().NoError(s.store.Apply(ctx, userID, reset))

	rec, err := s.store.Get(ctx, userID)
	s.Require().NoError(err)
	s.False(rec.Suspended)
	s.False(rec.ResetPassword)
	s.Equal(int64(2000), rec.ResetPasswordAt)
	s.Equal("FRAUD_FORCED_USER_PASSWORD_RESET", rec.Intervention, "intervention name survives user remediation")
	s.Equal(int64(1000), rec.AppliedAt, "appliedAt tracks fraud events only")
	s.Len(rec.History, 1, "user actions do not append history")
}

func (s *RedisStoreSuite) TestMarkDeletedSetsFlagAndExpiry() {
	ctx := context.Background()
	userID := uuid.NewString()

	s.Require().NoError(s.store.Apply(ctx, userID, blockPatch(1000, 0)))
	s.Require().NoError(s.store.MarkDeleted(ctx, userID, time.Hour))

	rec, err := s.store.Get(ctx, userID)
	s.Require().NoError(err)
	s.True(rec.IsAccountDeleted)
	s.Greater(rec.DeletedAt, int64(0))
	s.True(rec.Blocked, "state flags survive deletion marking")

	ttl, err := s.redis.Client.TTL(ctx, "account:"+userID).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0), "record key should carry retention TTL")

	historyTTL, err := s.redis.Client.TTL(ctx, "account:"+userID+":history").Result()
	s.Require().NoError(err)
	s.Greater(historyTTL, time.Duration(0), "history key should carry retention TTL")
}

func (s *RedisStoreSuite) TestIdentityReprovePatch() {
	ctx := context.Background()
	userID := uuid.NewString()

	forced := account.InterventionPatch{
		State:             graph.AccountState{Suspended: true, ReproveIdentity: true},
		Intervention:      "FRAUD_FORCED_USER_IDENTITY_REVERIFICATION",
		SentAt:            1000,
		AppliedAt:         1000,
		UpdatedAt:         1000,
		HistoryEntry:      "1000|TICF_CRI|05|reprove-required|||",
		ExpectedAppliedAt: 0,
	}
	s.Require().NoError(s.store.Apply(ctx, userID, forced))

	reprove := account.IdentityReprovePatch{
		State:              graph.AccountState{},
		UpdatedAt:          3000,
		ReprovedIdentityAt: 3000,
		ExpectedAppliedAt:  1000,
	}
	s.Require().NoError(s.store.Apply(ctx, userID, reprove))

	rec, err := s.store.Get(ctx, userID)
	s.Require().NoError(err)
	s.False(rec.ReproveIdentity)
	s.Equal(int64(3000), rec.ReprovedIdentityAt)
	s.Equal(int64(3000), rec.UpdatedAt)
}
