package account

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"vigil/internal/graph"
	"vigil/pkg/platform/sentinel"
)

const (
	recordKeyPrefix  = "account:"
	historyKeySuffix = ":history"
)

// applyScript performs the conditional partial update atomically. The write
// only proceeds when the stored appliedAt still equals the value the caller
// read; otherwise a concurrent event won the race and the script returns 0.
var applyScript = redis.NewScript(`
local current = redis.call("HGET", KEYS[1], "appliedAt")
if current == false then current = "0" end
if current ~= ARGV[1] then return 0 end
for i = 3, #ARGV, 2 do
  redis.call("HSET", KEYS[1], ARGV[i], ARGV[i+1])
end
redis.call("HSETNX", KEYS[1], "auditLevel", "standard")
if ARGV[2] ~= "" then
  redis.call("RPUSH", KEYS[2], ARGV[2])
end
return 1
`)

// RedisStore is the production Store: one hash per account plus a list for
// the append-only history trail.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func recordKey(userID string) string  { return recordKeyPrefix + userID }
func historyKey(userID string) string { return recordKey(userID) + historyKeySuffix }

func (s *RedisStore) Get(ctx context.Context, userID string) (*Record, error) {
	pipe := s.client.Pipeline()
	hashCmd := pipe.HGetAll(ctx, recordKey(userID))
	historyCmd := pipe.LRange(ctx, historyKey(userID), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read account record: %w", err)
	}

	fields := hashCmd.Val()
	if len(fields) == 0 {
		return nil, nil
	}

	r := &Record{
		Blocked:            fields["blocked"] == "1",
		Suspended:          fields["suspended"] == "1",
		ResetPassword:      fields["resetPassword"] == "1",
		ReproveIdentity:    fields["reproveIdentity"] == "1",
		Intervention:       fields["intervention"],
		IsAccountDeleted:   fields["isAccountDeleted"] == "1",
		AuditLevel:         fields["auditLevel"],
		SentAt:             parseMillis(fields["sentAt"]),
		AppliedAt:          parseMillis(fields["appliedAt"]),
		UpdatedAt:          parseMillis(fields["updatedAt"]),
		DeletedAt:          parseMillis(fields["deletedAt"]),
		ResetPasswordAt:    parseMillis(fields["resetPasswordAt"]),
		ReprovedIdentityAt: parseMillis(fields["reprovedIdentityAt"]),
		History:            historyCmd.Val(),
	}
	if r.AuditLevel == "" {
		r.AuditLevel = AuditLevelStandard
	}
	return r, nil
}

func (s *RedisStore) Apply(ctx context.Context, userID string, patch Patch) error {
	var (
		expected     int64
		historyEntry string
		fields       []string
	)

	switch p := patch.(type) {
	case InterventionPatch:
		expected = p.ExpectedAppliedAt
		historyEntry = p.HistoryEntry
		fields = append(stateFields(p.State),
			"intervention", p.Intervention,
			"sentAt", strconv.FormatInt(p.SentAt, 10),
			"appliedAt", strconv.FormatInt(p.AppliedAt, 10),
			"updatedAt", strconv.FormatInt(p.UpdatedAt, 10),
		)
	case PasswordResetPatch:
		expected = p.ExpectedAppliedAt
		fields = append(stateFields(p.State),
			"updatedAt", strconv.FormatInt(p.UpdatedAt, 10),
			"resetPasswordAt", strconv.FormatInt(p.ResetPasswordAt, 10),
		)
	case IdentityReprovePatch:
		expected = p.ExpectedAppliedAt
		fields = append(stateFields(p.State),
			"updatedAt", strconv.FormatInt(p.UpdatedAt, 10),
			"reprovedIdentityAt", strconv.FormatInt(p.ReprovedIdentityAt, 10),
		)
	default:
		return fmt.Errorf("unknown patch type %T", patch)
	}

	args := make([]any, 0, len(fields)+2)
	args = append(args, strconv.FormatInt(expected, 10), historyEntry)
	for _, f := range fields {
		args = append(args, f)
	}

	ok, err := applyScript.Run(ctx, s.client,
		[]string{recordKey(userID), historyKey(userID)}, args...).Int()
	if err != nil {
		return fmt.Errorf("apply account patch: %w", err)
	}
	if ok == 0 {
		return fmt.Errorf("applied-at moved from %d: %w", expected, sentinel.ErrConflict)
	}
	return nil
}

func (s *RedisStore) MarkDeleted(ctx context.Context, userID string, retention time.Duration) error {
	now := time.Now().UnixMilli()
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, recordKey(userID),
		"isAccountDeleted", "1",
		"deletedAt", strconv.FormatInt(now, 10),
	)
	pipe.Expire(ctx, recordKey(userID), retention)
	pipe.Expire(ctx, historyKey(userID), retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mark account deleted: %w", err)
	}
	return nil
}

func stateFields(s graph.AccountState) []string {
	return []string{
		"blocked", boolField(s.Blocked),
		"suspended", boolField(s.Suspended),
		"resetPassword", boolField(s.ResetPassword),
		"reproveIdentity", boolField(s.ReproveIdentity),
	}
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseMillis(s string) int64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
