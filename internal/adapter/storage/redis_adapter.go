package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vhoang/agritrace/internal/core/domain"
)

const (
	eventChannel      = "agritrace:events"
	balanceKeyPrefix  = "balance:"
	blockedRecipients = "blocked_recipients"
)

// transferScript credits a recipient's balance unless the recipient is on
// the blocked set. Returns 1 on success, 0 when the recipient cannot
// receive.
var transferScript = redis.NewScript(`
local recipient = ARGV[1]
local amount = tonumber(ARGV[2])

if redis.call('SISMEMBER', KEYS[2], recipient) == 1 then
	return 0
end

redis.call('INCRBY', KEYS[1], amount)
return 1
`)

// RedisAdapter publishes ledger notifications and implements the push
// payment primitive over per-address balances.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

// Publish fans a notification out on the event channel as JSON.
func (r *RedisAdapter) Publish(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := r.client.Publish(ctx, eventChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// ErrRecipientBlocked is the push failure that drives the ledger's
// pending-credit fallback.
var ErrRecipientBlocked = errors.New("recipient cannot receive transfers")

// Transfer pushes amount to the recipient's balance atomically. Fails
// without moving anything when the recipient is blocked.
func (r *RedisAdapter) Transfer(ctx context.Context, recipient string, amount int64) error {
	keys := []string{balanceKeyPrefix + recipient, blockedRecipients}
	result, err := transferScript.Run(ctx, r.client, keys, recipient, amount).Int()
	if err != nil {
		return fmt.Errorf("run transfer script: %w", err)
	}
	if result != 1 {
		return ErrRecipientBlocked
	}
	return nil
}

// Balance reads a recipient's accumulated balance.
func (r *RedisAdapter) Balance(ctx context.Context, address string) (int64, error) {
	v, err := r.client.Get(ctx, balanceKeyPrefix+address).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return v, nil
}

// BlockRecipient marks an address as unable to receive pushes.
func (r *RedisAdapter) BlockRecipient(ctx context.Context, address string) error {
	return r.client.SAdd(ctx, blockedRecipients, address).Err()
}

// UnblockRecipient re-enables pushes to an address.
func (r *RedisAdapter) UnblockRecipient(ctx context.Context, address string) error {
	return r.client.SRem(ctx, blockedRecipients, address).Err()
}
