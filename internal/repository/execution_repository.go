package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/pkg/codec"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"github.com/osvaldoandrade/taskdeck/pkg/persistence"

	"github.com/go-redis/redis/v8"
)

const completeRetries = 5

// Execution layout:
//
//	{prefix}:executions            HASH  id -> execution JSON
//	{prefix}:executions:args       HASH  id -> arguments JSON
//	{prefix}:executions:inprog     SET   ids without an outcome
//	{prefix}:task:{id}:executions  ZSET  score invokedAt (ms), member id
type ExecutionRepository interface {
	persistence.ExecutionStorage
	CountInProgress(ctx context.Context) (int64, error)
}

type executionRedisRepo struct {
	rdb    *redis.Client
	prefix string
}

func NewExecutionRepository(rdb *redis.Client, prefix string) ExecutionRepository {
	return &executionRedisRepo{rdb: rdb, prefix: prefixOrDefault(prefix)}
}

func (r *executionRedisRepo) keyExecHash() string { return r.prefix + ":executions" }
func (r *executionRedisRepo) keyArgsHash() string { return r.prefix + ":executions:args" }
func (r *executionRedisRepo) keyInprog() string   { return r.prefix + ":executions:inprog" }
func (r *executionRedisRepo) keyByTask(taskID uuid.UUID) string {
	return fmt.Sprintf("%s:task:%s:executions", r.prefix, taskID)
}

func (r *executionRedisRepo) Create(ctx context.Context, exec domain.Execution, arguments any) error {
	b, err := codec.EncodeExecution(exec)
	if err != nil {
		return fmt.Errorf("encode execution: %w", err)
	}
	args, err := json.Marshal(arguments)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	id := exec.ID.String()

	ok, err := r.rdb.HSetNX(ctx, r.keyExecHash(), id, string(b)).Result()
	if err != nil {
		return fmt.Errorf("redis HSETNX execution: %w", err)
	}
	if !ok {
		return persistence.ErrAlreadyExists
	}

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, r.keyArgsHash(), id, string(args))
	pipe.ZAdd(ctx, r.keyByTask(exec.TaskID), &redis.Z{Score: float64(exec.InvokedAt.UnixMilli()), Member: id})
	if exec.Status() == domain.StatusInProgress {
		pipe.SAdd(ctx, r.keyInprog(), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		_ = r.rdb.HDel(ctx, r.keyExecHash(), id).Err()
		return fmt.Errorf("redis index execution: %w", err)
	}
	return nil
}

func (r *executionRedisRepo) Get(ctx context.Context, id uuid.UUID) (domain.Execution, error) {
	return r.get(ctx, r.rdb, id)
}

func (r *executionRedisRepo) get(ctx context.Context, c redis.Cmdable, id uuid.UUID) (domain.Execution, error) {
	js, err := c.HGet(ctx, r.keyExecHash(), id.String()).Result()
	if errors.Is(err, redis.Nil) || (err == nil && js == "") {
		return domain.Execution{}, persistence.ErrNotFound
	}
	if err != nil {
		return domain.Execution{}, fmt.Errorf("redis HGET execution: %w", err)
	}
	return codec.DecodeExecution([]byte(js))
}

func (r *executionRedisRepo) Arguments(ctx context.Context, id uuid.UUID) (any, error) {
	js, err := r.rdb.HGet(ctx, r.keyArgsHash(), id.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis HGET arguments: %w", err)
	}
	return codec.DecodeArguments([]byte(js))
}

func (r *executionRedisRepo) ListByTask(ctx context.Context, taskID uuid.UUID, page domain.PageRequest) ([]domain.Execution, error) {
	page = page.Normalize()
	start := int64(page.Offset())
	stop := start + int64(page.PageSize) - 1
	ids, err := r.rdb.ZRevRange(ctx, r.keyByTask(taskID), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ZREVRANGE executions: %w", err)
	}
	out := make([]domain.Execution, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	vals, err := r.rdb.HMGet(ctx, r.keyExecHash(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HMGET executions: %w", err)
	}
	for i, v := range vals {
		js, ok := v.(string)
		if !ok || js == "" {
			continue
		}
		e, err := codec.DecodeExecution([]byte(js))
		if err != nil {
			return nil, fmt.Errorf("execution %s: %w", ids[i], err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Complete is optimistic: the execution body is watched so two concurrent
// completions cannot both succeed.
func (r *executionRedisRepo) Complete(ctx context.Context, id uuid.UUID, statusReason *string, results []domain.ResultAsset) (domain.Execution, error) {
	var done domain.Execution
	txf := func(tx *redis.Tx) error {
		exec, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if exec.Status() != domain.StatusInProgress {
			return persistence.ErrAlreadyCompleted
		}
		exec.StatusReason = statusReason
		exec.Results = append([]domain.ResultAsset(nil), results...)
		b, err := codec.EncodeExecution(exec)
		if err != nil {
			return fmt.Errorf("encode execution: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.keyExecHash(), id.String(), string(b))
			if exec.Status() != domain.StatusInProgress {
				pipe.SRem(ctx, r.keyInprog(), id.String())
			}
			return nil
		})
		if err == nil {
			done = exec
		}
		return err
	}

	for i := 0; i < completeRetries; i++ {
		err := r.rdb.Watch(ctx, txf, r.keyExecHash())
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.Execution{}, err
		}
		return done, nil
	}
	return domain.Execution{}, fmt.Errorf("complete execution %s: too much contention", id)
}

func (r *executionRedisRepo) CountInProgress(ctx context.Context) (int64, error) {
	n, err := r.rdb.SCard(ctx, r.keyInprog()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis SCARD inprog: %w", err)
	}
	return n, nil
}
