package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/pkg/codec"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"github.com/osvaldoandrade/taskdeck/pkg/persistence"

	"github.com/go-redis/redis/v8"
)

// Task layout:
//
//	{prefix}:tasks          HASH  id -> task JSON (wire form)
//	{prefix}:tasks:byname   ZSET  score 0, member "name\x00id"
//
// Equal scores make the sorted set order lexically, which gives name-then-id
// ordering for free.
type TaskRepository interface {
	persistence.TaskStorage
	Count(ctx context.Context) (int64, error)
}

type taskRedisRepo struct {
	rdb    *redis.Client
	prefix string
}

func NewTaskRepository(rdb *redis.Client, prefix string) TaskRepository {
	return &taskRedisRepo{rdb: rdb, prefix: prefixOrDefault(prefix)}
}

func (r *taskRedisRepo) keyTasksHash() string { return r.prefix + ":tasks" }
func (r *taskRedisRepo) keyByName() string    { return r.prefix + ":tasks:byname" }

func nameMember(t domain.Task) string { return t.Name + "\x00" + t.ID.String() }

func (r *taskRedisRepo) Save(ctx context.Context, task domain.Task) error {
	b, err := codec.EncodeTask(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	id := task.ID.String()

	// drop the old index entry on rename
	var stale string
	if js, err := r.rdb.HGet(ctx, r.keyTasksHash(), id).Result(); err == nil && js != "" {
		if prev, err := codec.DecodeTask([]byte(js)); err == nil && prev.Name != task.Name {
			stale = nameMember(prev)
		}
	} else if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis HGET task: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, r.keyTasksHash(), id, string(b))
	if stale != "" {
		pipe.ZRem(ctx, r.keyByName(), stale)
	}
	pipe.ZAdd(ctx, r.keyByName(), &redis.Z{Score: 0, Member: nameMember(task)})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save task: %w", err)
	}
	return nil
}

func (r *taskRedisRepo) Get(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	js, err := r.rdb.HGet(ctx, r.keyTasksHash(), id.String()).Result()
	if errors.Is(err, redis.Nil) || (err == nil && js == "") {
		return domain.Task{}, persistence.ErrNotFound
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("redis HGET task: %w", err)
	}
	return codec.DecodeTask([]byte(js))
}

func (r *taskRedisRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.Task, error) {
	page = page.Normalize()
	start := int64(page.Offset())
	stop := start + int64(page.PageSize) - 1
	members, err := r.rdb.ZRange(ctx, r.keyByName(), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ZRANGE tasks: %w", err)
	}
	out := make([]domain.Task, 0, len(members))
	if len(members) == 0 {
		return out, nil
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m[strings.LastIndexByte(m, 0)+1:]
	}
	vals, err := r.rdb.HMGet(ctx, r.keyTasksHash(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HMGET tasks: %w", err)
	}
	for i, v := range vals {
		js, ok := v.(string)
		if !ok || js == "" {
			// index entry without a body; skip rather than fail the page
			continue
		}
		t, err := codec.DecodeTask([]byte(js))
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", ids[i], err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *taskRedisRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.rdb.HLen(ctx, r.keyTasksHash()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis HLEN tasks: %w", err)
	}
	return n, nil
}

func prefixOrDefault(p string) string {
	p = strings.TrimSuffix(strings.TrimSpace(p), ":")
	if p == "" {
		return "taskdeck"
	}
	return p
}
