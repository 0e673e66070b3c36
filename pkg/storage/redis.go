package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
	"github.com/redis/go-redis/v9"
)

// Redis implements the Storage interface with one hash per alert and a set of
// alert IDs, all under a common key prefix.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// RedisOption customises a Redis store.
type RedisOption func(*Redis)

// WithKeyPrefix sets the key prefix (default "fareguard").
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if p := strings.Trim(prefix, ":"); p != "" {
			r.prefix = p
		}
	}
}

// NewRedis wraps an existing client and verifies connectivity.
func NewRedis(ctx context.Context, rdb *redis.Client, opts ...RedisOption) (*Redis, error) {
	r := &Redis{rdb: rdb, prefix: "fareguard"}
	for _, opt := range opts {
		opt(r)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return r, nil
}

func (r *Redis) idsKey() string            { return r.prefix + ":alerts" }
func (r *Redis) alertKey(id string) string { return r.prefix + ":alert:" + id }

func (r *Redis) CreateAlert(ctx context.Context, alert *model.Alert) error {
	if err := alert.Validate(); err != nil {
		return fmt.Errorf("validate alert: %w", err)
	}
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = now
	alert.Active = true

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.alertKey(alert.ID), alertFields(alert))
		pipe.SAdd(ctx, r.idsKey(), alert.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *Redis) GetAlert(ctx context.Context, id string) (*model.Alert, error) {
	fields, err := r.rdb.HGetAll(ctx, r.alertKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("alert %q: %w", id, ErrNotFound)
	}
	return parseAlert(fields)
}

func (r *Redis) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	return r.list(ctx, false)
}

func (r *Redis) ListActiveAlerts(ctx context.Context) ([]model.Alert, error) {
	return r.list(ctx, true)
}

func (r *Redis) list(ctx context.Context, activeOnly bool) ([]model.Alert, error) {
	ids, err := r.rdb.SMembers(ctx, r.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list alert ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.alertKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load alerts: %w", err)
	}

	alerts := make([]model.Alert, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue // id left behind by a concurrent delete
		}
		a, err := parseAlert(fields)
		if err != nil {
			return nil, err
		}
		if activeOnly && !a.Active {
			continue
		}
		alerts = append(alerts, *a)
	}
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].Date.Before(alerts[j].Date) })
	return alerts, nil
}

func (r *Redis) SaveAlert(ctx context.Context, alert *model.Alert) error {
	alert.UpdatedAt = time.Now().UTC()
	return r.updateFields(ctx, alert.ID, "save alert", map[string]any{
		"latest_price": alert.LatestPrice,
		"updated_at":   alert.UpdatedAt.Format(time.RFC3339Nano),
	})
}

func (r *Redis) UpdatePrice(ctx context.Context, id string, price int) error {
	if price <= 0 {
		return fmt.Errorf("price must be positive, got %d", price)
	}
	return r.updateFields(ctx, id, "update price", map[string]any{
		"price":      price,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (r *Redis) updateFields(ctx context.Context, id, op string, fields map[string]any) error {
	key := r.alertKey(id)
	n, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", op, id, ErrNotFound)
	}
	if err := r.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Redis) DeleteAlert(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.alertKey(id))
		pipe.SRem(ctx, r.idsKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("delete alert %q: %w", id, ErrNotFound)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func alertFields(a *model.Alert) map[string]any {
	return map[string]any{
		"id":            a.ID,
		"flight_number": a.FlightNumber,
		"origin":        a.Origin,
		"destination":   a.Destination,
		"travel_date":   a.Date.UTC().Format(time.RFC3339),
		"kind":          string(a.Kind),
		"price":         a.Price,
		"latest_price":  a.LatestPrice,
		"email":         a.Email,
		"phone":         a.Phone,
		"active":        strconv.FormatBool(a.Active),
		"created_at":    a.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":    a.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func parseAlert(f map[string]string) (*model.Alert, error) {
	a := &model.Alert{
		ID:           f["id"],
		FlightNumber: f["flight_number"],
		Origin:       f["origin"],
		Destination:  f["destination"],
		Kind:         model.AlertKind(f["kind"]),
		Email:        f["email"],
		Phone:        f["phone"],
	}

	var err error
	if a.Date, err = time.Parse(time.RFC3339, f["travel_date"]); err != nil {
		return nil, fmt.Errorf("parse alert %s travel_date: %w", a.ID, err)
	}
	if a.Price, err = strconv.Atoi(f["price"]); err != nil {
		return nil, fmt.Errorf("parse alert %s price: %w", a.ID, err)
	}
	if v := f["latest_price"]; v != "" {
		if a.LatestPrice, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("parse alert %s latest_price: %w", a.ID, err)
		}
	}
	a.Active, _ = strconv.ParseBool(f["active"])
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, f["created_at"])
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, f["updated_at"])
	return a, nil
}
