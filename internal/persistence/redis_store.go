package persistence

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/approvo/pkg/api"
)

// RedisInstanceStore is an InstanceStore backed by Redis.
// It uses a simple key structure:
//
//	<prefix>inst:<id>            => gob-encoded redisInstancePayload
//	<prefix>ver:<id>             => version counter, watched for CAS
//	<prefix>idx:all              => SET of all instance IDs
//	<prefix>idx:tpl:<template>   => SET of instance IDs for a template
//	<prefix>idx:status:<status>  => SET of instance IDs for a status
//
// The indexes are best-effort; they are always updated on Save/Update,
// and ListInstances filters against the decoded payload. Tasks and
// history are not stored in Redis; pair this store with the SQLite or
// in-memory backends for those.
type RedisInstanceStore struct {
	client *redis.Client
	prefix string
}

var _ InstanceStore = (*RedisInstanceStore)(nil)

type redisInstancePayload struct {
	ID            string
	TemplateID    string
	DocumentID    string
	DocumentAttrs map[string]string
	Title         string
	Description   string
	Priority      string
	Status        string
	CurrentStep   int
	RequestedBy   string
	StartedAt     int64
	DueAt         int64
	EndedAt       int64
	CreatedAt     int64
	UpdatedAt     int64
	Version       int64
}

// NewRedisInstanceStore creates a RedisInstanceStore.
// prefix is optional but recommended (e.g. "approvo:").
func NewRedisInstanceStore(client *redis.Client, prefix string) *RedisInstanceStore {
	if prefix == "" {
		prefix = "approvo:"
	}
	return &RedisInstanceStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisInstanceStore) keyInstance(id string) string {
	return s.prefix + "inst:" + id
}

func (s *RedisInstanceStore) keyVersion(id string) string {
	return s.prefix + "ver:" + id
}

func (s *RedisInstanceStore) keyAll() string {
	return s.prefix + "idx:all"
}

func (s *RedisInstanceStore) keyTemplate(id string) string {
	return s.prefix + "idx:tpl:" + id
}

func (s *RedisInstanceStore) keyStatus(status api.Status) string {
	return s.prefix + "idx:status:" + string(status)
}

func encodeRedisPayload(inst *api.Instance) ([]byte, error) {
	payload := redisInstancePayload{
		ID:            inst.ID,
		TemplateID:    inst.TemplateID,
		DocumentID:    inst.Document.ID,
		DocumentAttrs: inst.Document.Attributes,
		Title:         inst.Title,
		Description:   inst.Description,
		Priority:      string(inst.Priority),
		Status:        string(inst.Status),
		CurrentStep:   inst.CurrentStep,
		RequestedBy:   string(inst.RequestedBy),
		StartedAt:     encodeTime(inst.StartedAt),
		DueAt:         encodeTime(inst.DueAt),
		EndedAt:       encodeTime(inst.EndedAt),
		CreatedAt:     encodeTime(inst.CreatedAt),
		UpdatedAt:     encodeTime(inst.UpdatedAt),
		Version:       inst.Version,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRedisPayload(data []byte) (*api.Instance, error) {
	if len(data) == 0 {
		return nil, ErrInstanceNotFound
	}
	var payload redisInstancePayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return nil, err
	}

	return &api.Instance{
		ID:          payload.ID,
		TemplateID:  payload.TemplateID,
		Document:    api.DocumentRef{ID: payload.DocumentID, Attributes: payload.DocumentAttrs},
		Title:       payload.Title,
		Description: payload.Description,
		Priority:    api.Priority(payload.Priority),
		Status:      api.Status(payload.Status),
		CurrentStep: payload.CurrentStep,
		RequestedBy: api.PrincipalID(payload.RequestedBy),
		StartedAt:   decodeTime(payload.StartedAt),
		DueAt:       decodeTime(payload.DueAt),
		EndedAt:     decodeTime(payload.EndedAt),
		CreatedAt:   decodeTime(payload.CreatedAt),
		UpdatedAt:   decodeTime(payload.UpdatedAt),
		Version:     payload.Version,
	}, nil
}

func (s *RedisInstanceStore) SaveInstance(ctx context.Context, inst *api.Instance) error {
	data, err := encodeRedisPayload(inst)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.keyInstance(inst.ID), data, 0).Err(); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.keyVersion(inst.ID), inst.Version, 0).Err(); err != nil {
		return err
	}

	// Update indexes (best-effort; we don't treat index failures as fatal)
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.keyAll(), inst.ID)
	pipe.SAdd(ctx, s.keyTemplate(inst.TemplateID), inst.ID)
	pipe.SAdd(ctx, s.keyStatus(inst.Status), inst.ID)
	_, _ = pipe.Exec(ctx)

	return nil
}

func (s *RedisInstanceStore) UpdateInstance(ctx context.Context, inst *api.Instance) error {
	verKey := s.keyVersion(inst.ID)

	// WATCH on the version key gives us the compare-and-set: if any other
	// writer bumps the version between our read and the transaction, the
	// transaction aborts and we report a conflict.
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := tx.Get(ctx, verKey).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrInstanceNotFound
			}
			return err
		}
		if stored != inst.Version {
			return ErrVersionConflict
		}

		next := *inst
		next.Version = inst.Version + 1
		data, err := encodeRedisPayload(&next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.keyInstance(inst.ID), data, 0)
			pipe.Incr(ctx, verKey)
			pipe.SAdd(ctx, s.keyAll(), inst.ID)
			pipe.SAdd(ctx, s.keyTemplate(inst.TemplateID), inst.ID)
			pipe.SAdd(ctx, s.keyStatus(next.Status), inst.ID)
			return nil
		})
		return err
	}, verKey)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	if err != nil {
		return err
	}

	inst.Version++
	return nil
}

func (s *RedisInstanceStore) GetInstance(ctx context.Context, id string) (*api.Instance, error) {
	data, err := s.client.Get(ctx, s.keyInstance(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInstanceNotFound
		}
		return nil, err
	}
	return decodeRedisPayload(data)
}

func (s *RedisInstanceStore) ListInstances(ctx context.Context, filter InstanceFilter) ([]*api.Instance, error) {
	var ids []string
	var err error

	switch {
	case filter.TemplateID != "" && filter.Status != "":
		ids, err = s.client.SInter(ctx,
			s.keyTemplate(filter.TemplateID),
			s.keyStatus(filter.Status),
		).Result()
	case filter.TemplateID != "":
		ids, err = s.client.SMembers(ctx, s.keyTemplate(filter.TemplateID)).Result()
	case filter.Status != "":
		ids, err = s.client.SMembers(ctx, s.keyStatus(filter.Status)).Result()
	default:
		ids, err = s.client.SMembers(ctx, s.keyAll()).Result()
	}

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.keyInstance(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var instances []*api.Instance
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Stale index entry; the payload is authoritative.
				continue
			}
			return nil, err
		}
		inst, err := decodeRedisPayload(data)
		if err != nil {
			return nil, err
		}
		if !matchRedisInstance(inst, filter) {
			continue
		}
		instances = append(instances, inst)
	}

	sort.Slice(instances, func(i, j int) bool {
		if instances[i].CreatedAt.Equal(instances[j].CreatedAt) {
			return instances[i].ID < instances[j].ID
		}
		return instances[i].CreatedAt.After(instances[j].CreatedAt)
	})

	return pageInstances(instances, filter.Offset, filter.Limit), nil
}

// matchRedisInstance re-checks every filter field against the payload;
// index sets may contain stale status entries after transitions.
func matchRedisInstance(inst *api.Instance, filter InstanceFilter) bool {
	if filter.Status != "" && inst.Status != filter.Status {
		return false
	}
	if filter.TemplateID != "" && inst.TemplateID != filter.TemplateID {
		return false
	}
	if filter.RequestedBy != "" && inst.RequestedBy != filter.RequestedBy {
		return false
	}
	if filter.Search != "" &&
		!strings.Contains(strings.ToLower(inst.Title), strings.ToLower(filter.Search)) {
		return false
	}
	return true
}
