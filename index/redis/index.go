package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/w-h-a/semcache/fault"
	"github.com/w-h-a/semcache/index"
)

type redisIndex struct {
	options index.Options
	client  *redis.Client
}

func (i *redisIndex) Save(ctx context.Context, rec index.Record) error {
	if err := index.ValidateVector(rec.Embedding, i.options.VectorSize); err != nil {
		return err
	}

	key := i.key(rec.Id)

	exists, err := i.client.Exists(ctx, key).Result()
	if err != nil {
		return fault.Wrap(fault.StoreUnavailable, "failed to check key", err)
	}
	if exists > 0 {
		return fault.Newf(fault.DuplicateKey, "record %s already exists", rec.Id)
	}

	fields := map[string]interface{}{
		"question":   rec.Question,
		"answer":     rec.Answer,
		"source":     rec.Source,
		"created_at": rec.CreatedAt.UnixMilli(),
		"embedding":  index.EncodeVector(rec.Embedding),
	}

	if len(rec.Extra) > 0 {
		extraJson, err := json.Marshal(rec.Extra)
		if err != nil {
			return fault.Wrap(fault.InvalidInput, "failed to marshal extra metadata", err)
		}
		fields["extra"] = extraJson
	}

	if err := i.client.HSet(ctx, key, fields).Err(); err != nil {
		return fault.Wrap(fault.StoreUnavailable, "failed to store record", err)
	}

	return nil
}

func (i *redisIndex) Search(ctx context.Context, vector []float32, topK int) ([]index.Candidate, error) {
	if topK < 1 {
		return nil, fault.New(fault.InvalidInput, "topK must be positive")
	}
	if err := index.ValidateVector(vector, i.options.VectorSize); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("*=>[KNN %d @embedding $vec AS vector_score]", topK)

	rsp, err := i.client.FTSearchWithArgs(ctx, i.options.Collection, query, &redis.FTSearchOptions{
		Return: []redis.FTSearchReturn{
			{FieldName: "question"},
			{FieldName: "answer"},
			{FieldName: "source"},
			{FieldName: "created_at"},
			{FieldName: "extra"},
			{FieldName: "vector_score"},
		},
		SortBy: []redis.FTSearchSortBy{
			{FieldName: "vector_score", Asc: true},
		},
		LimitOffset:    0,
		Limit:          topK,
		Params:         map[string]interface{}{"vec": index.EncodeVector(vector)},
		DialectVersion: 2,
	}).Result()
	if err != nil {
		return nil, fault.Wrap(fault.StoreUnavailable, "vector search failed", err)
	}

	candidates := make([]index.Candidate, 0, len(rsp.Docs))

	for _, doc := range rsp.Docs {
		rec := i.recordFromFields(doc.ID, doc.Fields)

		// RediSearch reports cosine distance; similarity is 1 - distance.
		distance, err := strconv.ParseFloat(doc.Fields["vector_score"], 64)
		if err != nil {
			continue
		}

		candidates = append(candidates, index.Candidate{
			Id:     rec.Id,
			Score:  1 - distance,
			Record: rec,
		})
	}

	return candidates, nil
}

func (i *redisIndex) Get(ctx context.Context, id string) (*index.Record, error) {
	fields, err := i.client.HGetAll(ctx, i.key(id)).Result()
	if err != nil {
		return nil, fault.Wrap(fault.StoreUnavailable, "failed to fetch record", err)
	}
	if len(fields) == 0 {
		return nil, fault.Newf(fault.NotFound, "record %s not found", id)
	}

	rec := i.recordFromFields(i.key(id), fields)

	if raw, ok := fields["embedding"]; ok {
		rec.Embedding = index.DecodeVector([]byte(raw))
	}

	return &rec, nil
}

func (i *redisIndex) List(ctx context.Context) ([]index.Record, error) {
	var records []index.Record

	iter := i.client.Scan(ctx, 0, i.key("*"), 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		fields, err := i.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fault.Wrap(fault.StoreUnavailable, "failed to fetch record", err)
		}
		if len(fields) == 0 {
			continue
		}

		records = append(records, i.recordFromFields(key, fields))
	}
	if err := iter.Err(); err != nil {
		return nil, fault.Wrap(fault.StoreUnavailable, "failed to scan records", err)
	}

	sort.Slice(records, func(a, b int) bool {
		return records[a].CreatedAt.Before(records[b].CreatedAt)
	})

	return records, nil
}

func (i *redisIndex) Delete(ctx context.Context, id string) error {
	deleted, err := i.client.Del(ctx, i.key(id)).Result()
	if err != nil {
		return fault.Wrap(fault.StoreUnavailable, "failed to delete record", err)
	}
	if deleted == 0 {
		return fault.Newf(fault.NotFound, "record %s not found", id)
	}
	return nil
}

func (i *redisIndex) Close() error {
	return i.client.Close()
}

func (i *redisIndex) key(id string) string {
	return "doc:" + i.options.Collection + ":" + id
}

func (i *redisIndex) recordFromFields(key string, fields map[string]string) index.Record {
	rec := index.Record{
		Id:       strings.TrimPrefix(key, i.key("")),
		Question: fields["question"],
		Answer:   fields["answer"],
		Source:   fields["source"],
	}

	if ms, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		rec.CreatedAt = time.UnixMilli(ms).UTC()
	}

	if raw, ok := fields["extra"]; ok && len(raw) > 0 {
		extra := map[string]string{}
		if err := json.Unmarshal([]byte(raw), &extra); err == nil {
			rec.Extra = extra
		}
	}

	return rec
}

func (i *redisIndex) configure() error {
	ctx := i.options.Context

	if err := i.client.FTInfo(ctx, i.options.Collection).Err(); err == nil {
		return nil
	}

	distance := i.options.Distance
	if len(distance) == 0 {
		distance = "COSINE"
	}

	return i.client.FTCreate(
		ctx,
		i.options.Collection,
		&redis.FTCreateOptions{
			OnHash: true,
			Prefix: []interface{}{i.key("")},
		},
		&redis.FieldSchema{FieldName: "question", FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{FieldName: "answer", FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{FieldName: "source", FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{FieldName: "created_at", FieldType: redis.SearchFieldTypeNumeric, Sortable: true},
		&redis.FieldSchema{
			FieldName: "embedding",
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				HNSWOptions: &redis.FTHNSWOptions{
					Type:           "FLOAT32",
					Dim:            i.options.VectorSize,
					DistanceMetric: strings.ToUpper(distance),
				},
			},
		},
	).Err()
}

func NewIndex(opts ...index.Option) index.Index {
	options := index.NewOptions(opts...)

	if len(options.Location) == 0 {
		options.Location = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     options.Location,
		Password: options.ApiKey,
	})

	if err := client.Ping(options.Context).Err(); err != nil {
		detail := "failed to ping with redis index"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	i := &redisIndex{
		options: options,
		client:  client,
	}

	if err := i.configure(); err != nil {
		detail := "failed to configure redis index"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	return i
}
