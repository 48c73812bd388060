package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/w-h-a/semcache/fault"
	"github.com/w-h-a/semcache/index"
	getsafe "github.com/w-h-a/semcache/util/get_safe"
)

type qdrantIndex struct {
	options index.Options
	client  *http.Client
}

func (i *qdrantIndex) Save(ctx context.Context, rec index.Record) error {
	if err := index.ValidateVector(rec.Embedding, i.options.VectorSize); err != nil {
		return err
	}

	if _, err := i.getPoint(ctx, rec.Id); err == nil {
		return fault.Newf(fault.DuplicateKey, "record %s already exists", rec.Id)
	} else if !fault.Is(err, fault.NotFound) {
		return err
	}

	payload := map[string]any{
		"question":   rec.Question,
		"answer":     rec.Answer,
		"source":     rec.Source,
		"created_at": rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	if len(rec.Extra) > 0 {
		payload["extra"] = rec.Extra
	}

	point := map[string]any{
		"id":      rec.Id,
		"vector":  rec.Embedding,
		"payload": payload,
	}

	req := map[string]any{
		"points": []map[string]any{point},
	}

	var rsp qdrantEnvelope[json.RawMessage]

	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(i.options.Collection))

	if err := i.do(ctx, http.MethodPut, path, req, &rsp); err != nil {
		return fault.Wrap(fault.StoreUnavailable, "failed to store record", err)
	}

	if !strings.EqualFold(rsp.Status.State, "ok") && len(rsp.Status.Error) > 0 {
		return fault.Wrap(fault.StoreUnavailable, "failed to store record", errors.New(rsp.Status.Error))
	}

	return nil
}

func (i *qdrantIndex) Search(ctx context.Context, vector []float32, topK int) ([]index.Candidate, error) {
	if topK < 1 {
		return nil, fault.New(fault.InvalidInput, "topK must be positive")
	}
	if err := index.ValidateVector(vector, i.options.VectorSize); err != nil {
		return nil, err
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}

	var rsp qdrantEnvelope[[]qdrantPoint]

	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(i.options.Collection))

	if err := i.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return nil, fault.Wrap(fault.StoreUnavailable, "vector search failed", err)
	}

	candidates := make([]index.Candidate, 0, len(rsp.Result))

	for _, point := range rsp.Result {
		rec := recordFromPoint(point)

		// with Cosine distance qdrant already reports similarity
		candidates = append(candidates, index.Candidate{
			Id:     point.Id,
			Score:  point.Score,
			Record: rec,
		})
	}

	return candidates, nil
}

func (i *qdrantIndex) Get(ctx context.Context, id string) (*index.Record, error) {
	point, err := i.getPoint(ctx, id)
	if err != nil {
		return nil, err
	}

	rec := recordFromPoint(*point)
	rec.Embedding = point.Vector

	return &rec, nil
}

func (i *qdrantIndex) List(ctx context.Context) ([]index.Record, error) {
	req := map[string]any{
		"limit":        1000,
		"with_payload": true,
	}

	var rsp qdrantEnvelope[qdrantScrollResult]

	path := fmt.Sprintf("/collections/%s/points/scroll", url.PathEscape(i.options.Collection))

	if err := i.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return nil, fault.Wrap(fault.StoreUnavailable, "failed to list records", err)
	}

	records := make([]index.Record, 0, len(rsp.Result.Points))
	for _, point := range rsp.Result.Points {
		records = append(records, recordFromPoint(point))
	}

	return records, nil
}

func (i *qdrantIndex) Delete(ctx context.Context, id string) error {
	if _, err := i.getPoint(ctx, id); err != nil {
		return err
	}

	req := map[string]any{
		"points": []string{id},
	}

	var rsp qdrantEnvelope[json.RawMessage]

	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", url.PathEscape(i.options.Collection))

	if err := i.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return fault.Wrap(fault.StoreUnavailable, "failed to delete record", err)
	}

	return nil
}

func (i *qdrantIndex) Close() error {
	i.client.CloseIdleConnections()
	return nil
}

func (i *qdrantIndex) getPoint(ctx context.Context, id string) (*qdrantPoint, error) {
	path := fmt.Sprintf("/collections/%s/points/%s", url.PathEscape(i.options.Collection), url.PathEscape(id))

	var rsp qdrantEnvelope[qdrantPoint]

	if err := i.do(ctx, http.MethodGet, path, nil, &rsp); err != nil {
		if strings.Contains(err.Error(), "404") {
			return nil, fault.Newf(fault.NotFound, "record %s not found", id)
		}
		return nil, fault.Wrap(fault.StoreUnavailable, "failed to fetch record", err)
	}

	return &rsp.Result, nil
}

func (i *qdrantIndex) do(ctx context.Context, method string, path string, req any, rsp any) error {
	u := i.options.Location + path

	var buf io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")

	if len(i.options.ApiKey) > 0 {
		request.Header.Set("api-key", i.options.ApiKey)
		request.Header.Set("Authorization", "Bearer "+i.options.ApiKey)
	}

	response, err := i.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("qdrant http %d: %s", response.StatusCode, string(payload))
	}

	if rsp != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, rsp); err != nil {
			return err
		}
	}

	return nil
}

func (i *qdrantIndex) configure() error {
	exists, err := i.collectionExists()
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return i.createCollection()
}

func (i *qdrantIndex) collectionExists() (bool, error) {
	path := fmt.Sprintf("/collections/%s", url.PathEscape(i.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	err := i.do(i.options.Context, http.MethodGet, path, nil, &rsp)
	if err != nil {
		if strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, err
	}

	return strings.EqualFold(rsp.Status.State, "ok"), nil
}

func (i *qdrantIndex) createCollection() error {
	distance := i.options.Distance
	if len(distance) == 0 {
		distance = "Cosine"
	}

	req := map[string]any{
		"vectors": map[string]any{
			"size":     i.options.VectorSize,
			"distance": distance,
		},
	}

	path := fmt.Sprintf("/collections/%s", url.PathEscape(i.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	if err := i.do(i.options.Context, http.MethodPut, path, req, &rsp); err != nil {
		return err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") {
		return errors.New(rsp.Status.Error)
	}

	return nil
}

func recordFromPoint(point qdrantPoint) index.Record {
	payload := point.Payload

	createdAt, _ := time.Parse(time.RFC3339Nano, getsafe.String(payload, "created_at"))

	return index.Record{
		Id:        point.Id,
		Question:  getsafe.String(payload, "question"),
		Answer:    getsafe.String(payload, "answer"),
		Source:    getsafe.String(payload, "source"),
		Extra:     getsafe.StringMap(payload, "extra"),
		CreatedAt: createdAt,
	}
}

func NewIndex(opts ...index.Option) index.Index {
	options := index.NewOptions(opts...)

	if len(options.Location) == 0 ||
		len(options.Collection) == 0 ||
		options.VectorSize == 0 {
		panic("missing location, collection, or vector size for qdrant index")
	}

	client := &http.Client{
		Timeout: 15 * time.Second,
	}

	i := &qdrantIndex{
		options: options,
		client:  client,
	}

	if err := i.configure(); err != nil {
		detail := "failed to configure qdrant index"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	return i
}
