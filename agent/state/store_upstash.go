package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	contractx "github.com/flowbit-ai/intake-agent/agent/contract"
)

const (
	defaultStoreKeyPrefix = "intake:"
	maxResponseSizeBytes  = 2 << 20
)

// StoreOption customizes UpstashRedisStore.
type StoreOption func(*UpstashRedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *UpstashRedisStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

// WithTTL sets an expiry on conversation keys. The default is 0: contexts
// live until an explicit ClearContext call.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *UpstashRedisStore) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashRedisStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashRedisStore persists conversation context in Upstash Redis via
// REST. Each conversation owns two hashes: input_metadata:<id> holding
// flat metadata fields, and extracted_data:<id> holding one JSON text
// blob per stage name.
type UpstashRedisStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration

	now func() time.Time
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashRedisStore{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		keyPrefix: defaultStoreKeyPrefix,
		now:       time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return store, nil
}

func (s *UpstashRedisStore) SaveInputMetadata(ctx context.Context, conversationID string, metadata map[string]string) error {
	key, err := s.redisKey(metadataKeyPrefix, conversationID)
	if err != nil {
		return err
	}

	ts := float64(s.now().UnixNano()) / float64(time.Second)
	fields := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		fields[k] = v
	}
	fields[MetadataTimestampField] = strconv.FormatFloat(ts, 'f', 6, 64)

	cmd := []any{"HSET", key}
	for _, field := range sortedKeys(fields) {
		cmd = append(cmd, field, fields[field])
	}
	if _, err := s.exec(ctx, cmd); err != nil {
		return err
	}
	return s.maybeExpire(ctx, key)
}

func (s *UpstashRedisStore) SaveExtractedData(ctx context.Context, conversationID, stage string, data contractx.Record) error {
	if strings.TrimSpace(stage) == "" {
		return ErrEmptyStage
	}
	key, err := s.redisKey(extractedKeyPrefix, conversationID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal stage %q record: %w", stage, err)
	}

	if _, err := s.exec(ctx, []any{"HSET", key, stage, string(payload)}); err != nil {
		return err
	}
	return s.maybeExpire(ctx, key)
}

func (s *UpstashRedisStore) GetConversationContext(ctx context.Context, conversationID string) (*Context, error) {
	metaKey, err := s.redisKey(metadataKeyPrefix, conversationID)
	if err != nil {
		return nil, err
	}
	extractedKey, err := s.redisKey(extractedKeyPrefix, conversationID)
	if err != nil {
		return nil, err
	}

	rawMeta, err := s.hgetall(ctx, metaKey)
	if err != nil {
		return nil, err
	}
	metadata := make(map[string]any, len(rawMeta))
	for field, value := range rawMeta {
		if field == MetadataTimestampField {
			if ts, perr := strconv.ParseFloat(value, 64); perr == nil {
				metadata[field] = ts
				continue
			}
		}
		metadata[field] = value
	}

	rawExtracted, err := s.hgetall(ctx, extractedKey)
	if err != nil {
		return nil, err
	}
	extracted := make(map[string]any, len(rawExtracted))
	for stage, blob := range rawExtracted {
		var parsed map[string]any
		if uerr := json.Unmarshal([]byte(blob), &parsed); uerr == nil {
			extracted[stage] = parsed
			continue
		}
		// A stage value that no longer parses is surfaced as-is rather
		// than failing the whole retrieval.
		extracted[stage] = blob
	}

	return &Context{
		InputMetadata: metadata,
		ExtractedData: extracted,
	}, nil
}

func (s *UpstashRedisStore) ClearContext(ctx context.Context, conversationID string) error {
	metaKey, err := s.redisKey(metadataKeyPrefix, conversationID)
	if err != nil {
		return err
	}
	extractedKey, err := s.redisKey(extractedKeyPrefix, conversationID)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, []any{"DEL", metaKey, extractedKey})
	return err
}

func (s *UpstashRedisStore) Ping(ctx context.Context) error {
	_, err := s.exec(ctx, []any{"PING"})
	return err
}

func (s *UpstashRedisStore) hgetall(ctx context.Context, key string) (map[string]string, error) {
	resp, err := s.exec(ctx, []any{"HGETALL", key})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return map[string]string{}, nil
	}

	var flat []string
	if err := json.Unmarshal(result, &flat); err != nil {
		return nil, fmt.Errorf("decode hash for %s: %w", key, err)
	}
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("odd hash reply length for %s", key)
	}

	fields := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		fields[flat[i]] = flat[i+1]
	}
	return fields, nil
}

func (s *UpstashRedisStore) maybeExpire(ctx context.Context, key string) error {
	if s.ttl <= 0 {
		return nil
	}
	_, err := s.exec(ctx, []any{"EXPIRE", key, ttlSeconds(s.ttl)})
	return err
}

func (s *UpstashRedisStore) redisKey(prefix, conversationID string) (string, error) {
	if strings.TrimSpace(conversationID) == "" {
		return "", ErrInvalidConversation
	}
	return s.keyPrefix + prefix + ":" + conversationID, nil
}

func (s *UpstashRedisStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if s == nil {
		return nil, errors.New("nil store")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
