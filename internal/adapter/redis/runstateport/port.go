package runstateport

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/core/ports/secondary"
	"gitlab.com/dutbench.net/internal/domain"
	"gitlab.com/dutbench.net/internal/static/errs"
)

var _ secondary.RunStateRepository = (*RunStateRepository)(nil)

const (
	runStateKeyPrefix = "runstate:"
	batchIndexPrefix  = "runstate:batch:"
	latestBatchKey    = "runstate:latest"
	stateExpiration   = 24 * time.Hour
)

// RunStateRepository implements the RunStateRepository interface with Redis
type RunStateRepository struct {
	redisClient *redis.Client
	logger      primary.Logger
	now         func() time.Time
}

// NewRunStateRepository creates a new Redis run state repository
func NewRunStateRepository(redisClient *redis.Client, logger primary.Logger) *RunStateRepository {
	return &RunStateRepository{
		redisClient: redisClient,
		logger:      logger,
		now:         time.Now,
	}
}

func runStateKey(batchID uuid.UUID, runName string) string {
	return fmt.Sprintf("%s%s:%s", runStateKeyPrefix, batchID, runName)
}

func batchIndexKey(batchID uuid.UUID) string {
	return fmt.Sprintf("%s%s", batchIndexPrefix, batchID)
}

// SaveRunState stores the latest state of a run with expiration
func (r *RunStateRepository) SaveRunState(ctx context.Context, batchID uuid.UUID, runName string, state domain.RunState) error {
	record := domain.RunStateRecord{
		RunName:   runName,
		State:     state,
		UpdatedAt: r.now().UTC(),
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}

	indexKey := batchIndexKey(batchID)
	_, err = r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, runStateKey(batchID, runName), recordJSON, stateExpiration)
		pipe.SAdd(ctx, indexKey, runName)
		pipe.Expire(ctx, indexKey, stateExpiration)
		pipe.Set(ctx, latestBatchKey, batchID.String(), stateExpiration)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save run state", "run", runName, "state", state, "error", err)
		return fmt.Errorf("failed to save run state: %w", err)
	}

	return nil
}

// GetRunStates returns the last known state of every run in a batch, oldest update first
func (r *RunStateRepository) GetRunStates(ctx context.Context, batchID uuid.UUID) ([]domain.RunStateRecord, error) {
	runNames, err := r.redisClient.SMembers(ctx, batchIndexKey(batchID)).Result()
	if err != nil {
		r.logger.Error("Failed to get batch run index", "batchId", batchID, "error", err)
		return nil, fmt.Errorf("failed to get batch run index: %w", err)
	}
	if len(runNames) == 0 {
		return nil, errs.ErrBatchNotFound
	}

	keys := make([]string, len(runNames))
	for i, name := range runNames {
		keys[i] = runStateKey(batchID, name)
	}

	data, err := r.redisClient.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve run states: %w", err)
	}

	return decodeRecords(data)
}

func decodeRecords(data []interface{}) ([]domain.RunStateRecord, error) {
	records := make([]domain.RunStateRecord, 0, len(data))
	for _, item := range data {
		text, ok := item.(string)
		if !ok {
			continue // expired
		}
		var record domain.RunStateRecord
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run state: %w", err)
		}
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].UpdatedAt.Equal(records[j].UpdatedAt) {
			return records[i].RunName < records[j].RunName
		}
		return records[i].UpdatedAt.Before(records[j].UpdatedAt)
	})
	return records, nil
}

// LatestBatchID returns the batch that most recently published a state
func (r *RunStateRepository) LatestBatchID(ctx context.Context) (uuid.UUID, error) {
	value, err := r.redisClient.Get(ctx, latestBatchKey).Result()
	if err != nil {
		if err == redis.Nil {
			return uuid.Nil, errs.ErrBatchNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to get latest batch: %w", err)
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid latest batch id %q: %w", value, err)
	}
	return id, nil
}
