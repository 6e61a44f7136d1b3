package scheduler

import (
	"encoding/json"

	"leaddesk_backend/internal/search/indexer"

	"github.com/hibiken/asynq"
)

const TaskSearchSync = "search.sync"

const TaskDiscountCleanup = "packages.discount_cleanup"

type SearchSyncPayload struct {
	Job indexer.Job `json:"job"`
}

func NewSearchSyncTask(job indexer.Job) (*asynq.Task, error) {
	data, err := json.Marshal(SearchSyncPayload{Job: job})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSearchSync, data), nil
}

func ParseSearchSyncPayload(task *asynq.Task) (SearchSyncPayload, error) {
	var payload SearchSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SearchSyncPayload{}, err
	}
	return payload, nil
}

func NewDiscountCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskDiscountCleanup, nil)
}
