package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskAutoReplyProcess = "autoreply.process"

type AutoReplyPayload struct {
	ClientMessageID string `json:"clientMessageId"`
}

func NewAutoReplyTask(clientMessageID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(AutoReplyPayload{ClientMessageID: clientMessageID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAutoReplyProcess, data), nil
}

func ParseAutoReplyPayload(task *asynq.Task) (uuid.UUID, error) {
	var payload AutoReplyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(payload.ClientMessageID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid client message id: %w", err)
	}
	return id, nil
}

// autoReplyTaskID keeps one pending retry per client message.
func autoReplyTaskID(clientMessageID uuid.UUID) string {
	return TaskAutoReplyProcess + ":" + clientMessageID.String()
}
