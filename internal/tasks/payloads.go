package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeResumeAnalyze = "resume:analyze"
)

// ResumeAnalyzePayload 描述解析一份简历所需的最小信息。
type ResumeAnalyzePayload struct {
	ResumeID      uint   `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewResumeAnalyzeTask 构造一个新的简历解析任务。
func NewResumeAnalyzeTask(id uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ResumeAnalyzePayload{
		ResumeID:      id,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumeAnalyze, payload), nil
}
