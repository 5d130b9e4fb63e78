package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// AnalysisCreatedMessage announces that an analysis snapshot was written.
// The retention worker consumes these to prune each owner's history.
type AnalysisCreatedMessage struct {
	AnalysisID string    `json:"analysis_id"`
	Owner      string    `json:"owner"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewAnalysisCreatedMessage(analysisID, owner string, createdAt time.Time) *AnalysisCreatedMessage {
	return &AnalysisCreatedMessage{
		AnalysisID: analysisID,
		Owner:      owner,
		CreatedAt:  createdAt,
	}
}

func (m *AnalysisCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AnalysisCreatedMessageFromJSON(data []byte) (*AnalysisCreatedMessage, error) {
	var m AnalysisCreatedMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal analysis message: %w", err)
	}
	if m.AnalysisID == "" || m.Owner == "" {
		return nil, fmt.Errorf("analysis message missing required fields")
	}
	return &m, nil
}
