package transcode

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// JobPayload is the wire contract between the upload completion service and
// the transcode worker. The queue job ID is the mediaId itself.
type JobPayload struct {
	MediaID uuid.UUID `json:"mediaId"`
	SrcKey  string    `json:"srcKey"`
}

func MarshalJob(p JobPayload) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal transcode job: %w", err)
	}
	return raw, nil
}

func UnmarshalJob(raw []byte) (JobPayload, error) {
	var p JobPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return JobPayload{}, fmt.Errorf("unmarshal transcode job: %w", err)
	}
	if p.MediaID == uuid.Nil || p.SrcKey == "" {
		return JobPayload{}, fmt.Errorf("transcode job missing mediaId or srcKey")
	}
	return p, nil
}
