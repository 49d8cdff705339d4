package model

import "time"

// TransferLog is one journal entry of a finished transfer.
type TransferLog struct {
	ID              int64         `json:"id" bson:"-"`
	RequestID       string        `json:"request_id" bson:"request_id"`
	InstanceID      string        `json:"instance_id" bson:"instance_id"`
	ItemHash        uint32        `json:"item_hash" bson:"item_hash"`
	Source          string        `json:"source" bson:"source"`
	Target          string        `json:"target" bson:"target"`
	Status          TransferState `json:"status" bson:"status"` // committed or rolled_back
	ErrorMessage    string        `json:"error_message,omitempty" bson:"error_message,omitempty"`
	ExecutionTimeMs int64         `json:"execution_time_ms" bson:"execution_time_ms"`
	CreatedAt       time.Time     `json:"created_at" bson:"created_at"`
}
