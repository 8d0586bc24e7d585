package models

import "time"

const (
	RunStatusProcessing = "processing"
	RunStatusDone       = "done"
	RunStatusFailed     = "failed"
)

type ImportRun struct {
	ID        string
	Source    string
	Path      string
	Bucket    string
	Key       string
	SizeBytes int64
	StartedAt time.Time
}

type RunCounts struct {
	Records           int `bson:"records" json:"records"`
	Inserted          int `bson:"inserted" json:"inserted"`
	RejectedDuplicate int `bson:"rejected_duplicate" json:"rejected_duplicate"`
	RejectedOther     int `bson:"rejected_other" json:"rejected_other"`
	Chunks            int `bson:"chunks" json:"chunks"`
}
