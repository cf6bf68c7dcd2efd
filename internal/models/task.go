package models

import (
	"github.com/google/uuid"
)

// DownloadJob is one image of a batch: the index it will be saved under and
// the randomized URL it is fetched from.
type DownloadJob struct {
	Index int
	Seed  int
	Url   string
}

// Result is what a worker hands back for a DownloadJob.
type Result struct {
	Index int
	Url   string
	Path  string
	Err   error
}

// Report summarizes one batch run.
type Report struct {
	RunId      uuid.UUID
	Requested  int
	FirstIndex int
	Dir        string
	Completed  []string
	Failed     []Result
}

func (r Report) Succeeded() bool {
	return len(r.Failed) == 0 && len(r.Completed) == r.Requested
}
