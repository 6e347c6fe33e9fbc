package models

// ProgressStage identifies where a streamed deletion currently is
type ProgressStage string

const (
	StageStarting          ProgressStage = "starting"
	StageUnmonitoring      ProgressStage = "unmonitoring"
	StageDeletingFiles     ProgressStage = "deleting_files"
	StageResettingOverseer ProgressStage = "resetting_overseerr"
	StageComplete          ProgressStage = "complete"
	StageError             ProgressStage = "error"
)

// FileProgress reports per-file progress during file deletion
type FileProgress struct {
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	FileName string `json:"fileName"`
	Status   string `json:"status"` // "deleting", "deleted", "failed"
}

// ProgressEvent is one entry in the ordered stage stream emitted while a
// deletion executes. The executor writes these to a channel; the host surface
// (SSE, logs, tests) reads them.
type ProgressEvent struct {
	Stage   ProgressStage `json:"stage"`
	Message string        `json:"message"`
	File    *FileProgress `json:"file,omitempty"`
}
