package models

// MediaType represents the type of media (movie or show)
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeShow  MediaType = "show"
)

// MediaTypeAll is the rule filter value matching every media type
const MediaTypeAll MediaType = "all"

// Status represents the lifecycle status of a media item
type Status string

const (
	StatusMonitored       Status = "monitored"
	StatusFlagged         Status = "flagged"
	StatusPendingDeletion Status = "pending_deletion"
	StatusProtected       Status = "protected"
	StatusDeleted         Status = "deleted"
)

// DeletionAction represents what a deletion actually does to the item
type DeletionAction string

const (
	// ActionUnmonitorOnly stops tracking in the content manager, files and metadata stay
	ActionUnmonitorOnly DeletionAction = "unmonitor_only"
	// ActionDeleteFilesOnly removes the files via the content manager, metadata stays
	ActionDeleteFilesOnly DeletionAction = "delete_files_only"
	// ActionUnmonitorAndDelete does both
	ActionUnmonitorAndDelete DeletionAction = "unmonitor_and_delete"
	// ActionFullRemoval deletes the content-manager record and the local record entirely
	ActionFullRemoval DeletionAction = "full_removal"
)

// FreesSpace reports whether the action is expected to free the item's file size
func (a DeletionAction) FreesSpace() bool {
	return a != ActionUnmonitorOnly
}

// Valid reports whether a is a known deletion action
func (a DeletionAction) Valid() bool {
	switch a {
	case ActionUnmonitorOnly, ActionDeleteFilesOnly, ActionUnmonitorAndDelete, ActionFullRemoval:
		return true
	}
	return false
}

// RuleAction represents what a matched rule does to an item
type RuleAction string

const (
	RuleActionFlag   RuleAction = "flag"
	RuleActionDelete RuleAction = "delete"
	RuleActionNotify RuleAction = "notify"
)
