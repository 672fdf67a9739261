package model

// Action is the kind of security-relevant event an activity log entry
// records
type Action string

const (
	ActionUpload      Action = "upload"
	ActionDownload    Action = "download"
	ActionShare       Action = "share"
	ActionRevoke      Action = "revoke"
	ActionDelete      Action = "delete"
	ActionLogin       Action = "login"
	ActionFailedLogin Action = "failed_login"
	ActionLock        Action = "lock"
	ActionUnlock      Action = "unlock"
)

func (a Action) Valid() bool {
	switch a {
	case ActionUpload, ActionDownload, ActionShare, ActionRevoke, ActionDelete,
		ActionLogin, ActionFailedLogin, ActionLock, ActionUnlock:
		return true
	}
	return false
}

// ActivityLogEntry is append-only. Rows are never updated or deleted and
// CreatedAt is non-decreasing in insertion order, so (created_at, id) is a
// stable sort key for pagination
type ActivityLogEntry struct {
	ID        uint   `gorm:"primaryKey;autoIncrement;index" json:"id"`
	UserEmail string `gorm:"index;not null" json:"email"`
	Action    Action `gorm:"index;not null" json:"action"`
	Metadata  string `json:"metadata"`
	CreatedAt int64  `gorm:"index;not null" json:"timestamp"` // Unix milliseconds
}
