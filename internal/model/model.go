// Package model defines the domain types used across the application.
package model

import "time"

// Owner is the actor whose channels, sources, and content are isolated
// from every other actor. All storage queries filter by owner.
type Owner struct {
	ID         int64
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	IsActive   bool
	CreatedAt  time.Time
}

// Channel is a publish destination.
type Channel struct {
	ID              int64
	OwnerID         int64
	TelegramID      int64
	Title           string
	Username        string
	IsActive        bool
	IntervalMinutes int
	LastPublishedAt *time.Time
	// LastAttemptAt advances on every delivery attempt, failed ones
	// included, and drives the publish cadence. LastPublishedAt only
	// records successes.
	LastAttemptAt *time.Time
	Language      string
	StylePrompt     string
	CreatedAt       time.Time
}

// SourceType identifies the kind of content origin.
type SourceType string

// Supported source types.
const (
	SourceTelegram SourceType = "telegram"
	SourceRSS      SourceType = "rss"
	SourceWebsite  SourceType = "website"
)

// Source is a content origin the system periodically ingests from.
type Source struct {
	ID              int64
	OwnerID         int64
	Type            SourceType
	Handle          string
	URL             string
	Title           string
	IsActive        bool
	IntervalMinutes int
	LastCheckedAt   *time.Time
	LastSeenItem    string
	CreatedAt       time.Time
}

// Binding links a source to a channel. Content from the source fans out
// to every channel it is actively bound to. At most one binding exists
// per (source, channel) pair; an inactive binding suppresses fan-out
// without deleting history.
type Binding struct {
	ID        int64
	SourceID  int64
	ChannelID int64
	IsActive  bool
	CreatedAt time.Time
}

// RawMessage is one ingested, not-yet-rewritten unit of content.
// Uniqueness of (owner, source, external id) is the dedup contract.
type RawMessage struct {
	ID                int64
	OwnerID           int64
	SourceID          int64
	ExternalID        string
	Text              string
	MediaURLs         []string
	ContentHash       string
	IsProcessed       bool
	ProcessedAt       *time.Time
	PublishedAtSource *time.Time
	CreatedAt         time.Time
}

// PostStatus tracks a post through the publishing pipeline.
type PostStatus string

// Post statuses. The dispatcher creates posts directly in StatusReady;
// StatusProcessing and StatusSkipped are reserved for richer moderation
// flows.
const (
	StatusRaw        PostStatus = "raw"
	StatusProcessing PostStatus = "processing"
	StatusReady      PostStatus = "ready"
	StatusPublished  PostStatus = "published"
	StatusFailed     PostStatus = "failed"
	StatusSkipped    PostStatus = "skipped"
)

// Post is one rewritten unit of content addressed to one channel.
// RawMessageID is nullable so a post survives deletion of its origin.
type Post struct {
	ID                int64
	OwnerID           int64
	ChannelID         int64
	RawMessageID      *int64
	Text              string
	MediaURLs         []string
	Status            PostStatus
	TelegramMessageID *int64
	ErrorMessage      string
	RetryCount        int
	ScheduledAt       *time.Time
	PublishedAt       *time.Time
	CreatedAt         time.Time
}

// SourceBinding pairs a binding with its target channel, as returned
// when resolving fan-out targets for a source.
type SourceBinding struct {
	Binding Binding
	Channel Channel
}

// ChannelBinding pairs a binding with its origin source, for read-only
// listing of what feeds a channel.
type ChannelBinding struct {
	Binding Binding
	Source  Source
}
