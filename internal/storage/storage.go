// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"newsrelay/internal/model"
)

// SourceFilter narrows ListSources. Nil fields match everything.
type SourceFilter struct {
	Type   *model.SourceType
	Active *bool
}

// PostFilter narrows ListPosts. Zero fields match everything.
type PostFilter struct {
	ChannelID int64
	Status    model.PostStatus
	Limit     int
}

// Storage is the interface for all persistence operations. Entity
// getters take the owner ID alongside the entity ID so data stays
// isolated per owner.
type Storage interface {
	GetOrCreateOwner(ctx context.Context, owner *model.Owner) error

	CreateChannel(ctx context.Context, ch *model.Channel) error
	GetChannel(ctx context.Context, id, ownerID int64) (*model.Channel, error)
	GetChannelByID(ctx context.Context, id int64) (*model.Channel, error)
	ListChannels(ctx context.Context, ownerID int64) ([]model.Channel, error)
	ListDueChannels(ctx context.Context) ([]model.Channel, error)
	UpdateChannel(ctx context.Context, ch *model.Channel) error
	DeleteChannel(ctx context.Context, id, ownerID int64) error

	CreateSource(ctx context.Context, src *model.Source) error
	GetSource(ctx context.Context, id, ownerID int64) (*model.Source, error)
	ListSources(ctx context.Context, ownerID int64, f SourceFilter) ([]model.Source, error)
	ListDueSources(ctx context.Context) ([]model.Source, error)
	UpdateSource(ctx context.Context, src *model.Source) error
	DeleteSource(ctx context.Context, id, ownerID int64) error

	CreateBinding(ctx context.Context, b *model.Binding) error
	UpdateBinding(ctx context.Context, b *model.Binding) error
	DeleteBinding(ctx context.Context, sourceID, channelID int64) error
	BindingsForSource(ctx context.Context, sourceID int64) ([]model.SourceBinding, error)
	BindingsForChannel(ctx context.Context, channelID int64) ([]model.ChannelBinding, error)

	MessageExists(ctx context.Context, sourceID int64, externalID string, ownerID int64) (bool, error)
	CreateRawMessage(ctx context.Context, msg *model.RawMessage) error
	GetRawMessage(ctx context.Context, id, ownerID int64) (*model.RawMessage, error)
	ListUnprocessed(ctx context.Context, limit int) ([]model.RawMessage, error)
	MarkProcessed(ctx context.Context, id int64) error

	CreatePost(ctx context.Context, p *model.Post) error
	GetPost(ctx context.Context, id, ownerID int64) (*model.Post, error)
	ListPosts(ctx context.Context, ownerID int64, f PostFilter) ([]model.Post, error)
	NextReadyPost(ctx context.Context, channelID int64) (*model.Post, error)
	MarkPublished(ctx context.Context, postID int64, telegramMessageID int64) error
	MarkFailed(ctx context.Context, postID int64, errorMessage string) error

	Close() error
}
