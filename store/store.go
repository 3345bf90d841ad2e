// Package store persists the correspondence between Rocket.Chat records and the
// Matrix entities created for them, plus the room membership facts gathered
// while importing.
package store

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which kind of source record a mapping belongs to. The
// numeric values are persisted and must not change.
type Kind int

const (
	KindUser    Kind = 0
	KindRoom    Kind = 1
	KindMessage Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindRoom:
		return "room"
	case KindMessage:
		return "message"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IdMapping links a source record to the Matrix entity created for it.
//
// TargetID stays empty until creation succeeds and is never changed once set.
// Credential is only populated for KindUser and holds the access token used
// to act as that user.
type IdMapping struct {
	SourceID   string
	Kind       Kind
	TargetID   string
	Credential string
}

// Store is the contract the importers and reconciliation passes depend on.
type Store interface {
	GetMapping(ctx context.Context, sourceID string, kind Kind) (*IdMapping, error)
	Save(ctx context.Context, mapping IdMapping) error
	GetByTargetID(ctx context.Context, targetID string) (*IdMapping, error)
	GetUserByName(ctx context.Context, name string) (*IdMapping, error)
	ListByKind(ctx context.Context, kind Kind) ([]IdMapping, error)
	CreateMembership(ctx context.Context, sourceRoomID, sourceUserID string) error
	ListMembers(ctx context.Context, sourceRoomID string) ([]string, error)
}

// ConflictError is returned by Save when a mapping already exists for the same
// source id and kind with a different target id.
type ConflictError struct {
	SourceID       string
	Kind           Kind
	ExistingTarget string
	NewTarget      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("mapping for %s %s already points to %s, refusing to overwrite with %s",
		e.Kind, e.SourceID, e.ExistingTarget, e.NewTarget)
}

// IsConflict reports whether err is, or wraps, a *ConflictError.
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}
