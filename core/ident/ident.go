// Package ident produces the public identifiers for requests and comments.
//
// Identifiers are a kind prefix followed by a UUIDv7. The version-7 layout
// puts the timestamp in the high bits, so ids generated later sort after
// ids generated earlier under a plain lexical sort, and the random tail
// keeps collisions negligible without any shared state.
package ident

import "github.com/gofrs/uuid/v5"

const (
	RequestPrefix = "REQ-"
	CommentPrefix = "CMT-"
)

func NewRequestID() string {
	return RequestPrefix + uuid.Must(uuid.NewV7()).String()
}

func NewCommentID() string {
	return CommentPrefix + uuid.Must(uuid.NewV7()).String()
}
