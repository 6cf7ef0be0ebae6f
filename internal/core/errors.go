package core

import "fmt"

// Kind classifies a core failure so boundary layers can pick an
// acknowledgement shape or HTTP status from a fixed table instead of
// sniffing error text.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
	KindInternal
)

// Stable machine-readable codes carried to clients.
const (
	CodeBadPayload     = "BAD_PAYLOAD"
	CodeRoomNotFound   = "ROOM_NOT_FOUND"
	CodeRoomInactive   = "ROOM_INACTIVE"
	CodeRoomExists     = "ROOM_EXISTS"
	CodeRoomFull       = "ROOM_FULL"
	CodeServerFull     = "SERVER_FULL"
	CodeNotInRoom      = "NOT_IN_ROOM"
	CodeTargetNotFound = "TARGET_NOT_FOUND"
	CodeInvalidToken   = "INVALID_TOKEN"
	CodeInternal       = "INTERNAL"
)

// Error is the single error type crossing the core boundary.
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

func NewError(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, msg: fmt.Sprintf(format, args...)}
}

var (
	ErrRoomNotFound   = &Error{Kind: KindNotFound, Code: CodeRoomNotFound, msg: "room not found"}
	ErrRoomInactive   = &Error{Kind: KindConflict, Code: CodeRoomInactive, msg: "room is no longer active"}
	ErrRoomExists     = &Error{Kind: KindConflict, Code: CodeRoomExists, msg: "room already exists"}
	ErrRoomFull       = &Error{Kind: KindConflict, Code: CodeRoomFull, msg: "room is full"}
	ErrServerFull     = &Error{Kind: KindConflict, Code: CodeServerFull, msg: "room limit reached"}
	ErrNotInRoom      = &Error{Kind: KindConflict, Code: CodeNotInRoom, msg: "sender is not a member of this room"}
	ErrTargetNotFound = &Error{Kind: KindNotFound, Code: CodeTargetNotFound, msg: "target participant has no live connection"}
	ErrInvalidToken   = &Error{Kind: KindValidation, Code: CodeInvalidToken, msg: "reconnect token is not valid for this room"}
)

// CodeOf extracts the machine code, falling back to INTERNAL for
// anything that is not a *core.Error.
func CodeOf(err error) string {
	if ce, ok := err.(*Error); ok {
		return ce.Code
	}
	return CodeInternal
}

// KindOf mirrors CodeOf for the kind.
func KindOf(err error) Kind {
	if ce, ok := err.(*Error); ok {
		return ce.Kind
	}
	return KindInternal
}
