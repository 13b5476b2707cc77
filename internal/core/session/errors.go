package session

import "errors"

var (
	// ErrUnknownSession は GetOrCreate される前のセッションに追記しようとした場合のエラー
	ErrUnknownSession = errors.New("unknown session")

	// ErrEmptySessionID はセッションIDが空の場合のエラー
	ErrEmptySessionID = errors.New("session id is required")

	// ErrInvalidRole は未知のロールで追記しようとした場合のエラー
	ErrInvalidRole = errors.New("invalid role")
)
