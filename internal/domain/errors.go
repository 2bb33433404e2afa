package domain

import "errors"

var (
	// ErrNotFound indicates a referenced plan, phase, mission or template is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a duplicate active plan or a duplicate mission completion.
	ErrConflict = errors.New("conflict")

	// ErrInvalidState indicates the operation is not valid for the current lifecycle state.
	ErrInvalidState = errors.New("invalid state")

	// ErrConditionParse indicates a malformed advancement rule.
	ErrConditionParse = errors.New("condition parse error")

	// ErrTemplateNotFound indicates no reminder template matches a selector.
	ErrTemplateNotFound = errors.New("reminder template not found")

	// ErrTemplateRender indicates a template references a context value that was not supplied.
	ErrTemplateRender = errors.New("reminder template render failed")

	// ErrDispatch indicates the notification transport rejected or timed out a send.
	ErrDispatch = errors.New("notification dispatch failed")

	// ErrNoTarget indicates the owning account has no deliverable notification target.
	ErrNoTarget = errors.New("no notification target")
)
