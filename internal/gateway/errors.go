package gateway

import "errors"

var (
	// ErrEngineUnavailable means no owner loop is accepting commands.
	ErrEngineUnavailable = errors.New("browser engine unavailable")

	// ErrAwaitTimeout means no matching result arrived within the
	// deadline. The command may still execute later; its result will be
	// dropped.
	ErrAwaitTimeout = errors.New("timeout waiting for command result")

	// ErrStartupFailed means the engine could not be constructed within
	// the configured attempts.
	ErrStartupFailed = errors.New("engine failed to start")
)
