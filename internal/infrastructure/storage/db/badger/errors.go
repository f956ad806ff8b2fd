package dbbadger

import "errors"

var (
	// ErrAccountAlreadyExists ...
	ErrAccountAlreadyExists = errors.New("account already exists")
	// ErrFlowAlreadyExists ...
	ErrFlowAlreadyExists = errors.New("flow already exists")
	// ErrContactAlreadyExists ...
	ErrContactAlreadyExists = errors.New("contact already exists")
)
