package drawer

import "github.com/pkg/errors"

var (
	ErrPipelineMustBeSet = errors.New("pipeline must be set")
	ErrFilterNotFound    = errors.New("filter not found in graph")
)
