package cli

import (
	"errors"

	"github.com/carelink/signal-relay/internal/probe"
)

// wrap tags err with the failing operation unless it already carries one.
func wrap(op string, err error) error {
	var perr *probe.Error
	if errors.As(err, &perr) {
		return err
	}
	return probe.NewError(op, err)
}
