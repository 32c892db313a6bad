package signal

import (
	"errors"
	"fmt"

	"github.com/dkeye/Lounge/internal/app/orch"
	"github.com/dkeye/Lounge/internal/core"
)

var errMalformed = errors.New("malformed event")

// payloadOf decodes env into T, marking failures as malformed.
func payloadOf[T any](env envelope) (T, error) {
	p, err := decodePayload[T](env.Payload)
	if err != nil {
		return p, fmt.Errorf("%w: %w", errMalformed, err)
	}
	return p, nil
}

// malformed folds an identity mismatch into the malformed class.
func malformed(err error) error {
	if errors.Is(err, orch.ErrIdentityMismatch) {
		return fmt.Errorf("%w: %w", errMalformed, err)
	}
	return err
}

func (ctl *SignalWSController) handlePing(tid core.TransportID) {
	ctl.Orch.Ping(tid)
}
