package nutclient

import (
	"errors"
	"fmt"

	"github.com/leekd123/nutify/internal/topology"
)

// ProtocolError is an ERR response from upsd, carrying the upstream code
// ("DRIVER-NOT-CONNECTED", "DATA-STALE", "UNKNOWN-UPS", ...).
type ProtocolError struct {
	Code string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("upsd error: %s", e.Code)
}

// IsDriverNotConnected reports whether err is upsd telling us the local
// driver is absent.
func IsDriverNotConnected(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe) && pe.Code == "DRIVER-NOT-CONNECTED"
}

// IsDataStale reports whether err is upsd serving outdated readings.
func IsDataStale(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe) && pe.Code == "DATA-STALE"
}

// ClassifyCommError filters a communication-check error by topology.
// A DRIVER-NOT-CONNECTED answer still proves upsd is reachable, and on a
// client node the driver behind it belongs to the remote server, so it maps
// to success there; on a server it means the local driver layer is broken.
// Everything else, including DATA-STALE, stays an error in both modes.
func ClassifyCommError(err error, mode topology.Mode) error {
	if err == nil {
		return nil
	}
	if mode == topology.Client && IsDriverNotConnected(err) {
		return nil
	}
	return err
}
