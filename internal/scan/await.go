package scan

import (
	"context"
	"errors"
)

// ErrScanAbandoned is returned by Await when the scan was cleared or the
// controller disposed before it finished.
var ErrScanAbandoned = errors.New("scan abandoned")

// Await reads snapshots from a Subscribe channel until a scan started after
// run reaches Succeeded or Failed. Pass State().Run as read before the Start
// (or the navigation that auto-starts) being waited on. Intermediate
// snapshots may have been dropped for a slow reader; the terminal one is not.
func Await(ctx context.Context, states <-chan State, run uint64) (State, error) {
	for {
		select {
		case <-ctx.Done():
			return State{}, ctx.Err()
		case st, ok := <-states:
			if !ok {
				return State{}, ErrScanAbandoned
			}
			if st.Run <= run {
				continue
			}
			switch st.Status {
			case StatusSucceeded, StatusFailed:
				return st, nil
			case StatusIdle:
				return st, ErrScanAbandoned
			}
		}
	}
}
