package store

import "strconv"

// App-state keys shared by the backends. The active-game and
// active-player pointers live here, outside the entity collections,
// so a relaunch can restore the in-flight session.
const (
	keyActiveGame   = "greed.activeGame"
	keyActivePlayer = "greed.activePlayer"
	keyDeviceID     = "greed.deviceId"
)

func parseStateID(v string) int64 {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func formatStateID(id int64) string {
	return strconv.FormatInt(id, 10)
}
