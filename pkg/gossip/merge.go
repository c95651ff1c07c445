package gossip

// Supersedes reports whether remote supersedes local under the composite
// logical clock: config_epoch is the dominant axis, heartbeat breaks
// ties within the same epoch. Equal pairs yield no update.
func Supersedes(remote, local NodeView) bool {
	re, rh := remote.clockPair()
	le, lh := local.clockPair()
	if re != le {
		return re > le
	}
	return rh > lh
}
