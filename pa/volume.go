package pa

import (
	"math"

	"github.com/jfreymuth/pulse/proto"
)

// clampLevel bounds a normalized volume to [0, 1]. Out-of-range requests are
// clamped, never rejected.
func clampLevel(level float64) float64 {
	if level < 0 || math.IsNaN(level) {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}

// volumeFromNative converts the server's channel volumes to a normalized
// level. Channels are reported independently but controlled together here,
// so the first channel stands for all of them.
func volumeFromNative(cv proto.ChannelVolumes) float64 {
	if len(cv) == 0 {
		return 0
	}
	return clampLevel(float64(cv[0]) / float64(proto.VolumeNorm))
}

// volumeToNative builds the native encoding for a normalized level,
// replicated across all channels.
func volumeToNative(level float64, channels int) proto.ChannelVolumes {
	if channels < 1 {
		channels = 1
	}
	raw := uint32(math.Round(clampLevel(level) * float64(proto.VolumeNorm)))
	cv := make(proto.ChannelVolumes, channels)
	for i := range cv {
		cv[i] = raw
	}
	return cv
}
