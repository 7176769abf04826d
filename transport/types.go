package transport

import (
	"context"
	"fmt"
	"net"
)

// ContentType is the field number of the Packet content oneof.
type ContentType int

const (
	ContentNone           ContentType = 0
	ContentFirmwareConfig ContentType = 1
	ContentFrame          ContentType = 2
	ContentWFrame         ContentType = 3
	ContentRGBFrame       ContentType = 4
	ContentAudioFrame     ContentType = 5
	ContentInputEvent     ContentType = 6
	ContentRGBFramePart1  ContentType = 7
	ContentRGBFramePart2  ContentType = 8
	ContentSynthFrame     ContentType = 9
	ContentCacheSamples   ContentType = 10
	ContentStopPlayback   ContentType = 11

	maxContentType = ContentStopPlayback
)

var contentNames = map[ContentType]string{
	ContentNone:           "none",
	ContentFirmwareConfig: "firmware_config",
	ContentFrame:          "frame",
	ContentWFrame:         "w_frame",
	ContentRGBFrame:       "rgb_frame",
	ContentAudioFrame:     "audio_frame",
	ContentInputEvent:     "input_event",
	ContentRGBFramePart1:  "rgb_frame_part1",
	ContentRGBFramePart2:  "rgb_frame_part2",
	ContentSynthFrame:     "synth_frame",
	ContentCacheSamples:   "cache_samples",
	ContentStopPlayback:   "stop_playback",
}

// String returns the protobuf field name.
func (c ContentType) String() string {
	if name, ok := contentNames[c]; ok {
		return name
	}
	return fmt.Sprintf("content(%d)", int(c))
}

// Handler processes one packet. A returned error is logged and the packet
// dropped.
type Handler func(ctx context.Context, p *Packet, addr net.Addr) error
