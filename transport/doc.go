// Package transport implements the control protocol: a protobuf Packet
// whose oneof content selects the request, carried one message per UDP
// datagram.
//
// The codec is written against google.golang.org/protobuf/encoding/protowire
// and is wire compatible with the protoc-generated senders used by existing
// show-control tooling. Only the content types the audio server acts on are
// modelled; the rest are kept as raw bytes so they can be forwarded.
//
// A Server reads datagrams with a short deadline so Close is prompt, and
// hands each packet to the handler registered for its content type. Every
// content type has its own ordered worker: note-on and note-off for a
// channel are never reordered, and a slow asset download never delays
// synth events.
//
//	srv, err := transport.NewServer(":60000")
//	if err != nil {
//	    return err
//	}
//	srv.RegisterHandler(transport.ContentAudioFrame, func(ctx context.Context, p *transport.Packet, addr net.Addr) error {
//	    return play(ctx, p.AudioFrame.URI, int(p.AudioFrame.Channel))
//	})
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Close()
package transport
