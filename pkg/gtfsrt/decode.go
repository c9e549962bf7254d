// Package gtfsrt turns a GTFS-RT protocol-buffer payload into the generated
// FeedMessage object graph. Per the original spec's design notes, the
// upstream schema itself is a given wire format: this package generates no
// custom types of its own and just exposes MobilityData's public bindings
// through a pure, total decode function.
package gtfsrt

import (
	"fmt"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// DecodeError wraps a protobuf unmarshal failure. The decoder never attempts
// partial recovery - any malformed input fails the whole decode.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("gtfsrt: malformed feed message: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses a single GTFS-RT FeedMessage from body. It is pure and
// total: for any byte slice, it either returns a fully populated
// *gtfs.FeedMessage or a *DecodeError, never a partially populated result.
func Decode(body []byte) (*gtfs.FeedMessage, error) {
	feed := &gtfs.FeedMessage{}

	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, &DecodeError{Err: err}
	}

	return feed, nil
}
