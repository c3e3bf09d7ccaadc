package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"

	"stream-consumer/internal/streamer/wsfeed"
)

var (
	errUnknownFrame = errors.New("unknown frame")
	errMissingID    = errors.New("deletion without interaction id")
)

// frameKind says what a decoded frame means to the dispatcher
type frameKind int

const (
	frameEvent frameKind = iota
	frameAck
	frameRejection
	frameHeartbeat
)

type frame struct {
	kind  frameKind
	event Event
}

// dataHeader holds the part of a data payload needed to spot deletions
type dataHeader struct {
	Deleted     bool `json:"deleted"`
	Interaction struct {
		ID string `json:"id"`
	} `json:"interaction"`
}

func decode(raw []byte) (frame, error) {
	msg := wsfeed.Message{}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return frame{}, &ProtocolError{Frame: raw, Err: err}
	}

	switch {
	case msg.Data != nil && msg.Hash != "":
		return decodeData(raw, msg)

	case msg.Status == wsfeed.StatusSuccess && msg.Hash != "":
		return frame{kind: frameAck, event: Event{Topic: msg.Hash, Message: msg.Message}}, nil

	case msg.Status == wsfeed.StatusFailure && msg.Hash != "":
		return frame{kind: frameRejection, event: Event{Topic: msg.Hash, Message: msg.Message}}, nil

	case msg.Status == wsfeed.StatusWarning:
		return frame{event: Event{Kind: KindWarning, Topic: msg.Hash, Message: msg.Message}}, nil

	case msg.Status == wsfeed.StatusError, msg.Status == wsfeed.StatusFailure:
		return frame{event: Event{Kind: KindError, Topic: msg.Hash, Message: msg.Message}}, nil

	case msg.Tick != 0 && msg.Status == "":
		return frame{kind: frameHeartbeat}, nil

	// a bare success without a hash is a plain acknowledgement of the connection
	case msg.Status == wsfeed.StatusSuccess:
		return frame{kind: frameHeartbeat}, nil
	}

	return frame{}, &ProtocolError{Frame: raw, Err: errUnknownFrame}
}

func decodeData(raw []byte, msg wsfeed.Message) (frame, error) {
	header := dataHeader{}
	if err := json.Unmarshal(msg.Data, &header); err != nil {
		return frame{}, &ProtocolError{Frame: raw, Err: fmt.Errorf("data: %w", err)}
	}

	if !header.Deleted {
		return frame{event: Event{Kind: KindData, Topic: msg.Hash, Payload: msg.Data}}, nil
	}

	if header.Interaction.ID == "" {
		return frame{}, &ProtocolError{Frame: raw, Err: errMissingID}
	}

	return frame{event: Event{
		Kind:    KindDeletion,
		Topic:   msg.Hash,
		ID:      header.Interaction.ID,
		Payload: msg.Data,
	}}, nil
}
