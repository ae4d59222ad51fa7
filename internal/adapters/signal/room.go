package signal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/relay/internal/domain"
	"github.com/go-playground/validator/v10"
)

var ErrDecode = errors.New("malformed envelope")

var validate = validator.New()

// Wire structs use pointers so that a missing or null field can be told
// apart from an empty one. Every field is mandatory at every level.

type sdpPayload struct {
	Type *string `json:"type" validate:"required"`
	SDP  *string `json:"sdp" validate:"required"`
}

type candidatePayload struct {
	Candidate        *string `json:"candidate" validate:"required"`
	SDPMid           *string `json:"sdpMid" validate:"required"`
	SDPMLineIndex    *uint8  `json:"sdpMLineIndex" validate:"required"`
	UsernameFragment *string `json:"usernameFragment" validate:"required"`
}

type envelopePayload struct {
	DataType  *string           `json:"data_type" validate:"required"`
	RoomID    *string           `json:"room_id" validate:"required"`
	Offer     *sdpPayload       `json:"offer" validate:"required"`
	Answer    *sdpPayload       `json:"answer" validate:"required"`
	Candidate *candidatePayload `json:"candidate" validate:"required"`
}

func (p *sdpPayload) offer() domain.Offer {
	return domain.Offer{Type: *p.Type, SDP: *p.SDP}
}

func (p *candidatePayload) candidate() domain.Candidate {
	return domain.Candidate{
		Candidate:        *p.Candidate,
		SDPMid:           *p.SDPMid,
		SDPMLineIndex:    *p.SDPMLineIndex,
		UsernameFragment: *p.UsernameFragment,
	}
}

// DecodeEnvelope requires every field, nested ones included, to be present
// and non-null; values may be empty.
func DecodeEnvelope(data []byte) (domain.Envelope, error) {
	var p envelopePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Envelope{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := validate.Struct(p); err != nil {
		return domain.Envelope{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return domain.Envelope{
		DataType:  *p.DataType,
		RoomID:    *p.RoomID,
		Offer:     p.Offer.offer(),
		Answer:    domain.Answer(p.Answer.offer()),
		Candidate: p.Candidate.candidate(),
	}, nil
}
