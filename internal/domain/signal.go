package domain

// Inbound data types.
const (
	StoreRoom      = "store_room"
	StoreOffer     = "store_offer"
	StoreCandidate = "store_candidate"
	SendAnswer     = "send_answer"
	SendCandidate  = "send_candidate"
	JoinCall       = "join_call"
)

// Outbound data types.
const (
	TypeOffer     = "offer"
	TypeAnswer    = "answer"
	TypeCandidate = "candidate"
)

// Offer is the SDP proposed by the call initiator.
type Offer struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// Answer has the same shape as Offer.
type Answer Offer

// Candidate is one ICE candidate as produced by RTCIceCandidate.toJSON().
type Candidate struct {
	Candidate        string `json:"candidate"`
	SDPMid           string `json:"sdpMid"`
	SDPMLineIndex    uint8  `json:"sdpMLineIndex"`
	UsernameFragment string `json:"usernameFragment"`
}

// Envelope is the flat inbound message. Only the fields relevant to
// DataType are meaningful.
type Envelope struct {
	DataType  string    `json:"data_type"`
	RoomID    string    `json:"room_id"`
	Offer     Offer     `json:"offer"`
	Answer    Answer    `json:"answer"`
	Candidate Candidate `json:"candidate"`
}

// Outbound is a tagged payload broadcast to peers.
type Outbound struct {
	DataType  string     `json:"data_type"`
	Offer     *Offer     `json:"offer,omitempty"`
	Answer    *Answer    `json:"answer,omitempty"`
	Candidate *Candidate `json:"candidate,omitempty"`
}

func OfferMessage(o Offer) Outbound {
	return Outbound{DataType: TypeOffer, Offer: &o}
}

func AnswerMessage(a Answer) Outbound {
	return Outbound{DataType: TypeAnswer, Answer: &a}
}

func CandidateMessage(c Candidate) Outbound {
	return Outbound{DataType: TypeCandidate, Candidate: &c}
}
