package domain

// Room is a point-in-time copy of a negotiation record.
// The live, shared version lives in core.Room.
type Room struct {
	RoomID     string      `json:"room_id"`
	Offer      Offer       `json:"offer"`
	Candidates []Candidate `json:"candidates"`
}

// Clone copies the candidate slice so the result can be read without a lock.
func (r Room) Clone() Room {
	out := r
	if r.Candidates != nil {
		out.Candidates = make([]Candidate, len(r.Candidates))
		copy(out.Candidates, r.Candidates)
	}
	return out
}
