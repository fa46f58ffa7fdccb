package patchbay

// Status is a snapshot of every entity, for reporting.
type Status struct {
	Master  MasterStatus   `json:"master"`
	Players []PlayerStatus `json:"players"`
}

type MasterStatus struct {
	Present     bool     `json:"present"`
	State       string   `json:"state"`
	Sources     []string `json:"sources"`
	Current     string   `json:"current,omitempty"`
	Pending     string   `json:"pending,omitempty"`
	CurrentTime float64  `json:"current_time"`
	Duration    float64  `json:"duration"`
}

type PlayerStatus struct {
	ID           string        `json:"id"`
	Track        string        `json:"track"`
	State        string        `json:"state"`
	Active       bool          `json:"active"`
	Playing      bool          `json:"playing"`
	Initialized  bool          `json:"initialized"`
	LookupFailed bool          `json:"lookup_failed"`
	Metadata     TrackMetadata `json:"metadata"`
}

// Status reports the current state of the master and every inline player.
func (pb *Patchbay) Status() Status {
	var st Status
	if m := pb.master; m != nil {
		current, total := m.element.Position()
		st.Master = MasterStatus{
			Present:     true,
			State:       m.State().String(),
			Sources:     m.element.Sources(),
			CurrentTime: current,
			Duration:    total,
		}
		if m.current != nil {
			st.Master.Current = m.current.ID()
		}
		if m.pending != nil {
			st.Master.Pending = m.pending.ID()
		}
	}

	st.Players = make([]PlayerStatus, 0, len(pb.players))
	for _, p := range pb.players {
		ps := PlayerStatus{
			ID:           p.ID(),
			Track:        p.descriptor.String(),
			State:        p.State().String(),
			Active:       p.active,
			Playing:      p.playing,
			Initialized:  p.initialized,
			LookupFailed: p.lookupFailed,
		}
		if p.info != nil {
			ps.Metadata = p.info.TrackMetadata
		}
		st.Players = append(st.Players, ps)
	}
	return st
}
