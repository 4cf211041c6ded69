package generation

// Phase is the state of the controller. Only Idle accepts a new turn.
type Phase int

const (
	Idle Phase = iota
	EnsuringSession
	Ingesting
	Streaming
	Finalizing
)

var phaseNames = map[Phase]string{
	Idle:            "idle",
	EnsuringSession: "ensuring_session",
	Ingesting:       "ingesting",
	Streaming:       "streaming",
	Finalizing:      "finalizing",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// IsGenerating is true while an answer is being produced.
func (p Phase) IsGenerating() bool {
	return p == Streaming || p == Finalizing
}

// IsProcessingFiles is true while uploads are in flight.
func (p Phase) IsProcessingFiles() bool {
	return p == Ingesting
}

// Every phase may fall back to Idle; that edge is not listed.
var transitions = map[Phase][]Phase{
	Idle:            {EnsuringSession, Streaming},
	EnsuringSession: {Ingesting, Streaming},
	Ingesting:       {Streaming},
	Streaming:       {Finalizing},
	Finalizing:      {},
}

func canTransition(from, to Phase) bool {
	if to == Idle {
		return from != Idle
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
