package graph

// Phase identifies a completed step of a network build.
type Phase string

const (
	PhaseSeedFetched Phase = "seed_fetched"
	PhaseGraphBuilt  Phase = "graph_built"
	PhaseAnalyzed    Phase = "analyzed"
)

// PhaseStats carries the counts known when a phase completes. Counts that
// are not yet known for a phase are zero.
type PhaseStats struct {
	NetworkID   string
	Query       string
	Seeds       int
	Companies   int
	Partners    int
	Connections int
}

// Observer receives progress notifications from a GraphClient.
type Observer interface {
	OnPhase(phase Phase, stats PhaseStats)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(phase Phase, stats PhaseStats)

// OnPhase calls f(phase, stats).
func (f ObserverFunc) OnPhase(phase Phase, stats PhaseStats) {
	f(phase, stats)
}
