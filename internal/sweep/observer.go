package sweep

// Event types
const (
	EventStarted  = "started"
	EventPage     = "page"
	EventFinished = "finished"
)

// Event reports sweep progress.
type Event struct {
	Type     string `json:"type"`
	SweepID  string `json:"sweep_id"`
	Category string `json:"category"`
	Year     int    `json:"year,omitempty"`
	Variant  string `json:"variant,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
	Records  int    `json:"records"`
	Done     int    `json:"done"`
	Total    int    `json:"total"`
	Error    string `json:"error,omitempty"`
}

// Observer receives sweep progress.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

type noopObserver struct{}

func (noopObserver) OnEvent(Event) {}
