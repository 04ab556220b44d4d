package segment

// EventType distinguishes graph notifications.
type EventType uint8

const (
	// GraphChanged is sent after objects or subobjects were added, removed or re-linked.
	GraphChanged EventType = iota

	// SelectionChanged is sent after the ordered selection changed.
	SelectionChanged

	// ObjectChanged is sent for a single object whose fields or members changed.
	ObjectChanged
)

func (t EventType) String() string {
	switch t {
	case GraphChanged:
		return "graph changed"
	case SelectionChanged:
		return "selection changed"
	case ObjectChanged:
		return "object changed"
	default:
		return "unknown event"
	}
}

// Event is a notification delivered to subscribers.  Index is only meaningful
// for ObjectChanged and refers to the object's index at the time of delivery.
type Event struct {
	Type  EventType
	Index int
}

// Subscriber receives graph notifications synchronously on the mutating goroutine.
// It must not mutate the graph.
type Subscriber interface {
	Notify(Event)
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(Event)

func (f SubscriberFunc) Notify(e Event) {
	f(e)
}

// Subscribe registers a subscriber for every later notification.
func (g *Graph) Subscribe(s Subscriber) {
	g.subscribers = append(g.subscribers, s)
}

func (g *Graph) notifySubscribers(e Event) {
	for _, s := range g.subscribers {
		s.Notify(e)
	}
}

func (g *Graph) notifyGraph() {
	g.notifySubscribers(Event{Type: GraphChanged})
}

func (g *Graph) notifySelection() {
	g.notifySubscribers(Event{Type: SelectionChanged})
}

func (g *Graph) notifyObject(index int) {
	g.notifySubscribers(Event{Type: ObjectChanged, Index: index})
}
