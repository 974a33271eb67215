package engine

// NotificationKind identifies which layer flag changed.
type NotificationKind int

const (
	NotifyPlaying NotificationKind = iota
	NotifyArmed
	NotifyArmedToStop
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyPlaying:
		return "playing"
	case NotifyArmed:
		return "armed"
	case NotifyArmedToStop:
		return "armedToStop"
	default:
		return "unknown"
	}
}

// Notification reports a layer flag transition to the control context.
// The audio-rendering context posts these with a non-blocking send and
// never waits for delivery.
type Notification struct {
	LayerID string
	Kind    NotificationKind
	Value   bool
}
