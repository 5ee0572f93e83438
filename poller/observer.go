package poller

// Observer receives progress notifications from a poll loop
type Observer interface {
	// OnAttempt is called before each read, starting at 1
	OnAttempt(attempt int)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(attempt int)

func (f ObserverFunc) OnAttempt(attempt int) {
	f(attempt)
}

// NopObserver discards notifications
type NopObserver struct{}

func (NopObserver) OnAttempt(int) {}

type multiObserver []Observer

func (m multiObserver) OnAttempt(attempt int) {
	for _, o := range m {
		o.OnAttempt(attempt)
	}
}

// Multi fans notifications out to several observers
func Multi(observers ...Observer) Observer {
	filtered := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	return filtered
}
