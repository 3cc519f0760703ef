package state

// Transition returns the state that follows s on event e. Events that do not
// apply to the current phase leave it unchanged.
func Transition(s State, e Event) State {
	switch s.(type) {
	case Init:
		if _, ok := e.(Booted); ok {
			return LoadConfig{}
		}

	case LoadConfig:
		if ev, ok := e.(CredentialsLoaded); ok {
			if ev.Present {
				return Connecting{}
			}
			return Provisioning{}
		}

	case Connecting:
		switch ev := e.(type) {
		case ConnectSucceeded:
			return Connected{}
		case ConnectFailed:
			return RetryWait{FailedAt: ev.At}
		}

	case RetryWait:
		if ev, ok := e.(RetryDue); ok {
			if ev.Exhausted() && ev.AutoWipe {
				return Provisioning{}
			}
			return Connecting{}
		}

	case Connected:
		if _, ok := e.(LinkLost); ok {
			return Connecting{}
		}

	case Provisioning:
		if ev, ok := e.(PortalStarted); ok {
			return ProvisioningActive{Session: ev.Session}
		}

	case ProvisioningActive:
		if ev, ok := e.(PortalTimedOut); ok && ev.HasCredentials {
			return Connecting{}
		}
	}
	return s
}
