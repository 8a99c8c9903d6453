package gate

import "time"

type Outcome string

const (
	Granted Outcome = "granted"
	Denied  Outcome = "denied"
)

// Reason explains a denial. It is empty for granted decisions.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonInvalidClient  Reason = "invalid_client"
	ReasonNotConfigured  Reason = "not_configured"
	ReasonMissingKey     Reason = "missing_key"
	ReasonInvalidKey     Reason = "invalid_key"
	ReasonKeyExpired     Reason = "key_expired"
	ReasonDeviceMismatch Reason = "device_mismatch"
	ReasonFetchFailure   Reason = "fetch_failure"
	ReasonInternal       Reason = "internal"
)

// Claims is the identity echoed back to a granted caller.
type Claims struct {
	OwnerIdentity string
	DisplayName   string
	Note          string
	Fingerprint   string
	// Remaining is nil when the key never expires.
	Remaining *time.Duration
	Premium   bool
}

// Decision is the result of one gate evaluation.
type Decision struct {
	Outcome Outcome
	Reason  Reason
	Claims  *Claims

	// Err holds the cause of an internal denial. It is never shown to callers.
	Err error
}

func (d Decision) Granted() bool { return d.Outcome == Granted }

func grant(c *Claims) Decision {
	return Decision{Outcome: Granted, Claims: c}
}

func deny(r Reason) Decision {
	return Decision{Outcome: Denied, Reason: r}
}

func denyInternal(err error) Decision {
	return Decision{Outcome: Denied, Reason: ReasonInternal, Err: err}
}
