// Package composer renders gate decisions into Luau payloads.
package composer

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/dmitrijs2005/scriptguard/internal/server/assets"
	"github.com/dmitrijs2005/scriptguard/internal/server/gate"
	"github.com/dmitrijs2005/scriptguard/internal/server/models"
)

type Kind string

const (
	KindGranted      Kind = "granted"
	KindDenied       Kind = "denied"
	KindFetchFailure Kind = "fetch_failure"
)

// Payload is the script text returned to the caller.
type Payload struct {
	Kind   Kind
	Reason gate.Reason
	Body   []byte
}

// ReasonRateLimited is used by transports that reject a request before it
// reaches the gate.
const ReasonRateLimited gate.Reason = "rate_limited"

var messages = map[gate.Reason]string{
	gate.ReasonInvalidClient:  "Invalid executor",
	gate.ReasonNotConfigured:  "No script has been initialized yet",
	gate.ReasonMissingKey:     "No key provided",
	gate.ReasonInvalidKey:     "Invalid key provided",
	gate.ReasonKeyExpired:     "Key has expired",
	gate.ReasonDeviceMismatch: "Key is linked to another device",
	gate.ReasonFetchFailure:   "Failed to fetch script",
	gate.ReasonInternal:       "Something went wrong, please try again later",
	ReasonRateLimited:         "Too many requests, please try again later",
}

// Message returns the caller-facing text for a denial reason.
func Message(r gate.Reason) string {
	if m, ok := messages[r]; ok {
		return m
	}
	return messages[gate.ReasonInternal]
}

type Composer struct {
	brand   string
	granted *template.Template
	abort   *template.Template
}

// New builds a composer whose granted preamble is published as
// getgenv().<brand>. brand must be a valid Luau identifier.
func New(brand string) *Composer {
	funcs := template.FuncMap{"lua": LuaString}
	return &Composer{
		brand:   brand,
		granted: template.Must(template.New("granted").Funcs(funcs).Parse(grantedTemplate)),
		abort:   template.Must(template.New("abort").Funcs(funcs).Parse(abortTemplate)),
	}
}

type grantedView struct {
	Brand         string
	Username      string
	UserID        string
	Note          string
	HWID          string
	ScriptName    string
	HasExpiry     bool
	ExpirySeconds int64
	Premium       bool
}

type abortView struct {
	Message string
	Link    string
}

// Compose renders the payload for one request. project may be nil only for
// denied decisions.
func (c *Composer) Compose(project *models.Project, d gate.Decision, res assets.Result) Payload {
	if !d.Granted() {
		return c.Abort(project, d.Reason)
	}
	if !res.OK() {
		p := c.Abort(project, gate.ReasonFetchFailure)
		p.Kind = KindFetchFailure
		return p
	}

	view := grantedView{
		Brand:      c.brand,
		Username:   d.Claims.DisplayName,
		UserID:     d.Claims.OwnerIdentity,
		Note:       d.Claims.Note,
		HWID:       d.Claims.Fingerprint,
		ScriptName: project.Name,
		Premium:    d.Claims.Premium,
	}
	if d.Claims.Remaining != nil {
		view.HasExpiry = true
		view.ExpirySeconds = int64(*d.Claims.Remaining / time.Second)
	}

	var buf bytes.Buffer
	if err := c.granted.Execute(&buf, view); err != nil {
		return c.Abort(project, gate.ReasonInternal)
	}
	buf.Write(res.Content)

	return Payload{Kind: KindGranted, Body: buf.Bytes()}
}

// Abort renders the halt directive for reason. The project's companion
// link, when set, is copied to the clipboard and appended to the message.
func (c *Composer) Abort(project *models.Project, reason gate.Reason) Payload {
	view := abortView{Message: fmt.Sprintf("[%s] %s", c.brand, Message(reason))}
	if project != nil && project.CompanionLink != "" {
		view.Link = project.CompanionLink
		view.Message += " (link copied to clipboard: " + project.CompanionLink + ")"
	}

	var buf bytes.Buffer
	if err := c.abort.Execute(&buf, view); err != nil {
		// Only reachable on a broken template; keep the halt guarantee.
		buf.Reset()
		buf.WriteString("error(\"internal error\", 0)\n")
	}
	return Payload{Kind: KindDenied, Reason: reason, Body: buf.Bytes()}
}
