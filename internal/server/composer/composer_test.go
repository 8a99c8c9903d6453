package composer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/scriptguard/internal/server/assets"
	"github.com/dmitrijs2005/scriptguard/internal/server/gate"
	"github.com/dmitrijs2005/scriptguard/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func granted(c *gate.Claims) gate.Decision {
	return gate.Decision{Outcome: gate.Granted, Claims: c}
}

func denied(r gate.Reason) gate.Decision {
	return gate.Decision{Outcome: gate.Denied, Reason: r}
}

func TestCompose_GrantedWithExpiry(t *testing.T) {
	remaining := 90*time.Second + 500*time.Millisecond
	c := New("scriptguard")
	p := &models.Project{ID: "P1", Name: "Hub"}
	d := granted(&gate.Claims{OwnerIdentity: "42", DisplayName: "alice", Note: "vip", Fingerprint: "fp-A", Remaining: &remaining, Premium: true})

	got := c.Compose(p, d, assets.Ok([]byte("print(\"body\")\n")))

	want := `assert(getgenv, "getgenv not found, Hub could not be run.")
getgenv().scriptguard = {
  username = "alice",
  userid = "42",
  note = "vip",
  hwid = "fp-A",
  script_name = "Hub",
  expiry = os.time() + 90,
  is_premium = true,
}

print("body")
`
	if diff := cmp.Diff(want, string(got.Body)); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, KindGranted, got.Kind)
	assert.Equal(t, gate.ReasonNone, got.Reason)
}

func TestCompose_GrantedWithoutExpiry(t *testing.T) {
	c := New("guard")
	p := &models.Project{Name: "Free"}
	d := granted(&gate.Claims{Fingerprint: "fp-X"})

	got := c.Compose(p, d, assets.Ok([]byte("return 1")))

	want := `assert(getgenv, "getgenv not found, Free could not be run.")
getgenv().guard = {
  username = "",
  userid = "",
  note = "",
  hwid = "fp-X",
  script_name = "Free",
  is_premium = false,
}

return 1`
	if diff := cmp.Diff(want, string(got.Body)); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_EscapesAttackerControlledFields(t *testing.T) {
	c := New("scriptguard")
	p := &models.Project{Name: `x" .. os.exit() .. "`}
	d := granted(&gate.Claims{
		DisplayName: "bob\"\n}\nerror('pwn')--",
		Note:        `C:\temp`,
		Fingerprint: "fp\x00\x1b",
	})

	body := string(c.Compose(p, d, assets.Ok(nil)).Body)

	assert.Contains(t, body, `username = "bob\"\n}\nerror('pwn')--",`)
	assert.Contains(t, body, `note = "C:\\temp",`)
	assert.Contains(t, body, `hwid = "fp\000\027",`)
	assert.Contains(t, body, `script_name = "x\" .. os.exit() .. \"",`)
	assert.Equal(t, 10, strings.Count(body, "\n"), "no injected line breaks")
}

func TestCompose_Denied(t *testing.T) {
	c := New("scriptguard")
	p := &models.Project{Name: "Hub"}

	got := c.Compose(p, denied(gate.ReasonKeyExpired), assets.Result{})

	want := `local message = "[scriptguard] Key has expired"
pcall(function()
  game:GetService("Players").LocalPlayer:Kick(message)
end)
error(message, 0)
`
	if diff := cmp.Diff(want, string(got.Body)); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, KindDenied, got.Kind)
	assert.Equal(t, gate.ReasonKeyExpired, got.Reason)
}

func TestCompose_DeniedWithCompanionLink(t *testing.T) {
	c := New("scriptguard")
	p := &models.Project{Name: "Hub", CompanionLink: "https://discord.gg/abc"}

	got := c.Compose(p, denied(gate.ReasonInvalidKey), assets.Result{})

	want := `local message = "[scriptguard] Invalid key provided (link copied to clipboard: https://discord.gg/abc)"
pcall(setclipboard, "https://discord.gg/abc")
pcall(function()
  game:GetService("Players").LocalPlayer:Kick(message)
end)
error(message, 0)
`
	if diff := cmp.Diff(want, string(got.Body)); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_FetchFailure(t *testing.T) {
	c := New("scriptguard")
	p := &models.Project{Name: "Hub", CompanionLink: "https://x.io"}
	d := granted(&gate.Claims{Fingerprint: "fp"})

	got := c.Compose(p, d, assets.Failed(assets.ErrTimeout))

	assert.Equal(t, KindFetchFailure, got.Kind)
	assert.Equal(t, gate.ReasonFetchFailure, got.Reason)
	body := string(got.Body)
	assert.Contains(t, body, "Failed to fetch script")
	assert.Contains(t, body, `pcall(setclipboard, "https://x.io")`)
	assert.True(t, strings.HasSuffix(body, "error(message, 0)\n"))
	assert.NotContains(t, body, "getgenv")
}

func TestCompose_InternalIsGeneric(t *testing.T) {
	c := New("scriptguard")
	d := gate.Decision{Outcome: gate.Denied, Reason: gate.ReasonInternal, Err: errors.New("pq: connection refused at 10.0.0.5")}

	body := string(c.Compose(nil, d, assets.Result{}).Body)
	assert.Contains(t, body, "Something went wrong")
	assert.NotContains(t, body, "10.0.0.5")
}

func TestMessage_EveryReason(t *testing.T) {
	for _, r := range []gate.Reason{
		gate.ReasonInvalidClient, gate.ReasonNotConfigured, gate.ReasonMissingKey, gate.ReasonInvalidKey,
		gate.ReasonKeyExpired, gate.ReasonDeviceMismatch, gate.ReasonFetchFailure, gate.ReasonInternal,
		ReasonRateLimited,
	} {
		assert.NotEmpty(t, Message(r), string(r))
	}
	assert.Equal(t, Message(gate.ReasonInternal), Message("unknown"))
}
