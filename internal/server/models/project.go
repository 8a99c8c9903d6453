// Package models defines server-side data models persisted in the database.
package models

import "time"

// LicenseMode decides whether the gate requires a key.
type LicenseMode string

const (
	LicenseModePaid        LicenseMode = "paid"
	LicenseModeFreePaywall LicenseMode = "free-paywall"
)

func (m LicenseMode) Valid() bool {
	return m == LicenseModePaid || m == LicenseModeFreePaywall
}

// AssetSource names the backend holding a project's protected script.
type AssetSource string

const (
	AssetSourceGitHub AssetSource = "github"
	AssetSourceS3     AssetSource = "s3"
)

func (s AssetSource) Valid() bool {
	return s == AssetSourceGitHub || s == AssetSourceS3
}

// Project is one protected script and its licensing policy.
type Project struct {
	ID          string
	Name        string
	Description string
	AuthorID    string
	LicenseMode LicenseMode

	// AssetSource, AssetOwner, AssetRepo and AssetPath locate the script.
	// For S3, AssetRepo is the bucket and AssetOwner/AssetPath form the key.
	AssetSource AssetSource
	AssetOwner  string
	AssetRepo   string
	AssetPath   string
	// AssetToken overrides the server-wide GitHub token for this project.
	AssetToken string

	// CompanionLink is shown in abort payloads when set.
	CompanionLink string
	WebhookURL    string
	// PaywallKeyDuration is the lifetime, in minutes, of keys issued by the
	// external paywall flow.
	PaywallKeyDuration int

	CreatedAt time.Time
}
