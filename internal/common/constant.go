package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the admin
// access token.
const AccessTokenHeaderName = "access_token"

// DefaultKeyHeaderName is the request header that carries the license key
// when no other name is configured.
const DefaultKeyHeaderName = "User-Scriptguard-Key"
