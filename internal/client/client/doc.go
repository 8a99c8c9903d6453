// Package client talks to the scriptguard admin gRPC API.
//
// GRPCClient injects the admin access token through a unary interceptor
// and maps gRPC status codes to sentinel errors: ErrUnavailable,
// ErrUnauthorized, ErrNotFound and ErrInvalidArgument. Requests and
// responses are plain maps carried as google.protobuf.Struct.
package client
