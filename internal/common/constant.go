package common

// AuthorizationHeaderName is the HTTP header and gRPC metadata key carrying
// the bearer token. gRPC metadata keys are lower-case.
const AuthorizationHeaderName = "authorization"

// BearerScheme is the authorization scheme prefix, matched case-insensitively.
const BearerScheme = "Bearer"

// TokenTypeBearer is reported to clients next to an issued access token.
const TokenTypeBearer = "bearer"
