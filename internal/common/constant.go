package common

// AuthHeaderName is the HTTP header carrying the bearer access token.
const AuthHeaderName = "Authorization"

// AuthScheme is the expected prefix of the auth header value.
const AuthScheme = "Bearer"
