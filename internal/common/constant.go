package common

// AuthorizationHeaderName carries the session token on REST requests as
// "Bearer <token>".
const AuthorizationHeaderName = "Authorization"

// SessionTokenKey is the name under which the active session token is kept
// outside the transactional store.
const SessionTokenKey = "SUITEWASTE_SESSION_TOKEN"
