// Package client talks to the SuiteWaste REST API.
//
// HTTPClient sends JSON requests, unwraps the {success,data,error} envelope
// and maps failures to sentinel errors that callers match with errors.Is:
//
//   - ErrUnavailable: the request never got a usable answer (transport
//     failure, timeout, 5xx or the offline fallback).
//   - ErrRejected: a 2xx answer with success:false.
//   - ErrBadRequest, ErrNotFound, ErrUnauthorized: 400, 404 and 401/403.
//
// Reachability is probed over the gRPC health protocol (GRPCHealthProber).
package client
