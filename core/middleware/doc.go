// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation for the management endpoints.
//   - rayid: a unique Request ID (RayID) per request, stored in the context and
//     echoed in the X-Ray-ID response header for tracing.
//
// rayid is registered first so every log line carries the RayID.
package middleware
