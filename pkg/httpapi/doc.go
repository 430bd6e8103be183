// Package httpapi exposes the dispatcher over HTTP and WebSocket.
//
// Routes:
//
//	POST /api/chat         dispatch a request by its action
//	POST /api/chat/render  return the backend payload without invoking it
//	GET  /api/models       known backend models
//	GET  /api/personas     resolvable persona tags
//	GET  /ws               one request per text frame, one reply per request
//	GET  /health
//	GET  /metrics
//
// Errors are returned as {"error": "...", "details": "..."} with the status
// chosen by dispatch.StatusFor. Server-side failures report a fixed error
// message and carry the cause in details.
package httpapi
