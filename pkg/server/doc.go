// Package server exposes viewer sessions over HTTP and WebSocket.
//
// Routes:
//
//	POST   /api/sessions                                 upload a graph document
//	GET    /api/sessions                                 list open sessions
//	DELETE /api/sessions/{id}                            close and forget a session
//	GET    /api/sessions/{id}/render                     current render output (json or svg)
//	GET    /api/sessions/{id}/stats                      graph statistics
//	GET    /api/sessions/{id}/layout-request             the request the next layout sends
//	GET    /api/sessions/{id}/snapshot                   graph document with viewer state
//	POST   /api/sessions/{id}/containers/{cid}/{op}      collapse, expand or toggle
//	POST   /api/sessions/{id}/{op}                       collapse-all, expand-all, reset, relayout
//	GET    /api/sessions/{id}/ws                         render updates pushed over a websocket
//	GET    /metrics                                      Prometheus metrics, if configured
//
// Errors are returned as {"code": ..., "message": ...} with a status derived
// from the error code.
package server
