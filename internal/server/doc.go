// Package server provides HTTP routing, middleware and handlers.
//
// # Router
//
// [MuxRouter] implements [Router] over gorilla/mux. Routes are method-bound and may carry path variables,
// read with [Vars]. Middleware registered with Use runs in the order added and only for matched routes,
// so [CORS] wraps the router itself to answer preflight requests.
//
// # OAuth callback
//
// [OAuthHandler] receives the authorization-code redirect during `clouder auth login`. It checks the
// state parameter, exchanges the code and delivers one [OAuthResult]. Later callbacks are rejected.
//
// # Control API
//
// [ControlAPI] serves the player and category workflow to local clients:
//
//	GET  /api/player                 latest snapshot, mode and device
//	POST /api/player/{action}        play-pause, next, previous, rewind, forward
//	POST /api/player/seek?percent=N  seek to N% of the current track
//	POST /api/player/context         {"uri": "..."} start a playlist or album
//	GET  /api/categories             move targets for the playing playlist
//	POST /api/categories/{id}/move   move the playing track into category id
//
// Errors are returned as {"error": "..."} with 400 for bad input, 401 when the session is gone,
// 409 for unmet move preconditions and 502 for upstream failures.
package server
