// Package server exposes the review executor over a local HTTP API and serves
// the static viewer files.
//
// Every response carries a permissive CORS header so a viewer opened from
// disk can call the API. When server.api_token is set, /api/ routes require
// "Authorization: Bearer <token>". Run holds a lock file in the state
// directory so only one server instance drives a given queue.
package server
