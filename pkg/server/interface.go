/*
Package server exposes a loaded index over msgpack IPC and HTTP.

# IPC

The IPC loop reads msgpack requests from stdin and writes msgpack responses
to stdout, one response per request, in order. On start the server writes a
ready message:

	{"id": "", "status": "ready"}

Requests carry an id, an action, a query and an optional limit:

	{"id": "req_001", "action": "prefix", "q": "ROMA", "l": 5}

Actions:

	contains   exact membership of q
	prefix     up to l keys starting with q (default 10, max 500)
	segment    the code decomposition of q, if q is an index entry
	info       key count and run id of the loaded index

Queries are trimmed and uppercased before lookup. Responses echo the id and
report the time taken in microseconds:

	{"id": "req_001", "status": "ok", "w": ["ROMA", "ROMANO"], "c": 2, "t": 38}

Errors come back as {"id": ..., "status": "error", "e": "...", "code": 400}.
A request that does not decode ends the loop, since the stream cannot be
resynchronized.

# HTTP

NewRouter serves the same operations as JSON:

	GET /health
	GET /v1/info
	GET /v1/contains/{word}
	GET /v1/prefix/{prefix}?limit=
	GET /v1/segment/{word}
*/
package server

// Actions understood by Handle.
const (
	ActionContains = "contains"
	ActionPrefix   = "prefix"
	ActionSegment  = "segment"
	ActionInfo     = "info"
)

const (
	StatusOK    = "ok"
	StatusReady = "ready"
	StatusError = "error"
)

// Request is one query.
type Request struct {
	ID     string `msgpack:"id" json:"id"`
	Action string `msgpack:"action" json:"action"`
	Query  string `msgpack:"q" json:"q"`
	Limit  int    `msgpack:"l,omitempty" json:"l,omitempty"`
}

// Response answers one Request. Only the fields relevant to the action are set.
type Response struct {
	ID        string   `msgpack:"id" json:"id"`
	Status    string   `msgpack:"status" json:"status"`
	Query     string   `msgpack:"q,omitempty" json:"q,omitempty"`
	Found     bool     `msgpack:"f" json:"found"`
	Words     []string `msgpack:"w,omitempty" json:"words,omitempty"`
	Segments  []string `msgpack:"s,omitempty" json:"segments,omitempty"`
	Count     int      `msgpack:"c,omitempty" json:"count,omitempty"`
	Keys      int      `msgpack:"keys,omitempty" json:"keys,omitempty"`
	RunID     string   `msgpack:"run_id,omitempty" json:"run_id,omitempty"`
	TimeTaken int64    `msgpack:"t" json:"time_us"`
	Error     string   `msgpack:"e,omitempty" json:"error,omitempty"`
	Code      int      `msgpack:"code,omitempty" json:"code,omitempty"`
}
