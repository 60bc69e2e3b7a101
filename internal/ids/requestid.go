package ids

import gonanoid "github.com/matoous/go-nanoid/v2"

const requestIDLength = 21

// NewRequestID returns a short, URL-safe id for the response envelope's
// request_id field. Falls back to a UUID if the random source backing
// nanoid is unavailable, which in practice never happens on a real host.
func NewRequestID() string {
	id, err := gonanoid.New(requestIDLength)
	if err != nil {
		return NewUUID().String()
	}
	return id
}

// NewQueryID returns a short id for QueryResult metadata.query_id.
func NewQueryID() string {
	return NewRequestID()
}
