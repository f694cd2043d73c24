package suppression

// Package suppression tracks which recipients have already triggered an
// operator alert, one persistent set per alerting event type.
//
// A recipient moves Unseen -> Seen exactly once per event type; the
// transition is durable and survives restarts.
