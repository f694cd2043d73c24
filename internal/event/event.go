package event

// Type identifies one kind of campaign lifecycle event as reported by the
// delivery provider. The set is closed; unknown strings never classify.
type Type string

const (
	Delivered             Type = "delivered"
	Request               Type = "request"
	Click                 Type = "click"
	Opened                Type = "opened"
	UniqueOpened          Type = "uniqueOpened"
	ListAddition          Type = "listAddition"
	ContactUpdated        Type = "contactUpdated"
	ContactDeleted        Type = "contactDeleted"
	InboundEmailProcessed Type = "inboundEmailProcessed"
	Sent                  Type = "sent"
	HardBounce            Type = "hardBounce"
	SoftBounce            Type = "softBounce"
	Blocked               Type = "blocked"
	Spam                  Type = "spam"
	Invalid               Type = "invalid"
	Deferred              Type = "deferred"
	Unsubscribed          Type = "unsubscribed"
)

var known = map[Type]struct{}{
	Delivered:             {},
	Request:               {},
	Click:                 {},
	Opened:                {},
	UniqueOpened:          {},
	ListAddition:          {},
	ContactUpdated:        {},
	ContactDeleted:        {},
	InboundEmailProcessed: {},
	Sent:                  {},
	HardBounce:            {},
	SoftBounce:            {},
	Blocked:               {},
	Spam:                  {},
	Invalid:               {},
	Deferred:              {},
	Unsubscribed:          {},
}

// notifiedTypes lists, in stable order, the types that trigger a deduplicated
// operator alert. Everything else is accepted and dropped.
var notifiedTypes = []Type{
	Sent,
	HardBounce,
	SoftBounce,
	Blocked,
	Spam,
	Invalid,
	Deferred,
	Unsubscribed,
}

var notified = func() map[Type]struct{} {
	m := make(map[Type]struct{}, len(notifiedTypes))
	for _, t := range notifiedTypes {
		m[t] = struct{}{}
	}
	return m
}()

// Classify maps a raw event string to a Type. Matching is exact: no trimming,
// no case folding. ok is false for anything outside the closed set.
func Classify(raw string) (Type, bool) {
	t := Type(raw)
	_, ok := known[t]
	return t, ok
}

// Notified reports whether this type participates in deduplicated alerting.
func (t Type) Notified() bool {
	_, ok := notified[t]
	return ok
}

// NotifiedTypes returns the alerting types in a stable order.
// The returned slice must not be mutated.
func NotifiedTypes() []Type {
	return notifiedTypes
}
