package event

// Record is one inbound webhook envelope. It is transient: decoded per
// request, handed to the notifier for formatting, never stored as a whole.
// Only Email ends up in the suppression store.
type Record struct {
	Event     string   `json:"event"`
	Email     string   `json:"email"`
	Subject   string   `json:"subject,omitempty"`
	Date      string   `json:"date,omitempty"`
	SendingIP string   `json:"sending_ip,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Tags      []string `json:"tag,omitempty"`
}

// HasTag reports whether the envelope carries the given tag.
func (r Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
