package checkoutapi

import "time"

// ProtocolVersion is sent with every request. Servers deny clients below their
// configured minimum.
const ProtocolVersion = 2

// Response statuses.
const (
	StatusOK     = "ok"
	StatusDenied = "denied"
	StatusNoDB   = "nodb"
	StatusError  = "error"
)

// Action names a checkout protocol call.
type Action string

const (
	ActionStatusCheck Action = "statusCheck"
	ActionCheckOut    Action = "checkOut"
	ActionCheckIn     Action = "checkIn"
	ActionDiscard     Action = "discard"
	ActionCreate      Action = "create"
	ActionRevoke      Action = "revokeCheckOut"
)

// Actions lists every protocol action in route registration order.
var Actions = []Action{
	ActionStatusCheck,
	ActionCheckOut,
	ActionCheckIn,
	ActionDiscard,
	ActionCreate,
	ActionRevoke,
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// Identity is who a request claims to come from.
type Identity struct {
	Name         string `json:"name"`
	Contact      string `json:"contact"`
	ComputerName string `json:"computername"`
}

// Request is one protocol call. Filename and Key are only meaningful for
// checkIn and discard.
type Request struct {
	Action   Action
	ACM      string
	Identity Identity
	Version  int
	Filename string
	Key      string
}

// State is the server's view of one ACM.
type State struct {
	ACMName            string    `json:"acm_name"`
	LastInFileName     string    `json:"last_in_file_name,omitempty"`
	LastInName         string    `json:"last_in_name,omitempty"`
	LastInContact      string    `json:"last_in_contact,omitempty"`
	LastInDate         time.Time `json:"last_in_date,omitzero"`
	NowOutName         string    `json:"now_out_name,omitempty"`
	NowOutContact      string    `json:"now_out_contact,omitempty"`
	NowOutComputerName string    `json:"now_out_computername,omitempty"`
	NowOutDate         time.Time `json:"now_out_date,omitzero"`
}

// CheckedOut reports whether someone holds the ACM.
func (s State) CheckedOut() bool {
	return s.NowOutName != ""
}

// HeldBy reports whether the checkout belongs to id on the same computer.
func (s State) HeldBy(id Identity) bool {
	return s.CheckedOut() && s.NowOutName == id.Name && s.NowOutComputerName == id.ComputerName
}

// Response is the reply to every protocol action.
type Response struct {
	Status   string `json:"status"`
	Key      string `json:"key,omitempty"`
	Filename string `json:"filename,omitempty"`
	Message  string `json:"message,omitempty"`
	State    *State `json:"state,omitempty"`
}

// OK reports whether the server accepted the request.
func (r Response) OK() bool { return r.Status == StatusOK }

// Denied reports whether the server refused the request.
func (r Response) Denied() bool { return r.Status == StatusDenied }

// NoDB reports whether the server has never heard of the ACM.
func (r Response) NoDB() bool { return r.Status == StatusNoDB }

// ListResponse is the reply to GET /acms.
type ListResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message,omitempty"`
	ACMs    []State `json:"acms"`
}

// SRNResponse is the reply to GET /srn/reserve. Begin and End describe the
// half-open range [Begin, End) for device ID.
type SRNResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	ID      int    `json:"id"`
	Begin   int    `json:"begin"`
	End     int    `json:"end"`
}
