package stylist

import (
	"encoding/json"
	"time"
)

// ResultState is the lifecycle position of a GenerationResult.
type ResultState string

const (
	StateLoading   ResultState = "loading"
	StateSucceeded ResultState = "succeeded"
	StateFailed    ResultState = "failed"
)

// FailureSentinel is the display reference of a failed result.
const FailureSentinel = "ERROR"

// GenerationResult tracks one generation request. Output is set only
// when State is StateSucceeded.
type GenerationResult struct {
	ID        string
	Label     string
	State     ResultState
	Output    *Image
	CreatedAt time.Time
	SettledAt time.Time
}

// Loading reports whether the request is still in flight.
func (r GenerationResult) Loading() bool {
	return r.State == StateLoading
}

// URL returns the output as a data: URL, FailureSentinel for a failed
// result, or "" while loading.
func (r GenerationResult) URL() string {
	switch r.State {
	case StateSucceeded:
		return r.Output.DataURL()
	case StateFailed:
		return FailureSentinel
	default:
		return ""
	}
}

// MarshalJSON omits the image payload; clients fetch it by ID.
func (r GenerationResult) MarshalJSON() ([]byte, error) {
	type wire struct {
		ID        string      `json:"id"`
		Label     string      `json:"label"`
		State     ResultState `json:"state"`
		Loading   bool        `json:"loading"`
		Failed    bool        `json:"failed"`
		MIMEType  string      `json:"mimeType,omitempty"`
		Size      int         `json:"size,omitempty"`
		CreatedAt time.Time   `json:"createdAt"`
		SettledAt *time.Time  `json:"settledAt,omitempty"`
	}
	w := wire{
		ID:        r.ID,
		Label:     r.Label,
		State:     r.State,
		Loading:   r.Loading(),
		Failed:    r.State == StateFailed,
		CreatedAt: r.CreatedAt,
	}
	if r.Output != nil {
		w.MIMEType = r.Output.MIMEType
		w.Size = len(r.Output.Data)
	}
	if !r.SettledAt.IsZero() {
		t := r.SettledAt
		w.SettledAt = &t
	}
	return json.Marshal(w)
}

// resultList is the ordered list of results. Entries are addressed by ID.
type resultList []GenerationResult

func (l resultList) indexOf(id string) int {
	for i := range l {
		if l[i].ID == id {
			return i
		}
	}
	return -1
}

func (l resultList) clone() []GenerationResult {
	out := make([]GenerationResult, len(l))
	copy(out, l)
	return out
}
