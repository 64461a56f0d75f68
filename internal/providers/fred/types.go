package fred

// --- FRED Series (used by Ping) ---

type fredSeriesResponse struct {
	Seriess []fredSeries `json:"seriess"`
}

type fredSeries struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	ObservationStart string `json:"observation_start"`
	ObservationEnd   string `json:"observation_end"`
	Frequency        string `json:"frequency"`
	Units            string `json:"units"`
	LastUpdated      string `json:"last_updated"`
}

// --- FRED Observations ---

type fredObservationsResponse struct {
	RealtimeStart    string            `json:"realtime_start"`
	RealtimeEnd      string            `json:"realtime_end"`
	ObservationStart string            `json:"observation_start"`
	ObservationEnd   string            `json:"observation_end"`
	Units            string            `json:"units"`
	OrderBy          string            `json:"order_by"`
	SortOrder        string            `json:"sort_order"`
	Count            int               `json:"count"`
	Offset           int               `json:"offset"`
	Limit            int               `json:"limit"`
	Observations     []fredObservation `json:"observations"`
}

type fredObservation struct {
	RealtimeStart string `json:"realtime_start"`
	RealtimeEnd   string `json:"realtime_end"`
	Date          string `json:"date"`
	Value         string `json:"value"`
}

// fredErrorResponse is the body FRED sends with 4xx responses.
type fredErrorResponse struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}
