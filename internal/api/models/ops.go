package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus is the detailed status of the dataset and its upstreams.
type SystemStatus struct {
	Status    HealthStatus     `json:"status"`
	Time      Timestamp        `json:"time"`
	Dataset   DatasetStatus    `json:"dataset"`
	Upstreams []UpstreamStatus `json:"upstreams"`
}

// DatasetStatus describes the loaded dataset.
type DatasetStatus struct {
	Status      HealthStatus `json:"status"`
	Source      string       `json:"source,omitempty"`
	Records     int          `json:"records"`
	LoadedAt    *Timestamp   `json:"loadedAt,omitempty"`
	LastError   *string      `json:"lastError,omitempty"`
	LastErrorAt *Timestamp   `json:"lastErrorAt,omitempty"`
}

// UpstreamStatus represents the circuit state of an external download.
type UpstreamStatus struct {
	Name          string       `json:"name"`
	Status        HealthStatus `json:"status"`
	Circuit       string       `json:"circuit"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}
