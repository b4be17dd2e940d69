// Package job is the engine's single external entry point. The adapter
// validates parameters, sequences the session, search, extraction, and
// status-resolution stages, and always returns a uniform result envelope,
// never an error and never a panic.
package job

import (
	"time"

	"portalprobe/internal/evidence"
)

// nowFunc is swappable for tests.
var nowFunc = time.Now

// Params is the job execution contract consumed from the external queue.
// JobID and TargetID are required; everything else is optional.
type Params struct {
	JobID         string `yaml:"job_id" json:"job_id"`
	TargetID      string `yaml:"target_identifier" json:"target_identifier"`
	CustomerName  string `yaml:"customer_name,omitempty" json:"customer_name,omitempty"`
	CustomerID    string `yaml:"customer_id,omitempty" json:"customer_id,omitempty"`
	SecondaryID   string `yaml:"secondary_id,omitempty" json:"secondary_id,omitempty"`
	ExternalRef   string `yaml:"external_reference,omitempty" json:"external_reference,omitempty"`
	RequestedDate string `yaml:"requested_date,omitempty" json:"requested_date,omitempty"`
}

// Status is the envelope's top-level outcome.
type Status string

const (
	// StatusSuccess: the record was found and its status resolved.
	StatusSuccess Status = "success"
	// StatusFailure: the job ran to completion but the record was not found.
	StatusFailure Status = "failure"
	// StatusError: the job could not run (validation, initialization,
	// authentication exhaustion, or an unexpected fault).
	StatusError Status = "error"
)

// Envelope is the only object ever returned to the caller.
type Envelope struct {
	Status   Status                 `json:"status"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details"`
	Evidence []evidence.Item        `json:"evidence"`
}
