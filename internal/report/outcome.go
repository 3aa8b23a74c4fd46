package report

import "time"

// Status classifies how a job ended
type Status int

const (
	StatusSkip Status = iota
	StatusNew
	StatusRecompile
	StatusWarning
	StatusError
)

// reportOrder is the order in which status groups appear in the report file
var reportOrder = []Status{StatusError, StatusWarning, StatusRecompile, StatusNew, StatusSkip}

// summaryOrder is the order of the per-status counts in the summary line
var summaryOrder = []Status{StatusSkip, StatusRecompile, StatusNew, StatusWarning, StatusError}

func (s Status) String() string {
	switch s {
	case StatusSkip:
		return "SKIP"
	case StatusNew:
		return "NEW"
	case StatusRecompile:
		return "RECOMPILE"
	case StatusWarning:
		return "WARNING"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the terminal result of one job
type Outcome struct {
	Job     string
	Profile string
	Source  string
	Status  Status

	// Message holds the diagnostic text for warnings and errors
	Message string

	// Reason explains why a job was rebuilt
	Reason string

	// AddedIncludes and RemovedIncludes describe how the include set changed since the last build
	AddedIncludes   []string
	RemovedIncludes []string

	OldHash string
	NewHash string
	Output  string
	Elapsed time.Duration
}

// Counts is the number of outcomes per status
type Counts map[Status]int

// Compiled returns the number of jobs the backend produced output for
func (c Counts) Compiled() int {
	return c[StatusNew] + c[StatusRecompile] + c[StatusWarning]
}
