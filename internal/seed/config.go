package seed

import (
	"time"

	"github.com/okian/skillmatch/internal/domain/model"
)

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL     string        // Base URL of the service
	NumUsers    int           // Number of users to generate
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	WaitTimeout time.Duration // How long to wait for enrichment to drain
	Seed        uint64        // Random seed; zero picks one from the clock
	Verbose     bool          // Log every request
}

// User is one generated user together with what they will create.
type User struct {
	ID       string
	Skills   []model.Skill
	Sessions []model.Session
}

// request is a single create call queued for submission.
type request struct {
	user string
	path string
	body any
}

// suggestionEnvelope mirrors the suggestion endpoints' response.
type suggestionEnvelope struct {
	Success bool                   `json:"success"`
	Data    []model.CandidateMatch `json:"data"`
}

// Stats holds run statistics.
type Stats struct {
	UsersGenerated       int
	RequestsSubmitted    int
	RequestsSuccessful   int
	RequestsFailed       int
	SuggestionsRetrieved int
	UsersWithMatches     int
	SelfMatches          int
	DuplicateCandidates  int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}
