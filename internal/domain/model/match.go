package model

// MatchingType classifies why a candidate was recommended.
type MatchingType string

// Matching classifications.
const (
	LearningMatch MatchingType = "learning_match"
	TeachingMatch MatchingType = "teaching_match"
	MutualMatch   MatchingType = "mutual_match"
)

// MatchedSkill summarises one candidate entity that qualified.
type MatchedSkill struct {
	EntityID   string   `json:"entity_id"`
	Kind       Kind     `json:"kind"`
	Name       string   `json:"name"`
	Role       Role     `json:"role,omitempty"`
	SharedTags []string `json:"shared_tags"`
}

// Candidate is a single raw hit from the matcher. One owner may produce
// several candidates.
type Candidate struct {
	OwnerID string
	Skill   MatchedSkill
}

// CandidateMatch is one recommendation row, unique per candidate owner.
type CandidateMatch struct {
	CandidateID   string         `json:"candidate_id"`
	MatchedSkills []MatchedSkill `json:"matched_skills"`
	MatchingType  MatchingType   `json:"matching_type"`
}
