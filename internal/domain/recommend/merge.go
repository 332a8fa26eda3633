package recommend

import "github.com/okian/skillmatch/internal/domain/model"

// Merge folds the learning pass and then the teaching pass into one row per
// candidate owner, in first-seen order. An owner found by both passes becomes
// a mutual match carrying the union of its matched entities.
func Merge(learning, teaching []model.Candidate) []model.CandidateMatch {
	order := make([]string, 0, len(learning)+len(teaching))
	rows := make(map[string]*model.CandidateMatch, len(learning)+len(teaching))
	seen := make(map[string]map[string]struct{})

	add := func(c model.Candidate, kind model.MatchingType) {
		row, ok := rows[c.OwnerID]
		if !ok {
			row = &model.CandidateMatch{CandidateID: c.OwnerID, MatchingType: kind}
			rows[c.OwnerID] = row
			seen[c.OwnerID] = make(map[string]struct{})
			order = append(order, c.OwnerID)
		} else if row.MatchingType != kind {
			row.MatchingType = model.MutualMatch
		}

		key := string(c.Skill.Kind) + "/" + c.Skill.EntityID
		if _, dup := seen[c.OwnerID][key]; dup {
			return
		}
		seen[c.OwnerID][key] = struct{}{}
		row.MatchedSkills = append(row.MatchedSkills, c.Skill)
	}

	for _, c := range learning {
		add(c, model.LearningMatch)
	}
	for _, c := range teaching {
		add(c, model.TeachingMatch)
	}

	out := make([]model.CandidateMatch, 0, len(order))
	for _, id := range order {
		out = append(out, *rows[id])
	}
	return out
}
