package analyzer

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
)

// groupNamespace seeds deterministic group ids.
var groupNamespace = uuid.MustParse("3d0f5f4e-2c4b-5d8e-9a41-7b6c2f1e8d90")

type GroupingResult struct {
	Groups   []models.SuspiciousGroup
	Coverage models.CoverageSummary
}

// Grouper partitions fingerprinted submissions into exact-match groups.
type Grouper interface {
	Group(scope models.Scope, submissions []*models.Submission, minSimilarity float64) GroupingResult
	Algorithm() string
}

type exactGrouper struct {
	algorithm          string
	includeExcludedIDs bool
}

func NewExactGrouper(algorithm string, includeExcludedIDs bool) Grouper {
	return &exactGrouper{
		algorithm:          strings.ToLower(algorithm),
		includeExcludedIDs: includeExcludedIDs,
	}
}

func (g *exactGrouper) Algorithm() string {
	return g.algorithm
}

// Group never compares digests partially: two submissions belong together only
// when their fingerprints are identical. Submissions without a fingerprint of
// the configured algorithm are left out and reported in the coverage summary.
func (g *exactGrouper) Group(scope models.Scope, submissions []*models.Submission, minSimilarity float64) GroupingResult {
	coverage := models.CoverageSummary{Total: len(submissions)}
	buckets := make(map[string][]*models.Submission)
	fingerprints := make(map[string]models.Fingerprint)

	for _, sub := range submissions {
		if sub.Fingerprint == nil || strings.ToLower(sub.Fingerprint.Algorithm) != g.algorithm {
			coverage.Excluded++
			if sub.Fingerprint != nil {
				coverage.Stale++
			}
			if g.includeExcludedIDs {
				coverage.ExcludedIDs = append(coverage.ExcludedIDs, sub.ID)
			}
			continue
		}

		fp := normalize(*sub.Fingerprint)
		key := fp.Key()
		buckets[key] = append(buckets[key], sub)
		if _, ok := fingerprints[key]; !ok {
			fingerprints[key] = fp
		}
		coverage.Analyzed++
	}
	coverage.Complete = coverage.Excluded == 0
	sort.Strings(coverage.ExcludedIDs)

	groups := make([]models.SuspiciousGroup, 0)
	for key, members := range buckets {
		if len(members) < 2 {
			continue
		}
		if !passesThreshold(models.ExactMatchConfidence, minSimilarity) {
			continue
		}

		fp := fingerprints[key]
		groups = append(groups, models.SuspiciousGroup{
			ID:          GroupID(scope, fp),
			Fingerprint: models.Fingerprint{Algorithm: fp.Algorithm, Hash: fp.Hash, Size: fp.Size},
			Members:     toMembers(members),
			Size:        len(members),
			Confidence:  models.ExactMatchConfidence,
			Reason:      models.ExactMatchReason(g.algorithm),
		})
	}

	SortGroups(groups)

	return GroupingResult{Groups: groups, Coverage: coverage}
}

// GroupID is stable for the same scope and fingerprint across runs.
func GroupID(scope models.Scope, fp models.Fingerprint) string {
	return uuid.NewSHA1(groupNamespace, []byte(scope.Key()+"|"+normalize(fp).Key())).String()
}

// SortGroups orders by group size descending, then by fingerprint.
func SortGroups(groups []models.SuspiciousGroup) {
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Size != groups[j].Size {
			return groups[i].Size > groups[j].Size
		}
		return groups[i].Fingerprint.Key() < groups[j].Fingerprint.Key()
	})
}

// ValidateThreshold accepts percentages in [0, 100].
func ValidateThreshold(minSimilarity float64) error {
	if math.IsNaN(minSimilarity) || minSimilarity < 0 || minSimilarity > 100 {
		return models.NewValidationError("min_similarity", "must be a percentage between 0 and 100")
	}
	return nil
}

func passesThreshold(confidence, minSimilarity float64) bool {
	return confidence*100 >= minSimilarity
}

func normalize(fp models.Fingerprint) models.Fingerprint {
	fp.Algorithm = strings.ToLower(strings.TrimSpace(fp.Algorithm))
	fp.Hash = strings.ToLower(strings.TrimSpace(fp.Hash))
	return fp
}

func toMembers(subs []*models.Submission) []models.GroupMember {
	members := make([]models.GroupMember, 0, len(subs))
	for _, s := range subs {
		members = append(members, models.GroupMember{
			SubmissionID:   s.ID,
			AssignmentID:   s.AssignmentID,
			StudentID:      s.StudentID,
			StudentName:    s.StudentName,
			RegisterNumber: s.RegisterNumber,
			ClassYear:      s.ClassYear,
			FileName:       s.FileName,
			SubmittedAt:    s.SubmittedAt,
			Status:         s.Status.String(),
		})
	}

	sort.Slice(members, func(i, j int) bool {
		if !members[i].SubmittedAt.Equal(members[j].SubmittedAt) {
			return members[i].SubmittedAt.Before(members[j].SubmittedAt)
		}
		return members[i].SubmissionID < members[j].SubmissionID
	})

	return members
}
