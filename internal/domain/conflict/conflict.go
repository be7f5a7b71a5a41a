// Package conflict implements detection and resolution of divergence between
// locally held and remotely fetched versions of the same entity.
package conflict

// Kind classifies a detected divergence.
type Kind string

const (
	KindContentModified   Kind = "content_modified"
	KindStatusChanged     Kind = "status_changed"
	KindMetadataUpdated   Kind = "metadata_updated"
	KindTemplateChanged   Kind = "template_changed"
	KindLayoutModified    Kind = "layout_modified"
	KindVoiceDataConflict Kind = "voice_data_conflict"
)

// Severity grades how risky an automatic resolution of the conflict is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Resolution names the rule applied to a conflict.
type Resolution string

const (
	UseLocal   Resolution = "use_local"
	UseRemote  Resolution = "use_remote"
	Merge      Resolution = "merge"
	UserReview Resolution = "user_review"
)

// Descriptor describes one detected conflict. Descriptors are transient:
// produced by Detect and consumed immediately by Resolve, persisted only
// through the resolution log.
type Descriptor struct {
	Kind     Kind
	Field    string
	Local    interface{}
	Remote   interface{}
	Severity Severity
}

// Strategy selects the default handling of significant content conflicts.
type Strategy string

const (
	StrategyLatestWins Strategy = "latest_wins"
	StrategyMerge      Strategy = "merge"
	StrategyUserReview Strategy = "user_review"
)

// Policy configures content conflict handling. Kind-specific rules (status
// rank, metadata merge, template/voice review, layout keep-local) are fixed
// and not policy-tunable.
type Policy struct {
	Strategy         Strategy
	AutoResolveMinor bool
}

// DefaultPolicy routes significant content conflicts to user review and
// auto-merges whitespace-only differences.
func DefaultPolicy() Policy {
	return Policy{
		Strategy:         StrategyUserReview,
		AutoResolveMinor: true,
	}
}

// statusRank orders report statuses monotonically. Resolution never moves a
// report backwards in this progression.
var statusRank = map[string]int{
	"draft":     1,
	"in_review": 2,
	"reviewed":  3,
	"final":     4,
	"signed":    5,
}

// StatusRank returns the progression rank of a report status; unknown
// statuses rank below draft.
func StatusRank(status string) int {
	return statusRank[status]
}

// Summary aggregates conflicts by kind and severity for reporting.
type Summary struct {
	Total      int              `json:"total"`
	ByKind     map[Kind]int     `json:"by_kind"`
	BySeverity map[Severity]int `json:"by_severity"`
}

// Summarize builds a Summary over the given conflicts.
func Summarize(conflicts []Descriptor) Summary {
	s := Summary{
		Total:      len(conflicts),
		ByKind:     make(map[Kind]int),
		BySeverity: make(map[Severity]int),
	}
	for _, c := range conflicts {
		s.ByKind[c.Kind]++
		severity := c.Severity
		if severity == "" {
			severity = "unknown"
		}
		s.BySeverity[severity]++
	}
	return s
}
