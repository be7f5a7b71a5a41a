package conflict

import (
	"fmt"

	domainSync "github.com/jbctechsolutions/medsync/internal/domain/sync"
)

// Result carries the outcome of a resolution pass. Merged starts as a deep
// copy of the local payload, so conflicts routed to user review leave the
// caller's local state untouched.
type Result struct {
	Merged      *domainSync.Payload
	Log         []string
	NeedsReview []Descriptor
}

// Resolve applies the per-kind resolution rules to the detected conflicts
// and returns the merged payload plus a human-readable log line per
// conflict. Given identical inputs and policy, the result is identical.
func Resolve(conflicts []Descriptor, local, remote *domainSync.Payload, pol Policy) Result {
	res := Result{Merged: local.Clone()}

	for _, c := range conflicts {
		resolution, why := decide(c, pol)

		switch resolution {
		case UseRemote:
			applyValue(res.Merged, c.Field, c.Remote)
			res.Log = append(res.Log, fmt.Sprintf("used remote value for %s: %s", c.Field, why))

		case UseLocal:
			// Local value stands; nothing to apply.
			res.Log = append(res.Log, fmt.Sprintf("kept local value for %s: %s", c.Field, why))

		case Merge:
			applyValue(res.Merged, c.Field, MergeValues(c.Local, c.Remote))
			res.Log = append(res.Log, fmt.Sprintf("merged values for %s: %s", c.Field, why))

		case UserReview:
			res.NeedsReview = append(res.NeedsReview, c)
			res.Log = append(res.Log, fmt.Sprintf("user review required for %s: %s", c.Field, why))
		}
	}

	// Remote is the newer copy; carry its timestamp only when nothing is
	// held back for review.
	if len(res.NeedsReview) == 0 && remote != nil && remote.ModifiedAt != nil {
		t := *remote.ModifiedAt
		res.Merged.ModifiedAt = &t
	}

	return res
}

// decide maps a conflict to its resolution rule and the reason applied.
func decide(c Descriptor, pol Policy) (Resolution, string) {
	switch c.Kind {
	case KindContentModified:
		return decideContent(c, pol)

	case KindStatusChanged:
		return decideStatus(c)

	case KindMetadataUpdated:
		return Merge, "merging metadata changes"

	case KindTemplateChanged:
		return UserReview, "template structure changes require user review"

	case KindLayoutModified:
		return UseLocal, "layout changes are user-specific, keeping local"

	case KindVoiceDataConflict:
		return UserReview, "voice transcription differences require user review"
	}

	// Unknown kinds keep local state; the log surfaces the gap.
	return UseLocal, fmt.Sprintf("no handler for conflict kind %q", c.Kind)
}

func decideContent(c Descriptor, pol Policy) (Resolution, string) {
	if pol.AutoResolveMinor && isMinorChange(c.Local, c.Remote) {
		return Merge, "minor content changes merged automatically"
	}

	localEmpty := isEmptyValue(c.Local)
	remoteEmpty := isEmptyValue(c.Remote)
	if localEmpty && !remoteEmpty {
		return UseRemote, "local content empty, using remote"
	}
	if !localEmpty && remoteEmpty {
		return UseLocal, "remote content empty, keeping local"
	}

	switch pol.Strategy {
	case StrategyLatestWins:
		return UseRemote, "using latest (remote) content"
	case StrategyMerge:
		return Merge, "attempting to merge content changes"
	default:
		return UserReview, "significant content changes require user review"
	}
}

func decideStatus(c Descriptor) (Resolution, string) {
	localStatus, _ := c.Local.(string)
	remoteStatus, _ := c.Remote.(string)
	localRank := StatusRank(localStatus)
	remoteRank := StatusRank(remoteStatus)

	switch {
	case remoteRank > localRank:
		return UseRemote, fmt.Sprintf("remote status %q has higher rank", remoteStatus)
	case localRank > remoteRank:
		return UseLocal, fmt.Sprintf("local status %q has higher rank", localStatus)
	default:
		return UseRemote, "same rank, using remote status"
	}
}

// applyValue writes a resolved value into the field it was detected on.
func applyValue(p *domainSync.Payload, field string, value interface{}) {
	switch field {
	case "content":
		if p.Report == nil {
			p.Report = &domainSync.ReportContent{}
		}
		if m, ok := value.(map[string]interface{}); ok {
			p.Report.Content = m
		}
	case "status":
		if p.Report == nil {
			p.Report = &domainSync.ReportContent{}
		}
		if s, ok := value.(string); ok {
			p.Report.Status = s
		}
	case "metadata":
		if p.Report == nil {
			p.Report = &domainSync.ReportContent{}
		}
		if m, ok := value.(map[string]interface{}); ok {
			p.Report.Metadata = m
		}
	case "structure":
		if p.Template == nil {
			p.Template = &domainSync.TemplateContent{}
		}
		if m, ok := value.(map[string]interface{}); ok {
			p.Template.Structure = m
		}
	case "configuration":
		if p.Layout == nil {
			p.Layout = &domainSync.LayoutContent{}
		}
		if m, ok := value.(map[string]interface{}); ok {
			p.Layout.Configuration = m
		}
	case "transcription":
		if p.Voice == nil {
			p.Voice = &domainSync.VoiceContent{}
		}
		if s, ok := value.(string); ok {
			p.Voice.Transcription = s
		}
	}
}
