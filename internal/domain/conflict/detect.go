package conflict

import (
	"reflect"

	domainSync "github.com/jbctechsolutions/medsync/internal/domain/sync"
)

// Detect compares local and remote snapshots of the same entity and returns
// the conflicts between them. Detection only runs when the remote copy is
// strictly newer than the local one; otherwise the local state stands.
//
// When either modification timestamp is missing the versions cannot be
// compared safely, so Detect returns no conflicts and a non-empty skipReason
// for the caller to log. Resolution then falls through to the local state.
func Detect(local, remote *domainSync.Payload) (conflicts []Descriptor, skipReason string) {
	if local == nil || remote == nil {
		return nil, "missing snapshot, cannot compare versions"
	}
	if local.ModifiedAt == nil || remote.ModifiedAt == nil {
		return nil, "missing modification timestamps, cannot detect conflicts"
	}
	if !remote.ModifiedAt.After(*local.ModifiedAt) {
		return nil, ""
	}

	switch local.Kind {
	case domainSync.PayloadReport:
		conflicts = detectReportConflicts(local.Report, remote.Report)
	case domainSync.PayloadTemplate:
		conflicts = detectTemplateConflicts(local.Template, remote.Template)
	case domainSync.PayloadLayout:
		conflicts = detectLayoutConflicts(local.Layout, remote.Layout)
	case domainSync.PayloadVoice:
		conflicts = detectVoiceConflicts(local.Voice, remote.Voice)
	default:
		// Opaque payloads are transported, never interpreted.
	}
	return conflicts, ""
}

func detectReportConflicts(local, remote *domainSync.ReportContent) []Descriptor {
	if local == nil || remote == nil {
		return nil
	}
	var conflicts []Descriptor

	if !reflect.DeepEqual(local.Content, remote.Content) {
		conflicts = append(conflicts, Descriptor{
			Kind:     KindContentModified,
			Field:    "content",
			Local:    local.Content,
			Remote:   remote.Content,
			Severity: SeverityHigh,
		})
	}

	if local.Status != remote.Status {
		conflicts = append(conflicts, Descriptor{
			Kind:     KindStatusChanged,
			Field:    "status",
			Local:    local.Status,
			Remote:   remote.Status,
			Severity: SeverityMedium,
		})
	}

	if !reflect.DeepEqual(local.Metadata, remote.Metadata) {
		conflicts = append(conflicts, Descriptor{
			Kind:     KindMetadataUpdated,
			Field:    "metadata",
			Local:    local.Metadata,
			Remote:   remote.Metadata,
			Severity: SeverityLow,
		})
	}

	return conflicts
}

func detectTemplateConflicts(local, remote *domainSync.TemplateContent) []Descriptor {
	if local == nil || remote == nil {
		return nil
	}
	if reflect.DeepEqual(local.Structure, remote.Structure) {
		return nil
	}
	return []Descriptor{{
		Kind:     KindTemplateChanged,
		Field:    "structure",
		Local:    local.Structure,
		Remote:   remote.Structure,
		Severity: SeverityHigh,
	}}
}

func detectLayoutConflicts(local, remote *domainSync.LayoutContent) []Descriptor {
	if local == nil || remote == nil {
		return nil
	}
	if reflect.DeepEqual(local.Configuration, remote.Configuration) {
		return nil
	}
	return []Descriptor{{
		Kind:     KindLayoutModified,
		Field:    "configuration",
		Local:    local.Configuration,
		Remote:   remote.Configuration,
		Severity: SeverityMedium,
	}}
}

func detectVoiceConflicts(local, remote *domainSync.VoiceContent) []Descriptor {
	if local == nil || remote == nil {
		return nil
	}
	if local.Transcription == remote.Transcription {
		return nil
	}
	return []Descriptor{{
		Kind:     KindVoiceDataConflict,
		Field:    "transcription",
		Local:    local.Transcription,
		Remote:   remote.Transcription,
		Severity: SeverityHigh,
	}}
}
