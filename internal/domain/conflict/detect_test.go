package conflict

import (
	"testing"
	"time"

	domainSync "github.com/jbctechsolutions/medsync/internal/domain/sync"
)

func reportPayload(modifiedAt *time.Time, content map[string]interface{}, status string, metadata map[string]interface{}) *domainSync.Payload {
	return &domainSync.Payload{
		Kind:       domainSync.PayloadReport,
		EntityID:   "rep-1",
		ModifiedAt: modifiedAt,
		Report: &domainSync.ReportContent{
			Content:  content,
			Status:   status,
			Metadata: metadata,
		},
	}
}

func TestDetectRemoteNotNewer(t *testing.T) {
	earlier := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	local := reportPayload(&later, map[string]interface{}{"findings": "a"}, "draft", nil)
	remote := reportPayload(&earlier, map[string]interface{}{"findings": "b"}, "final", nil)

	conflicts, skip := Detect(local, remote)
	if skip != "" {
		t.Fatalf("unexpected skip reason: %q", skip)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts when remote is older, got %d", len(conflicts))
	}
}

func TestDetectMissingTimestamps(t *testing.T) {
	now := time.Now().UTC()

	local := reportPayload(nil, map[string]interface{}{"findings": "a"}, "draft", nil)
	remote := reportPayload(&now, map[string]interface{}{"findings": "b"}, "final", nil)

	conflicts, skip := Detect(local, remote)
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts without timestamps, got %d", len(conflicts))
	}
	if skip == "" {
		t.Fatal("expected a skip reason for missing timestamps")
	}
}

func TestDetectReportConflicts(t *testing.T) {
	earlier := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	local := reportPayload(&earlier,
		map[string]interface{}{"findings": "clear lungs"},
		"draft",
		map[string]interface{}{"author": "dr-a"},
	)
	remote := reportPayload(&later,
		map[string]interface{}{"findings": "small nodule"},
		"final",
		map[string]interface{}{"author": "dr-b"},
	)

	conflicts, skip := Detect(local, remote)
	if skip != "" {
		t.Fatalf("unexpected skip reason: %q", skip)
	}
	if len(conflicts) != 3 {
		t.Fatalf("expected 3 conflicts (content, status, metadata), got %d", len(conflicts))
	}

	kinds := map[Kind]Severity{}
	for _, c := range conflicts {
		kinds[c.Kind] = c.Severity
	}
	if kinds[KindContentModified] != SeverityHigh {
		t.Errorf("content conflict severity = %q, want high", kinds[KindContentModified])
	}
	if kinds[KindStatusChanged] != SeverityMedium {
		t.Errorf("status conflict severity = %q, want medium", kinds[KindStatusChanged])
	}
	if kinds[KindMetadataUpdated] != SeverityLow {
		t.Errorf("metadata conflict severity = %q, want low", kinds[KindMetadataUpdated])
	}
}

func TestDetectLayoutAndVoice(t *testing.T) {
	earlier := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	layoutLocal := &domainSync.Payload{
		Kind:       domainSync.PayloadLayout,
		ModifiedAt: &earlier,
		Layout:     &domainSync.LayoutContent{Configuration: map[string]interface{}{"panes": float64(2)}},
	}
	layoutRemote := &domainSync.Payload{
		Kind:       domainSync.PayloadLayout,
		ModifiedAt: &later,
		Layout:     &domainSync.LayoutContent{Configuration: map[string]interface{}{"panes": float64(3)}},
	}

	conflicts, _ := Detect(layoutLocal, layoutRemote)
	if len(conflicts) != 1 || conflicts[0].Kind != KindLayoutModified {
		t.Fatalf("expected one layout conflict, got %+v", conflicts)
	}

	voiceLocal := &domainSync.Payload{
		Kind:       domainSync.PayloadVoice,
		ModifiedAt: &earlier,
		Voice:      &domainSync.VoiceContent{Transcription: "no acute findings"},
	}
	voiceRemote := &domainSync.Payload{
		Kind:       domainSync.PayloadVoice,
		ModifiedAt: &later,
		Voice:      &domainSync.VoiceContent{Transcription: "no acute findings today"},
	}

	conflicts, _ = Detect(voiceLocal, voiceRemote)
	if len(conflicts) != 1 || conflicts[0].Kind != KindVoiceDataConflict {
		t.Fatalf("expected one voice conflict, got %+v", conflicts)
	}
}

func TestDetectOpaquePayload(t *testing.T) {
	earlier := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	local := &domainSync.Payload{Kind: domainSync.PayloadOpaque, ModifiedAt: &earlier, Opaque: []byte(`{"a":1}`)}
	remote := &domainSync.Payload{Kind: domainSync.PayloadOpaque, ModifiedAt: &later, Opaque: []byte(`{"a":2}`)}

	conflicts, skip := Detect(local, remote)
	if skip != "" || len(conflicts) != 0 {
		t.Fatalf("opaque payloads must not produce conflicts, got %d (%q)", len(conflicts), skip)
	}
}

func TestSummarize(t *testing.T) {
	conflicts := []Descriptor{
		{Kind: KindContentModified, Severity: SeverityHigh},
		{Kind: KindStatusChanged, Severity: SeverityMedium},
		{Kind: KindContentModified, Severity: SeverityHigh},
	}

	s := Summarize(conflicts)
	if s.Total != 3 {
		t.Errorf("Total = %d, want 3", s.Total)
	}
	if s.ByKind[KindContentModified] != 2 {
		t.Errorf("content count = %d, want 2", s.ByKind[KindContentModified])
	}
	if s.BySeverity[SeverityHigh] != 2 {
		t.Errorf("high severity count = %d, want 2", s.BySeverity[SeverityHigh])
	}
}
