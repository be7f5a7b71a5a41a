package sync

import (
	"encoding/json"
	"time"
)

// PayloadKind tags the payload union with the domain shape it carries.
type PayloadKind string

const (
	PayloadReport   PayloadKind = "report"
	PayloadTemplate PayloadKind = "template"
	PayloadLayout   PayloadKind = "layout"
	PayloadVoice    PayloadKind = "voice"
	PayloadOpaque   PayloadKind = "opaque"
)

// Payload is a tagged union of the domain payload kinds the engine knows how
// to compare, plus an opaque fallback for payloads it only transports.
// Exactly one of the kind-specific fields is set, matching Kind.
type Payload struct {
	Kind       PayloadKind      `json:"kind"`
	EntityID   string           `json:"entity_id,omitempty"`
	ModifiedAt *time.Time       `json:"modified_at,omitempty"`
	Report     *ReportContent   `json:"report,omitempty"`
	Template   *TemplateContent `json:"template,omitempty"`
	Layout     *LayoutContent   `json:"layout,omitempty"`
	Voice      *VoiceContent    `json:"voice,omitempty"`
	Opaque     json.RawMessage  `json:"opaque,omitempty"`
}

// ReportContent carries the comparable fields of a medical report.
type ReportContent struct {
	Content  map[string]interface{} `json:"content,omitempty"`
	Status   string                 `json:"status,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// TemplateContent carries the structure of a report template.
type TemplateContent struct {
	Structure map[string]interface{} `json:"structure,omitempty"`
}

// LayoutContent carries a per-user layout configuration.
type LayoutContent struct {
	Configuration map[string]interface{} `json:"configuration,omitempty"`
}

// VoiceContent carries a dictation session transcription.
type VoiceContent struct {
	Transcription string `json:"transcription,omitempty"`
}

// Clone returns a deep copy of the payload. Resolution mutates the copy so
// the caller's local state survives a user_review outcome untouched.
func (p *Payload) Clone() *Payload {
	if p == nil {
		return nil
	}
	out := &Payload{Kind: p.Kind, EntityID: p.EntityID}
	if p.ModifiedAt != nil {
		t := *p.ModifiedAt
		out.ModifiedAt = &t
	}
	if p.Report != nil {
		out.Report = &ReportContent{
			Content:  cloneMap(p.Report.Content),
			Status:   p.Report.Status,
			Metadata: cloneMap(p.Report.Metadata),
		}
	}
	if p.Template != nil {
		out.Template = &TemplateContent{Structure: cloneMap(p.Template.Structure)}
	}
	if p.Layout != nil {
		out.Layout = &LayoutContent{Configuration: cloneMap(p.Layout.Configuration)}
	}
	if p.Voice != nil {
		out.Voice = &VoiceContent{Transcription: p.Voice.Transcription}
	}
	if p.Opaque != nil {
		out.Opaque = append(json.RawMessage(nil), p.Opaque...)
	}
	return out
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch vv := v.(type) {
		case map[string]interface{}:
			out[k] = cloneMap(vv)
		case []interface{}:
			out[k] = append([]interface{}(nil), vv...)
		default:
			out[k] = v
		}
	}
	return out
}
