package spine

import (
	"sort"
	"strings"
	"time"

	"github.com/HendryAvila/casespine/internal/fingerprint"
	"github.com/google/uuid"
)

// ─── Enumerations ────────────────────────────────────────────────────────────

// FileKind is the declared kind of an imported source file.
type FileKind string

const (
	KindCSV  FileKind = "csv"
	KindPDF  FileKind = "pdf"
	KindTXT  FileKind = "txt"
	KindDOCX FileKind = "docx"
	KindJSON FileKind = "json"
	KindMSG  FileKind = "msg"
)

var validKinds = map[FileKind]bool{
	KindCSV: true, KindPDF: true, KindTXT: true, KindDOCX: true, KindJSON: true, KindMSG: true,
}

// ParseFileKind normalizes s (an extension with or without the dot) to a FileKind.
func ParseFileKind(s string) (FileKind, bool) {
	k := FileKind(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	return k, validKinds[k]
}

// Platform is the messaging platform a spine item came from.
type Platform string

const (
	PlatformSMS      Platform = "SMS"
	PlatformAppClose Platform = "AppClose"
	PlatformEmail    Platform = "Email"
	PlatformWhatsApp Platform = "WhatsApp"
	PlatformOther    Platform = "Other"
)

var validPlatforms = map[Platform]bool{
	PlatformSMS: true, PlatformAppClose: true, PlatformEmail: true, PlatformWhatsApp: true, PlatformOther: true,
}

// Category is the closed set of subject categories for a spine item.
type Category string

const (
	CategoryAccessDenied         Category = "access-denied"
	CategoryFinancialStrain      Category = "financial-strain"
	CategoryCustodyDispute       Category = "custody-dispute"
	CategoryCommunicationBlocked Category = "communication-blocked"
	CategoryMedicalConcern       Category = "medical-concern"
	CategorySafetyIssue          Category = "safety-issue"
	CategoryProcedural           Category = "procedural"
	CategoryOther                Category = "other"
)

var validCategories = map[Category]bool{
	CategoryAccessDenied: true, CategoryFinancialStrain: true, CategoryCustodyDispute: true,
	CategoryCommunicationBlocked: true, CategoryMedicalConcern: true, CategorySafetyIssue: true,
	CategoryProcedural: true, CategoryOther: true,
}

// ParseCategory accepts the canonical value as well as the
// Title_Snake_Case spelling older exports used ("Access_Denied").
func ParseCategory(s string) (Category, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "_", "-")
	c := Category(v)
	return c, validCategories[c]
}

// Lane is the coarse subject-matter grouping used by narrative views.
type Lane string

const (
	LaneCustody    Lane = "CUSTODY"
	LaneFinancial  Lane = "FINANCIAL"
	LaneSafety     Lane = "SAFETY"
	LaneProcedural Lane = "PROCEDURAL"
)

var validLanes = map[Lane]bool{
	LaneCustody: true, LaneFinancial: true, LaneSafety: true, LaneProcedural: true,
}

// ParseLane normalizes s to a Lane, case-insensitively.
func ParseLane(s string) (Lane, bool) {
	l := Lane(strings.ToUpper(strings.TrimSpace(s)))
	return l, validLanes[l]
}

// EvidenceType describes what kind of artifact a spine item records.
type EvidenceType string

const (
	TypeText     EvidenceType = "text"
	TypeVoice    EvidenceType = "voice"
	TypeFile     EvidenceType = "file"
	TypeMessage  EvidenceType = "message"
	TypeDocument EvidenceType = "document"
	TypeIncident EvidenceType = "incident"
	TypeEmail    EvidenceType = "email"
)

var validTypes = map[EvidenceType]bool{
	TypeText: true, TypeVoice: true, TypeFile: true, TypeMessage: true,
	TypeDocument: true, TypeIncident: true, TypeEmail: true,
}

// ParseEvidenceType normalizes s to an EvidenceType, case-insensitively.
func ParseEvidenceType(s string) (EvidenceType, bool) {
	t := EvidenceType(strings.ToLower(strings.TrimSpace(s)))
	return t, validTypes[t]
}

// EventStatus is the assertion state of a timeline event.
type EventStatus string

const (
	StatusAsserted  EventStatus = "asserted"
	StatusDenied    EventStatus = "denied"
	StatusWithdrawn EventStatus = "withdrawn"
	StatusPending   EventStatus = "pending"
	StatusResolved  EventStatus = "resolved"
	StatusFact      EventStatus = "fact"
)

var validStatuses = map[EventStatus]bool{
	StatusAsserted: true, StatusDenied: true, StatusWithdrawn: true,
	StatusPending: true, StatusResolved: true, StatusFact: true,
}

// ParseEventStatus normalizes s to an EventStatus.
func ParseEventStatus(s string) (EventStatus, bool) {
	st := EventStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, validStatuses[st]
}

// TargetType is what a sticky note is attached to.
type TargetType string

const (
	TargetSpine    TargetType = "spine"
	TargetTimeline TargetType = "timeline"
	TargetEvidence TargetType = "evidence"
)

var validTargets = map[TargetType]bool{TargetSpine: true, TargetTimeline: true, TargetEvidence: true}

// NoteColor is the closed set of sticky note colors.
type NoteColor string

const (
	ColorYellow NoteColor = "yellow"
	ColorPink   NoteColor = "pink"
	ColorBlue   NoteColor = "blue"
	ColorGreen  NoteColor = "green"
)

var validColors = map[NoteColor]bool{ColorYellow: true, ColorPink: true, ColorBlue: true, ColorGreen: true}

// ─── Records ─────────────────────────────────────────────────────────────────

// SourceFile is the provenance record for one imported file.
type SourceFile struct {
	ID          string   `json:"id"`
	FileName    string   `json:"fileName"`
	FileHash    string   `json:"fileHash"`
	ImportedAt  string   `json:"importedAt"`
	FileType    FileKind `json:"fileType"`
	RecordCount int      `json:"recordCount"`
}

// SpineItem is a single evidentiary record. ContentOriginal is write-once;
// ContentNeutral is a separately editable paraphrase.
type SpineItem struct {
	ID              string       `json:"id"`
	SourceID        string       `json:"sourceId"`
	Timestamp       string       `json:"timestamp"`
	Counterpart     string       `json:"counterpart,omitempty"`
	Platform        Platform     `json:"platform,omitempty"`
	Category        Category     `json:"category,omitempty"`
	ContentOriginal string       `json:"contentOriginal"`
	ContentNeutral  *string      `json:"contentNeutral,omitempty"`
	Fingerprint     string       `json:"sha256Fingerprint"`
	CreatedAt       string       `json:"createdAt"`
	FileName        string       `json:"fileName,omitempty"`
	LastModified    *int64       `json:"lastModified,omitempty"`
	Type            EvidenceType `json:"type"`
	Verified        bool         `json:"verified"`
	Confidence      float64      `json:"confidence"`
	Lane            Lane         `json:"lane,omitempty"`
	Tags            []string     `json:"tags"`
	ExhibitCode     string       `json:"exhibitCode,omitempty"`
	Reliability     string       `json:"reliability,omitempty"`
	Source          string       `json:"source,omitempty"`
	Title           string       `json:"title,omitempty"`
	Notes           string       `json:"notes,omitempty"`
}

// TimelineEvent is a curated narrative beat built from spine items.
type TimelineEvent struct {
	ID          string      `json:"id"`
	Date        string      `json:"date"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Lane        Lane        `json:"lane"`
	Status      EventStatus `json:"status"`
	SpineRefs   []string    `json:"spineRefs"`
	CreatedAt   string      `json:"createdAt"`
}

// StickyNote is a user annotation. Private notes never leave the store
// through an export unless the caller asks for them.
type StickyNote struct {
	ID         string     `json:"id"`
	TargetType TargetType `json:"targetType"`
	TargetID   string     `json:"targetId"`
	Text       string     `json:"text"`
	Color      NoteColor  `json:"color"`
	IsPrivate  bool       `json:"isPrivate"`
	CreatedAt  string     `json:"createdAt"`
	X          *float64   `json:"x,omitempty"`
	Y          *float64   `json:"y,omitempty"`
}

// ─── Constructors ────────────────────────────────────────────────────────────

// DefaultConfidence is assigned to imported records nobody has reviewed yet.
const DefaultConfidence = 0.85

// NewSourceFile builds a provenance record for content.
func NewSourceFile(fileName, content string, kind FileKind, recordCount int) SourceFile {
	return SourceFile{
		ID:          NewID("source"),
		FileName:    fileName,
		FileHash:    fingerprint.Of(content),
		ImportedAt:  Now(),
		FileType:    kind,
		RecordCount: recordCount,
	}
}

// NewSpineItem builds a spine item for content with every default filled.
func NewSpineItem(sourceID, content string) SpineItem {
	item := SpineItem{
		SourceID:        sourceID,
		ContentOriginal: content,
	}
	item.applyDefaults()
	return item
}

// applyDefaults fills unset fields. It is the single place spine defaults
// live; the store calls it before every insert. The fingerprint is always
// derived from ContentOriginal, whatever the caller supplied.
func (it *SpineItem) applyDefaults() {
	now := Now()
	if it.ID == "" {
		it.ID = NewID("spine")
	}
	it.Fingerprint = fingerprint.Of(it.ContentOriginal)
	if it.Timestamp == "" {
		it.Timestamp = now
	}
	if it.CreatedAt == "" {
		it.CreatedAt = now
	}
	if it.Type == "" {
		it.Type = TypeDocument
	}
	if it.Confidence == 0 {
		it.Confidence = DefaultConfidence
	}
	if it.Tags == nil {
		it.Tags = []string{}
	}
}

// NewTimelineEvent builds an asserted timeline event referencing items. The
// date defaults to the earliest item timestamp, or now when items is empty.
func NewTimelineEvent(title string, items []SpineItem) TimelineEvent {
	ev := TimelineEvent{
		ID:        NewID("timeline"),
		Date:      Now(),
		Title:     strings.TrimSpace(title),
		Status:    StatusAsserted,
		Lane:      LaneCustody,
		SpineRefs: make([]string, 0, len(items)),
		CreatedAt: Now(),
	}

	var earliest time.Time
	for _, it := range items {
		ev.SpineRefs = append(ev.SpineRefs, it.ID)
		ts, err := ParseTime(it.Timestamp)
		if err != nil {
			continue
		}
		if earliest.IsZero() || ts.Before(earliest) {
			earliest = ts
		}
	}
	if !earliest.IsZero() {
		ev.Date = FormatTime(earliest)
	}
	return ev
}

func (ev *TimelineEvent) applyDefaults() {
	if ev.ID == "" {
		ev.ID = NewID("timeline")
	}
	if ev.CreatedAt == "" {
		ev.CreatedAt = Now()
	}
	if ev.Date == "" {
		ev.Date = ev.CreatedAt
	}
	if ev.Status == "" {
		ev.Status = StatusAsserted
	}
	if ev.SpineRefs == nil {
		ev.SpineRefs = []string{}
	}
	ev.SpineRefs = dedupeSorted(ev.SpineRefs)
}

// NewStickyNote builds a private yellow note on the given target.
func NewStickyNote(target TargetType, targetID, text string) StickyNote {
	return StickyNote{
		ID:         NewID("note"),
		TargetType: target,
		TargetID:   targetID,
		Text:       text,
		Color:      ColorYellow,
		IsPrivate:  true,
		CreatedAt:  Now(),
	}
}

func (n *StickyNote) applyDefaults() {
	if n.ID == "" {
		n.ID = NewID("note")
	}
	if n.Color == "" {
		n.Color = ColorYellow
	}
	if n.TargetType == "" {
		n.TargetType = TargetEvidence
	}
	if n.CreatedAt == "" {
		n.CreatedAt = Now()
	}
}

// ─── Validation ──────────────────────────────────────────────────────────────

func (sf SourceFile) validate() error {
	if sf.ID == "" {
		return invalidf("source: id is required")
	}
	if sf.FileHash == "" {
		return invalidf("source %s: fileHash is required", sf.ID)
	}
	if !validKinds[sf.FileType] {
		return invalidf("source %s: unknown fileType %q", sf.ID, sf.FileType)
	}
	return nil
}

func (it SpineItem) validate() error {
	if it.ContentOriginal == "" {
		return invalidf("spine item %s: contentOriginal is required", it.ID)
	}
	if it.Platform != "" && !validPlatforms[it.Platform] {
		return invalidf("spine item %s: unknown platform %q", it.ID, it.Platform)
	}
	if it.Category != "" && !validCategories[it.Category] {
		return invalidf("spine item %s: unknown category %q", it.ID, it.Category)
	}
	if it.Lane != "" && !validLanes[it.Lane] {
		return invalidf("spine item %s: unknown lane %q", it.ID, it.Lane)
	}
	if !validTypes[it.Type] {
		return invalidf("spine item %s: unknown type %q", it.ID, it.Type)
	}
	return nil
}

func (ev TimelineEvent) validate() error {
	if ev.Title == "" {
		return invalidf("timeline event %s: title is required", ev.ID)
	}
	if !validStatuses[ev.Status] {
		return invalidf("timeline event %s: unknown status %q", ev.ID, ev.Status)
	}
	if ev.Lane != "" && !validLanes[ev.Lane] {
		return invalidf("timeline event %s: unknown lane %q", ev.ID, ev.Lane)
	}
	return nil
}

func (n StickyNote) validate() error {
	if !validTargets[n.TargetType] {
		return invalidf("sticky note %s: unknown targetType %q", n.ID, n.TargetType)
	}
	if !validColors[n.Color] {
		return invalidf("sticky note %s: unknown color %q", n.ID, n.Color)
	}
	return nil
}

// ─── Time and identity helpers ───────────────────────────────────────────────

// TimeLayout is the ISO-8601 layout used for every stored timestamp.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Now returns the current UTC time in TimeLayout.
func Now() string {
	return FormatTime(timeNow())
}

// NowMillis returns the current time in epoch milliseconds.
func NowMillis() int64 {
	return timeNow().UnixMilli()
}

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a stored timestamp. RFC 3339 variants are accepted so
// records restored from other tools still sort correctly.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// NewID returns a random identifier with the given prefix.
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

func dedupeSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
