package production

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Stage is a position in the canonical production workflow.
// Values are ordered; StageOffice sits outside the sequence.
type Stage int

const (
	StageCutting Stage = iota
	StageSewing
	StageFoamCutting
	StageStuffing
	StagePackaging

	// StageOffice is the administrative intake/verification desk
	StageOffice Stage = -1
	// StageUnknown is returned when a name cannot be resolved
	StageUnknown Stage = -2
)

var stageNames = map[Stage]string{
	StageCutting:     "Cutting",
	StageSewing:      "Sewing",
	StageFoamCutting: "FoamCutting",
	StageStuffing:    "Stuffing",
	StagePackaging:   "Packaging",
	StageOffice:      "Office",
	StageUnknown:     "Unknown",
}

// WorkflowSequence returns the canonical ordering of production stages
func WorkflowSequence() []Stage {
	return []Stage{StageCutting, StageSewing, StageFoamCutting, StageStuffing, StagePackaging}
}

// String returns the canonical stage name
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return stageNames[StageUnknown]
}

// InWorkflow reports whether the stage is part of the canonical sequence
func (s Stage) InWorkflow() bool {
	return s >= StageCutting && s <= StagePackaging
}

// IsOffice reports whether the stage is the administrative desk
func (s Stage) IsOffice() bool {
	return s == StageOffice
}

// Index returns the position in the workflow sequence, or -1 for stages outside it
func (s Stage) Index() int {
	if !s.InWorkflow() {
		return -1
	}
	return int(s)
}

// Next returns the stage that follows s in the workflow.
// ok is false for the last stage and for stages outside the sequence.
func (s Stage) Next() (next Stage, ok bool) {
	if !s.InWorkflow() || s == StagePackaging {
		return StageUnknown, false
	}
	return s + 1, true
}

// IsForwardTransition reports whether moving from one stage to another is a
// strictly forward move in the workflow. Skipping stages counts as forward.
func IsForwardTransition(from, to Stage) bool {
	if !from.InWorkflow() || !to.InWorkflow() {
		return false
	}
	return to.Index() > from.Index()
}

// ParseStage resolves a station name to its stage. Matching ignores case,
// spaces, hyphens and underscores.
func ParseStage(name string) Stage {
	key := normalizeStageName(name)
	for stage, stageName := range stageNames {
		if stage == StageUnknown {
			continue
		}
		if normalizeStageName(stageName) == key {
			return stage
		}
	}
	return StageUnknown
}

func normalizeStageName(name string) string {
	r := strings.NewReplacer(" ", "", "-", "", "_", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(name)))
}

// Station is a physical or administrative work station on the floor
type Station struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Stage  Stage     `json:"stage"`
	Active bool      `json:"active"`
}

// IsOffice reports whether the station is the administrative desk
func (s Station) IsOffice() bool {
	return s.Stage.IsOffice()
}

// StationCatalog indexes the configured stations by ID and stage
type StationCatalog struct {
	byID    map[uuid.UUID]Station
	byStage map[Stage]Station
}

// NewStationCatalog builds a catalog from reference data.
// When several stations share a stage the first one wins the stage lookup.
func NewStationCatalog(stations []Station) *StationCatalog {
	c := &StationCatalog{
		byID:    make(map[uuid.UUID]Station, len(stations)),
		byStage: make(map[Stage]Station, len(stations)),
	}
	for _, st := range stations {
		c.byID[st.ID] = st
		if _, exists := c.byStage[st.Stage]; !exists && st.Stage != StageUnknown {
			c.byStage[st.Stage] = st
		}
	}
	return c
}

// Lookup returns the station with the given ID
func (c *StationCatalog) Lookup(id uuid.UUID) (Station, bool) {
	st, ok := c.byID[id]
	return st, ok
}

// ForStage returns the station configured for a stage
func (c *StationCatalog) ForStage(stage Stage) (Station, bool) {
	st, ok := c.byStage[stage]
	return st, ok
}

// StageOf returns the stage of a station ID, StageUnknown when not configured
func (c *StationCatalog) StageOf(id uuid.UUID) Stage {
	if st, ok := c.byID[id]; ok {
		return st.Stage
	}
	return StageUnknown
}

// OfficeStationIDs returns the IDs of all Office stations
func (c *StationCatalog) OfficeStationIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, 1)
	for id, st := range c.byID {
		if st.IsOffice() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Len returns the number of stations in the catalog
func (c *StationCatalog) Len() int {
	return len(c.byID)
}

// MarshalText encodes the stage by name
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a stage name; unresolvable names become StageUnknown
func (s *Stage) UnmarshalText(text []byte) error {
	*s = ParseStage(string(text))
	return nil
}
