package io

import (
	"github.com/matzehuels/flowscope/pkg/hgraph"
)

type document struct {
	Nodes      []node      `json:"nodes"`
	Edges      []edge      `json:"edges"`
	Containers []container `json:"containers,omitempty"`

	HierarchyChoices  []choice                     `json:"hierarchyChoices,omitempty"`
	NodeAssignments   map[string]map[string]string `json:"nodeAssignments,omitempty"`
	SelectedHierarchy string                       `json:"selectedHierarchy,omitempty"`

	Geometry      map[string]hgraph.Geometry `json:"geometry,omitempty"`
	ExpandedSizes map[string]hgraph.Size     `json:"expandedSizes,omitempty"`
}

type node struct {
	ID         string          `json:"id"`
	Label      string          `json:"label,omitempty"`
	ShortLabel string          `json:"shortLabel,omitempty"`
	FullLabel  string          `json:"fullLabel,omitempty"`
	NodeType   string          `json:"nodeType,omitempty"`
	Style      string          `json:"style,omitempty"`
	Hidden     bool            `json:"hidden,omitempty"`
	Meta       hgraph.Metadata `json:"meta,omitempty"`
	Data       *nodeData       `json:"data,omitempty"`
}

type nodeData struct {
	LocationKey  any `json:"locationKey,omitempty"`
	LocationType any `json:"locationType,omitempty"`
}

type edge struct {
	ID           string          `json:"id"`
	Source       string          `json:"source"`
	Target       string          `json:"target"`
	Style        string          `json:"style,omitempty"`
	SemanticTags []string        `json:"semanticTags,omitempty"`
	Label        string          `json:"label,omitempty"`
	Hidden       bool            `json:"hidden,omitempty"`
	Meta         hgraph.Metadata `json:"meta,omitempty"`
}

type container struct {
	ID        string          `json:"id"`
	Label     string          `json:"label,omitempty"`
	Children  []string        `json:"children"`
	Collapsed bool            `json:"collapsed,omitempty"`
	Hidden    bool            `json:"hidden,omitempty"`
	Width     float64         `json:"width,omitempty"`
	Height    float64         `json:"height,omitempty"`
	Meta      hgraph.Metadata `json:"meta,omitempty"`
}

type choice struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Children []choice `json:"children"`
}

// Metadata keys filled from the producer format.
const (
	MetaNodeType     = "node_type"
	MetaFullLabel    = "full_label"
	MetaLocationKey  = "location_key"
	MetaLocationType = "location_type"
	MetaEdgeLabel    = "label"
)
