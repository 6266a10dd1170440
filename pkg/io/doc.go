// Package io reads and writes hierarchical dataflow graphs as JSON.
//
// # Overview
//
// Two input shapes are accepted by [ReadJSON] and [ImportJSON]. The plain
// format lists containers with their children directly:
//
//	{
//	  "nodes": [{"id": "1", "label": "map"}, {"id": "2"}, {"id": "3"}],
//	  "edges": [{"id": "e1", "source": "1", "target": "3", "style": "Network"}],
//	  "containers": [{"id": "A", "children": ["1", "2"], "collapsed": true}]
//	}
//
// The producer format carries several alternative groupings. Each entry of
// hierarchyChoices is a tree of containers, and nodeAssignments maps every
// choice id to a node -> container table:
//
//	{
//	  "nodes": [{"id": "1", "shortLabel": "map", "nodeType": "Transform"}],
//	  "edges": [{"id": "e1", "source": "1", "target": "2", "semanticTags": ["Network", "Unbounded"]}],
//	  "hierarchyChoices": [{"id": "location", "name": "Location", "children": [{"id": "loc_0", "name": "Process 0", "children": []}]}],
//	  "nodeAssignments": {"location": {"1": "loc_0"}},
//	  "selectedHierarchy": "location"
//	}
//
// [WithHierarchy] picks a choice; without it the document's
// selectedHierarchy, or else the first choice, is used. Edge semantic tags
// become the edge style.
//
// # Snapshots
//
// [WriteJSON] writes the plain format plus the viewer state: collapsed and
// hidden flags, geometry and cached expanded sizes. Reading a snapshot back
// restores an equivalent graph, hyperedges included, since those are derived
// from the collapsed flags.
package io
