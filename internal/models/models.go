// Package models holds the XML documents of a 3MF package: the core model
// and the Bambu Studio model settings.
package models

import "encoding/xml"

// Namespaces used in written models
const (
	CoreNamespace        = "http://schemas.microsoft.com/3dmanufacturing/core/2015/02"
	ProductionNamespace  = "http://schemas.microsoft.com/3dmanufacturing/production/2015/06"
	BambuStudioNamespace = "http://schemas.bambulab.com/package/2021"
)

// Model represents a 3MF model structure
type Model struct {
	XMLName            xml.Name   `xml:"model"`
	Xmlns              string     `xml:"xmlns,attr"`
	XmlnsBambuStudio   string     `xml:"xmlns:BambuStudio,attr,omitempty"`
	XmlnsP             string     `xml:"xmlns:p,attr,omitempty"`
	RequiredExtensions string     `xml:"requiredextensions,attr,omitempty"`
	Unit               string     `xml:"unit,attr"`
	Lang               string     `xml:"xml:lang,attr,omitempty"`
	Metadata           []Metadata `xml:"metadata"`
	Resources          Resources  `xml:"resources"`
	Build              Build      `xml:"build"`
}

type Metadata struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type Resources struct {
	Objects []Object `xml:"object"`
}

type Object struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr,omitempty"`
	Type string `xml:"type,attr"`
	Mesh *Mesh  `xml:"mesh"`
}

type Mesh struct {
	Vertices  []Vertex   `xml:"vertices>vertex"`
	Triangles []Triangle `xml:"triangles>triangle"`
}

type Vertex struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
	Z float64 `xml:"z,attr"`
}

type Triangle struct {
	V1 int `xml:"v1,attr"`
	V2 int `xml:"v2,attr"`
	V3 int `xml:"v3,attr"`
}

type Build struct {
	Items []Item `xml:"item"`
}

type Item struct {
	ObjectID  string `xml:"objectid,attr"`
	Transform string `xml:"transform,attr,omitempty"`
	Printable string `xml:"printable,attr,omitempty"`
}

// ModelSettings is the Bambu Studio Metadata/model_settings.config document
type ModelSettings struct {
	XMLName  xml.Name         `xml:"config"`
	Objects  []SettingsObject `xml:"object"`
	Plate    Plate            `xml:"plate"`
	Assemble Assemble         `xml:"assemble"`
}

type SettingsObject struct {
	ID       string             `xml:"id,attr"`
	Metadata []SettingsMetadata `xml:"metadata"`
	Parts    []Part             `xml:"part"`
}

type SettingsMetadata struct {
	Key       string `xml:"key,attr,omitempty"`
	Value     string `xml:"value,attr,omitempty"`
	FaceCount int    `xml:"face_count,attr,omitempty"`
}

type Part struct {
	ID       string             `xml:"id,attr"`
	Subtype  string             `xml:"subtype,attr"`
	Metadata []SettingsMetadata `xml:"metadata"`
	MeshStat MeshStat           `xml:"mesh_stat"`
}

type MeshStat struct {
	FaceCount        int `xml:"face_count,attr"`
	EdgesFixed       int `xml:"edges_fixed,attr"`
	DegenerateFacets int `xml:"degenerate_facets,attr"`
	FacetsRemoved    int `xml:"facets_removed,attr"`
	FacetsReversed   int `xml:"facets_reversed,attr"`
	BackwardsEdges   int `xml:"backwards_edges,attr"`
}

type Plate struct {
	Metadata       []SettingsMetadata `xml:"metadata"`
	ModelInstances []ModelInstance    `xml:"model_instance"`
}

type ModelInstance struct {
	Metadata []SettingsMetadata `xml:"metadata"`
}

type Assemble struct {
	Items []AssembleItem `xml:"assemble_item"`
}

type AssembleItem struct {
	ObjectID   string `xml:"object_id,attr"`
	InstanceID string `xml:"instance_id,attr"`
	Transform  string `xml:"transform,attr"`
	Offset     string `xml:"offset,attr"`
}
