// Package threemf reads and writes 3MF packages holding a single mesh
// object, with the model settings Bambu Studio expects.
package threemf

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/philipparndt/citysolid/internal/geometry"
	"github.com/philipparndt/citysolid/internal/mesh"
	"github.com/philipparndt/citysolid/internal/models"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	modelPath    = "3D/3dmodel.model"
	settingsPath = "Metadata/model_settings.config"
	objectID     = "1"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
	<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
	<Default Extension="model" ContentType="application/vnd.ms-package.3dmanufacturing-3dmodel+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
	<Relationship Id="rel0" Target="/3D/3dmodel.model" Type="http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"/>
</Relationships>`

// Writer writes 3MF files
type Writer struct {
	Application string
	// Now stamps the creation date, time.Now when nil
	Now func() time.Time
}

// NewWriter creates a writer tagging packages with the application name
func NewWriter(application string) *Writer {
	return &Writer{Application: application}
}

// Write encodes m as a 3MF package into out
func (w *Writer) Write(out io.Writer, m *mesh.Mesh) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid mesh: %w", err)
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	model := &models.Model{
		Xmlns: models.CoreNamespace,
		Unit:  "millimeter",
		Lang:  "en-US",
		Resources: models.Resources{
			Objects: []models.Object{
				{ID: objectID, Name: m.Name, Type: "model", Mesh: toXMLMesh(m)},
			},
		},
		Build: models.Build{
			Items: []models.Item{
				{ObjectID: objectID, Transform: geometry.IdentityTransform, Printable: "1"},
			},
		},
	}
	addBambuMetadata(model, w.Application, now())

	zipWriter := zip.NewWriter(out)

	if err := writeEntry(zipWriter, "[Content_Types].xml", []byte(contentTypesXML)); err != nil {
		return err
	}
	if err := writeEntry(zipWriter, "_rels/.rels", []byte(relsXML)); err != nil {
		return err
	}

	modelXML, err := xml.MarshalIndent(model, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling XML: %w", err)
	}
	if err := writeEntry(zipWriter, modelPath, append([]byte(xml.Header), modelXML...)); err != nil {
		return err
	}

	if err := writeModelSettings(zipWriter, objectID, m.Name, m.FaceCount()); err != nil {
		return fmt.Errorf("error writing model settings: %w", err)
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("error finishing archive: %w", err)
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("error creating %s entry: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("error writing %s: %w", name, err)
	}
	return nil
}

func toXMLMesh(m *mesh.Mesh) *models.Mesh {
	xm := &models.Mesh{
		Vertices:  make([]models.Vertex, len(m.Vertices)),
		Triangles: make([]models.Triangle, len(m.Faces)),
	}
	for i, v := range m.Vertices {
		xm.Vertices[i] = models.Vertex{X: v.X, Y: v.Y, Z: v.Z}
	}
	for i, f := range m.Faces {
		xm.Triangles[i] = models.Triangle{V1: f[0], V2: f[1], V3: f[2]}
	}
	return xm
}

// Reader reads 3MF files
type Reader struct{}

// NewReader creates a new 3MF reader
func NewReader() *Reader {
	return &Reader{}
}

// Read parses the model and, when present, the Bambu Studio settings of
// the 3MF file at filename.
func (r *Reader) Read(filename string) (*models.Model, *models.ModelSettings, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening ZIP: %w", err)
	}
	defer zr.Close()

	var modelFile, settingsFile *zip.File
	for _, f := range zr.File {
		switch f.Name {
		case modelPath:
			modelFile = f
		case settingsPath:
			settingsFile = f
		}
	}
	if modelFile == nil {
		return nil, nil, fmt.Errorf("%s not found in archive", modelPath)
	}

	var model models.Model
	if err := decodeEntry(modelFile, &model); err != nil {
		return nil, nil, fmt.Errorf("error parsing model: %w", err)
	}

	var settings *models.ModelSettings
	if settingsFile != nil {
		settings = &models.ModelSettings{}
		if err := decodeEntry(settingsFile, settings); err != nil {
			settings = nil
		}
	}
	return &model, settings, nil
}

func decodeEntry(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	return xml.Unmarshal(data, v)
}

// ReadMesh reads every build item of the 3MF file at filename into one
// mesh, applying the translation of each item's transform.
func (r *Reader) ReadMesh(filename string) (*mesh.Mesh, error) {
	model, _, err := r.Read(filename)
	if err != nil {
		return nil, err
	}

	objects := make(map[string]*models.Object, len(model.Resources.Objects))
	for i := range model.Resources.Objects {
		objects[model.Resources.Objects[i].ID] = &model.Resources.Objects[i]
	}

	result := mesh.New(filename)
	for _, item := range model.Build.Items {
		obj, ok := objects[item.ObjectID]
		if !ok || obj.Mesh == nil {
			continue
		}

		part := fromXMLMesh(obj.Mesh)
		if x, y, z, ok := geometry.ParseTransformOffset(item.Transform); ok {
			part.Translate(r3.Vec{X: x, Y: y, Z: z})
		}
		if err := part.Validate(); err != nil {
			return nil, fmt.Errorf("object %s: %w", obj.ID, err)
		}
		result.Append(part)
	}
	return result, nil
}

func fromXMLMesh(xm *models.Mesh) *mesh.Mesh {
	m := &mesh.Mesh{
		Vertices: make([]r3.Vec, len(xm.Vertices)),
		Faces:    make([]mesh.Face, len(xm.Triangles)),
	}
	for i, v := range xm.Vertices {
		m.Vertices[i] = r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
	}
	for i, t := range xm.Triangles {
		m.Faces[i] = mesh.Face{t.V1, t.V2, t.V3}
	}
	return m
}
