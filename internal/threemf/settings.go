package threemf

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/philipparndt/citysolid/internal/geometry"
	"github.com/philipparndt/citysolid/internal/models"
)

// writeModelSettings writes the Bambu Studio model_settings.config file
// for a package holding one object with a single part.
func writeModelSettings(outZip *zip.Writer, objectID, name string, faceCount int) error {
	settings := models.ModelSettings{
		Objects: []models.SettingsObject{
			{
				ID: objectID,
				Metadata: []models.SettingsMetadata{
					{Key: "name", Value: name},
					{Key: "extruder", Value: "1"},
					{FaceCount: faceCount},
				},
				Parts: []models.Part{
					{
						ID:      "1",
						Subtype: "normal_part",
						Metadata: []models.SettingsMetadata{
							{Key: "name", Value: name},
							{Key: "matrix", Value: "1 0 0 0 0 1 0 0 0 0 1 0 0 0 0 1"},
							{Key: "source_object_id", Value: "0"},
							{Key: "source_volume_id", Value: "0"},
						},
						MeshStat: models.MeshStat{FaceCount: faceCount},
					},
				},
			},
		},
		Plate: models.Plate{
			Metadata: []models.SettingsMetadata{
				{Key: "plater_id", Value: "1"},
				{Key: "plater_name", Value: ""},
				{Key: "locked", Value: "false"},
			},
			ModelInstances: []models.ModelInstance{
				{
					Metadata: []models.SettingsMetadata{
						{Key: "object_id", Value: objectID},
						{Key: "instance_id", Value: "0"},
						{Key: "identify_id", Value: objectID},
					},
				},
			},
		},
		Assemble: models.Assemble{
			Items: []models.AssembleItem{
				{
					ObjectID:   objectID,
					InstanceID: "0",
					Transform:  geometry.IdentityTransform,
					Offset:     "0 0 0",
				},
			},
		},
	}

	settingsXML, err := xml.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling settings XML: %w", err)
	}

	writer, err := outZip.Create("Metadata/model_settings.config")
	if err != nil {
		return fmt.Errorf("error creating settings entry: %w", err)
	}
	if _, err := writer.Write([]byte(xml.Header)); err != nil {
		return fmt.Errorf("error writing XML header: %w", err)
	}
	if _, err := writer.Write(settingsXML); err != nil {
		return fmt.Errorf("error writing settings XML: %w", err)
	}
	return nil
}

// addBambuMetadata adds Bambu Studio specific metadata to a model
func addBambuMetadata(model *models.Model, application string, now time.Time) {
	model.XmlnsBambuStudio = models.BambuStudioNamespace
	model.XmlnsP = models.ProductionNamespace

	model.Metadata = append([]models.Metadata{
		{Name: "Application", Value: application},
		{Name: "BambuStudio:3mfVersion", Value: "1"},
		{Name: "CreationDate", Value: now.Format("2006-01-02")},
		{Name: "ModificationDate", Value: now.Format("2006-01-02")},
	}, model.Metadata...)
}
