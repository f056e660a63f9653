package export

import (
	"encoding/xml"
	"fmt"

	"github.com/enzomar/archipilot/vault"
)

// ArchiMate Model Exchange Format 3.0.
const (
	archimateNS = "http://www.opengroup.org/xsd/archimate/3.0/"
	xsiNS       = "http://www.w3.org/2001/XMLSchema-instance"
)

type archiModel struct {
	XMLName       xml.Name           `xml:"model"`
	NS            string             `xml:"xmlns,attr"`
	XSI           string             `xml:"xmlns:xsi,attr"`
	Identifier    string             `xml:"identifier,attr"`
	Name          archiName          `xml:"name"`
	Elements      archiElements      `xml:"elements"`
	Relationships archiRelationships `xml:"relationships"`
}

type archiName struct {
	Lang  string `xml:"xml:lang,attr"`
	Value string `xml:",chardata"`
}

type archiElements struct {
	Elements []archiElement `xml:"element"`
}

type archiElement struct {
	Identifier string    `xml:"identifier,attr"`
	Type       string    `xml:"xsi:type,attr"`
	Name       archiName `xml:"name"`
}

type archiRelationships struct {
	Relationships []archiRelationship `xml:"relationship"`
}

type archiRelationship struct {
	Identifier string `xml:"identifier,attr"`
	Source     string `xml:"source,attr"`
	Target     string `xml:"target,attr"`
	Type       string `xml:"xsi:type,attr"`
}

// ArchiMateExporter renders the vault into ArchiMate model exchange files.
// Stakeholders become business actors, components application components,
// and deployment zones technology nodes.
type ArchiMateExporter struct {
	manager *vault.Manager
}

// NewArchiMateExporter creates an exporter writing into the vault's exports tree.
func NewArchiMateExporter(m *vault.Manager) *ArchiMateExporter {
	return &ArchiMateExporter{manager: m}
}

// ExportModel renders all layers into exports/archimate/model.xml and
// returns the vault-relative output path.
func (e *ArchiMateExporter) ExportModel(idx *vault.Index) (string, error) {
	model := e.buildModel(idx, AllLayers, "archipilot-model")

	rel := vault.ExportsDir + "/archimate/model.xml"
	if err := e.write(rel, model); err != nil {
		return "", err
	}
	return rel, nil
}

// ExportLayer renders one layer into exports/archimate/<layer>.xml and
// returns the vault-relative output path.
func (e *ArchiMateExporter) ExportLayer(idx *vault.Index, layer Layer) (string, error) {
	if !layer.IsValid() {
		return "", fmt.Errorf("unknown layer %q", layer)
	}

	model := e.buildModel(idx, []Layer{layer}, "archipilot-"+layer.String())

	rel := fmt.Sprintf("%s/archimate/%s.xml", vault.ExportsDir, layer)
	if err := e.write(rel, model); err != nil {
		return "", err
	}
	return rel, nil
}

func (e *ArchiMateExporter) write(rel string, model archiModel) error {
	data, err := xml.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archimate: %w", err)
	}
	data = append([]byte(xml.Header), data...)

	if err := e.manager.WriteExport(rel, data); err != nil {
		return fmt.Errorf("write archimate export: %w", err)
	}
	return nil
}

func (e *ArchiMateExporter) buildModel(idx *vault.Index, layers []Layer, identifier string) archiModel {
	model := archiModel{
		NS:         archimateNS,
		XSI:        xsiNS,
		Identifier: identifier,
		Name:       archiName{Lang: "en", Value: "Architecture Model"},
	}

	included := map[string]bool{}
	addElement := func(id, typ, name string) {
		if included[id] {
			return
		}
		included[id] = true
		model.Elements.Elements = append(model.Elements.Elements, archiElement{
			Identifier: id,
			Type:       typ,
			Name:       archiName{Lang: "en", Value: name},
		})
	}

	for _, layer := range layers {
		switch layer {
		case LayerBusiness:
			for _, st := range idx.ByKind(vault.KindStakeholder) {
				addElement(elementID(st.ID), "BusinessActor", st.Title)
			}

		case LayerApplication:
			for _, comp := range idx.ByKind(vault.KindComponent) {
				addElement(elementID(comp.ID), "ApplicationComponent", comp.Title)
			}

		case LayerTechnology:
			for _, comp := range idx.ByKind(vault.KindComponent) {
				if zone := comp.TagValue("deploy"); zone != "" {
					addElement("id-zone-"+zone, "Node", zone)
				}
			}
		}
	}

	// Associations between included elements
	relN := 0
	for _, rec := range idx.Records() {
		srcID := elementID(rec.ID)
		if !included[srcID] {
			continue
		}
		for _, target := range rec.Relates {
			dstID := elementID(target)
			if !included[dstID] {
				continue
			}
			relN++
			model.Relationships.Relationships = append(model.Relationships.Relationships,
				archiRelationship{
					Identifier: fmt.Sprintf("rel-%d", relN),
					Source:     srcID,
					Target:     dstID,
					Type:       "Association",
				})
		}
	}

	// Components realize onto their deployment node
	for _, comp := range idx.ByKind(vault.KindComponent) {
		zone := comp.TagValue("deploy")
		if zone == "" {
			continue
		}
		compID := elementID(comp.ID)
		zoneID := "id-zone-" + zone
		if !included[compID] || !included[zoneID] {
			continue
		}
		relN++
		model.Relationships.Relationships = append(model.Relationships.Relationships,
			archiRelationship{
				Identifier: fmt.Sprintf("rel-%d", relN),
				Source:     zoneID,
				Target:     compID,
				Type:       "Assignment",
			})
	}

	return model
}

func elementID(recordID string) string {
	return "id-" + recordID
}
