package export

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/enzomar/archipilot/vault"
)

// Draw.io file structure. Each diagram element is one page in the app.
type mxFile struct {
	XMLName  xml.Name    `xml:"mxfile"`
	Host     string      `xml:"host,attr"`
	Diagrams []mxDiagram `xml:"diagram"`
}

type mxDiagram struct {
	ID    string       `xml:"id,attr"`
	Name  string       `xml:"name,attr"`
	Model mxGraphModel `xml:"mxGraphModel"`
}

type mxGraphModel struct {
	Grid     int    `xml:"grid,attr"`
	GridSize int    `xml:"gridSize,attr"`
	Root     mxRoot `xml:"root"`
}

type mxRoot struct {
	Cells []mxCell `xml:"mxCell"`
}

type mxCell struct {
	ID       string      `xml:"id,attr"`
	Value    string      `xml:"value,attr,omitempty"`
	Style    string      `xml:"style,attr,omitempty"`
	Vertex   string      `xml:"vertex,attr,omitempty"`
	Edge     string      `xml:"edge,attr,omitempty"`
	Parent   string      `xml:"parent,attr,omitempty"`
	Source   string      `xml:"source,attr,omitempty"`
	Target   string      `xml:"target,attr,omitempty"`
	Geometry *mxGeometry `xml:"mxGeometry,omitempty"`
}

type mxGeometry struct {
	X        float64 `xml:"x,attr,omitempty"`
	Y        float64 `xml:"y,attr,omitempty"`
	Width    float64 `xml:"width,attr,omitempty"`
	Height   float64 `xml:"height,attr,omitempty"`
	Relative string  `xml:"relative,attr,omitempty"`
	As       string  `xml:"as,attr"`
}

// Cell styles per document kind.
const (
	styleComponent   = "rounded=1;whiteSpace=wrap;html=1;fillColor=#dae8fc;strokeColor=#6c8ebf;"
	styleDecision    = "rhombus;whiteSpace=wrap;html=1;fillColor=#d5e8d4;strokeColor=#82b366;"
	styleRequirement = "shape=note;whiteSpace=wrap;html=1;fillColor=#fff2cc;strokeColor=#d6b656;"
	styleZone        = "rounded=0;whiteSpace=wrap;html=1;verticalAlign=top;fillColor=#f5f5f5;strokeColor=#666666;dashed=1;"
	styleEdge        = "endArrow=open;html=1;"
)

// Node layout: cells flow left to right, four per row.
const (
	nodeWidth  = 160
	nodeHeight = 60
	cellStepX  = 200
	cellStepY  = 120
)

// DrawioExporter renders vault components into Draw.io diagrams.
type DrawioExporter struct {
	manager *vault.Manager
}

// NewDrawioExporter creates an exporter writing into the vault's exports tree.
func NewDrawioExporter(m *vault.Manager) *DrawioExporter {
	return &DrawioExporter{manager: m}
}

// ExportView renders a single view and writes exports/drawio/<view>.drawio.
// It returns the vault-relative output path.
func (e *DrawioExporter) ExportView(idx *vault.Index, view View) (string, error) {
	if !view.IsValid() {
		return "", fmt.Errorf("unknown view %q", view)
	}

	file := mxFile{
		Host:     "archipilot",
		Diagrams: []mxDiagram{e.buildDiagram(idx, view)},
	}

	rel := fmt.Sprintf("%s/drawio/%s.drawio", vault.ExportsDir, view)
	if err := e.write(rel, file); err != nil {
		return "", err
	}
	return rel, nil
}

// ExportAll renders every view as one multi-page file,
// exports/drawio/architecture.drawio, and returns its path.
func (e *DrawioExporter) ExportAll(idx *vault.Index) (string, error) {
	file := mxFile{Host: "archipilot"}
	for _, view := range AllViews {
		file.Diagrams = append(file.Diagrams, e.buildDiagram(idx, view))
	}

	rel := vault.ExportsDir + "/drawio/architecture.drawio"
	if err := e.write(rel, file); err != nil {
		return "", err
	}
	return rel, nil
}

func (e *DrawioExporter) write(rel string, file mxFile) error {
	data, err := xml.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal drawio: %w", err)
	}
	data = append([]byte(xml.Header), data...)

	if err := e.manager.WriteExport(rel, data); err != nil {
		return fmt.Errorf("write drawio export: %w", err)
	}
	return nil
}

func (e *DrawioExporter) buildDiagram(idx *vault.Index, view View) mxDiagram {
	var cells []mxCell
	switch view {
	case ViewIntegration:
		cells = e.integrationCells(idx)
	case ViewDeployment:
		cells = e.deploymentCells(idx)
	default:
		cells = e.componentCells(idx)
	}

	name := strings.ToUpper(view.String()[:1]) + view.String()[1:]

	return mxDiagram{
		ID:   "archipilot-" + view.String(),
		Name: name,
		Model: mxGraphModel{
			Grid:     1,
			GridSize: 10,
			Root: mxRoot{
				Cells: append([]mxCell{
					{ID: "0"},
					{ID: "1", Parent: "0"},
				}, cells...),
			},
		},
	}
}

// componentCells lays out component vertices and the edges between them.
func (e *DrawioExporter) componentCells(idx *vault.Index) []mxCell {
	components := idx.ByKind(vault.KindComponent)

	cells := make([]mxCell, 0, len(components)*2)
	for i, comp := range components {
		cells = append(cells, nodeCell(comp.ID, comp.Title, styleComponent, i))
	}

	cells = append(cells, componentEdges(idx, components)...)
	return cells
}

// integrationCells adds decisions and requirements related to components
// alongside the component layout.
func (e *DrawioExporter) integrationCells(idx *vault.Index) []mxCell {
	components := idx.ByKind(vault.KindComponent)

	var cells []mxCell
	placed := map[string]bool{}
	pos := 0

	for _, comp := range components {
		cells = append(cells, nodeCell(comp.ID, comp.Title, styleComponent, pos))
		placed[comp.ID] = true
		pos++
	}

	edgeN := 0
	for _, comp := range components {
		for _, id := range idx.Neighbors(comp.ID) {
			rel, ok := idx.Get(id)
			if !ok {
				continue
			}

			var style string
			switch rel.Kind {
			case vault.KindDecision:
				style = styleDecision
			case vault.KindRequirement:
				style = styleRequirement
			case vault.KindComponent:
				// Component-to-component edges come below
				continue
			default:
				continue
			}

			if !placed[rel.ID] {
				cells = append(cells, nodeCell(rel.ID, rel.Title, style, pos))
				placed[rel.ID] = true
				pos++
			}

			edgeN++
			cells = append(cells, edgeCell(fmt.Sprintf("edge-%d", edgeN), comp.ID, rel.ID))
		}
	}

	for _, edge := range componentEdges(idx, components) {
		edgeN++
		edge.ID = fmt.Sprintf("edge-%d", edgeN)
		cells = append(cells, edge)
	}

	return cells
}

// deploymentCells groups components into zone containers keyed on their
// deploy:<zone> tag. Untagged components land in "unassigned".
func (e *DrawioExporter) deploymentCells(idx *vault.Index) []mxCell {
	components := idx.ByKind(vault.KindComponent)

	zones := map[string][]*vault.Record{}
	var zoneOrder []string
	for _, comp := range components {
		zone := comp.TagValue("deploy")
		if zone == "" {
			zone = "unassigned"
		}
		if _, seen := zones[zone]; !seen {
			zoneOrder = append(zoneOrder, zone)
		}
		zones[zone] = append(zones[zone], comp)
	}

	var cells []mxCell
	for zi, zone := range zoneOrder {
		members := zones[zone]
		rows := (len(members) + 3) / 4
		zoneID := "zone-" + zone

		cells = append(cells, mxCell{
			ID:     zoneID,
			Value:  zone,
			Style:  styleZone,
			Vertex: "1",
			Parent: "1",
			Geometry: &mxGeometry{
				X:      40,
				Y:      float64(zi) * (float64(rows)*cellStepY + 80),
				Width:  4*cellStepX + 40,
				Height: float64(rows)*cellStepY + 40,
				As:     "geometry",
			},
		})

		for i, comp := range members {
			cell := nodeCell(comp.ID, comp.Title, styleComponent, i)
			cell.Parent = zoneID
			cell.Geometry.X += 20
			cell.Geometry.Y += 30
			cells = append(cells, cell)
		}
	}

	return cells
}

func componentEdges(idx *vault.Index, components []*vault.Record) []mxCell {
	var edges []mxCell
	for _, comp := range components {
		for _, target := range idx.RelatedTo(comp.ID) {
			rel, ok := idx.Get(target)
			if !ok || rel.Kind != vault.KindComponent {
				continue
			}
			edges = append(edges, edgeCell(
				fmt.Sprintf("edge-%s-%s", comp.ID, rel.ID), comp.ID, rel.ID))
		}
	}
	return edges
}

func nodeCell(id, label, style string, pos int) mxCell {
	return mxCell{
		ID:     id,
		Value:  label,
		Style:  style,
		Vertex: "1",
		Parent: "1",
		Geometry: &mxGeometry{
			X:      float64(pos%4) * cellStepX,
			Y:      float64(pos/4) * cellStepY,
			Width:  nodeWidth,
			Height: nodeHeight,
			As:     "geometry",
		},
	}
}

func edgeCell(id, source, target string) mxCell {
	return mxCell{
		ID:       id,
		Style:    styleEdge,
		Edge:     "1",
		Parent:   "1",
		Source:   source,
		Target:   target,
		Geometry: &mxGeometry{Relative: "1", As: "geometry"},
	}
}
