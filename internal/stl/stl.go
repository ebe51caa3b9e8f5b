// Package stl reads and writes STL files in binary and ASCII form.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/philipparndt/citysolid/internal/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	headerSize   = 80
	triangleSize = 50
)

// Vector3 represents a 3D vector
type Vector3 struct {
	X, Y, Z float32
}

func toVector3(v r3.Vec) Vector3 {
	return Vector3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}

func (v Vector3) vec() r3.Vec {
	return r3.Vec{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// Triangle represents a triangle in 3D space
type Triangle struct {
	Normal     Vector3
	V1, V2, V3 Vector3
}

// Solid is the triangle soup stored in an STL file
type Solid struct {
	Name      string
	Triangles []Triangle
}

// ToMesh indexes the triangles, sharing vertices with identical positions
func (s *Solid) ToMesh() *mesh.Mesh {
	m := mesh.New(s.Name)
	index := make(map[Vector3]int)
	vertex := func(v Vector3) int {
		if i, ok := index[v]; ok {
			return i
		}
		index[v] = len(m.Vertices)
		m.Vertices = append(m.Vertices, v.vec())
		return index[v]
	}
	for _, t := range s.Triangles {
		m.Faces = append(m.Faces, mesh.Face{vertex(t.V1), vertex(t.V2), vertex(t.V3)})
	}
	return m
}

// Parser parses STL files
type Parser struct{}

// NewParser creates a new STL parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads an STL file and returns its triangles
func (p *Parser) Parse(filename string) (*Solid, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open file: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if isASCII(data) {
		return p.parseASCII(bytes.NewReader(data), name)
	}
	return p.parseBinary(bytes.NewReader(data), name)
}

// isASCII reports whether data is an ASCII STL. Binary files may also
// start with "solid", so a binary file whose size matches its triangle
// count is always treated as binary.
func isASCII(data []byte) bool {
	if !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return false
	}
	if len(data) >= headerSize+4 {
		count := binary.LittleEndian.Uint32(data[headerSize : headerSize+4])
		if int64(len(data)) == headerSize+4+int64(count)*triangleSize {
			return false
		}
	}
	return true
}

// parseASCII parses an ASCII STL file
func (p *Parser) parseASCII(reader io.Reader, name string) (*Solid, error) {
	scanner := bufio.NewScanner(reader)
	solid := &Solid{Name: name}

	parseVector := func(fields []string, line int) (Vector3, error) {
		var v [3]float32
		for i := range v {
			f, err := strconv.ParseFloat(fields[i], 32)
			if err != nil {
				return Vector3{}, fmt.Errorf("line %d: invalid number %q", line, fields[i])
			}
			v[i] = float32(f)
		}
		return Vector3{X: v[0], Y: v[1], Z: v[2]}, nil
	}

	var current Triangle
	vertexCount, lineNo := 0, 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "solid":
			if len(fields) > 1 {
				solid.Name = strings.Join(fields[1:], " ")
			}
		case "facet":
			if len(fields) < 5 || fields[1] != "normal" {
				return nil, fmt.Errorf("line %d: malformed facet", lineNo)
			}
			n, err := parseVector(fields[2:], lineNo)
			if err != nil {
				return nil, err
			}
			current = Triangle{Normal: n}
			vertexCount = 0
		case "vertex":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: malformed vertex", lineNo)
			}
			v, err := parseVector(fields[1:], lineNo)
			if err != nil {
				return nil, err
			}
			switch vertexCount {
			case 0:
				current.V1 = v
			case 1:
				current.V2 = v
			case 2:
				current.V3 = v
			default:
				return nil, fmt.Errorf("line %d: facet with more than three vertices", lineNo)
			}
			vertexCount++
		case "endfacet":
			if vertexCount != 3 {
				return nil, fmt.Errorf("line %d: facet with %d vertices", lineNo, vertexCount)
			}
			solid.Triangles = append(solid.Triangles, current)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return solid, nil
}

// parseBinary parses a binary STL file
func (p *Parser) parseBinary(reader io.Reader, name string) (*Solid, error) {
	solid := &Solid{Name: name}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	var triangleCount uint32
	if err := binary.Read(reader, binary.LittleEndian, &triangleCount); err != nil {
		return nil, fmt.Errorf("error reading triangle count: %w", err)
	}

	solid.Triangles = make([]Triangle, triangleCount)
	for i := range solid.Triangles {
		if err := binary.Read(reader, binary.LittleEndian, &solid.Triangles[i]); err != nil {
			return nil, fmt.Errorf("error reading triangle %d: %w", i, err)
		}
		var attributeCount uint16
		if err := binary.Read(reader, binary.LittleEndian, &attributeCount); err != nil {
			return nil, fmt.Errorf("error reading attribute count: %w", err)
		}
	}

	return solid, nil
}

// normalOf returns the stored normal of face i, computing it when the
// mesh carries none.
func normalOf(m *mesh.Mesh, i int) r3.Vec {
	if m.Normals != nil {
		return m.Normals[i]
	}
	return m.FaceNormal(i)
}

// WriteBinary writes m as a binary STL
func WriteBinary(w io.Writer, m *mesh.Mesh) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid mesh: %w", err)
	}

	bw := bufio.NewWriter(w)
	header := make([]byte, headerSize)
	copy(header, "binary STL "+m.Name)
	if _, err := bw.Write(header); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(m.Faces))); err != nil {
		return err
	}

	record := make([]byte, triangleSize)
	for i, f := range m.Faces {
		t := Triangle{
			Normal: toVector3(normalOf(m, i)),
			V1:     toVector3(m.Vertices[f[0]]),
			V2:     toVector3(m.Vertices[f[1]]),
			V3:     toVector3(m.Vertices[f[2]]),
		}
		if _, err := binary.Encode(record, binary.LittleEndian, t); err != nil {
			return err
		}
		record[48], record[49] = 0, 0
		if _, err := bw.Write(record); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteASCII writes m as an ASCII STL
func WriteASCII(w io.Writer, m *mesh.Mesh) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid mesh: %w", err)
	}

	name := strings.Join(strings.Fields(m.Name), "_")
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "solid %s\n", name)
	for i, f := range m.Faces {
		n := normalOf(m, i)
		fmt.Fprintf(bw, "  facet normal %s\n", formatVector(toVector3(n)))
		fmt.Fprintf(bw, "    outer loop\n")
		for _, idx := range f {
			fmt.Fprintf(bw, "      vertex %s\n", formatVector(toVector3(m.Vertices[idx])))
		}
		fmt.Fprintf(bw, "    endloop\n")
		fmt.Fprintf(bw, "  endfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)
	return bw.Flush()
}

// formatVector prints the shortest representation that parses back to
// the same float32 values.
func formatVector(v Vector3) string {
	f := func(x float32) string {
		return strconv.FormatFloat(float64(x), 'e', -1, 32)
	}
	return f(v.X) + " " + f(v.Y) + " " + f(v.Z)
}
