// Package dxf decodes the parts of ASCII DXF drawings needed to build
// solids: the drawing header and the entities section, with MESH entities
// carrying their vertex and face lists.
package dxf

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Entity kinds with special handling
const (
	KindMesh = "MESH"
)

var (
	// ErrBinary is returned for binary DXF files, which are not supported
	ErrBinary = errors.New("binary DXF is not supported")

	// ErrMalformed marks an entity whose records could not be decoded
	ErrMalformed = errors.New("malformed entity")
)

const binarySentinel = "AutoCAD Binary DXF"

// Header holds the header variables the decoder uses
type Header struct {
	Version  string // $ACADVER, e.g. AC1027
	CodePage string // $DWGCODEPAGE, e.g. ANSI_1252
}

// Entity is one record of the ENTITIES section. Vertices and Faces are
// only populated for MESH entities; Err is set when the entity's records
// were present but inconsistent.
type Entity struct {
	Kind     string
	Layer    string
	Handle   string
	Index    int
	Vertices []r3.Vec
	Faces    [][]int
	Err      error
}

// Name identifies the entity in messages
func (e *Entity) Name() string {
	if e.Handle != "" {
		return fmt.Sprintf("%s #%d (handle %s)", e.Kind, e.Index, e.Handle)
	}
	return fmt.Sprintf("%s #%d", e.Kind, e.Index)
}

// Drawing is a fully decoded drawing
type Drawing struct {
	Header   Header
	Entities []*Entity
}

type pair struct {
	code  int
	value string
}

// Decoder reads entities from an ASCII DXF stream one at a time
type Decoder struct {
	r       *bufio.Reader
	line    int
	pending *pair
	section string
	header  Header
	text    func(string) string
	index   int
	done    bool
}

// NewDecoder creates a decoder reading from r
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:    bufio.NewReader(r),
		text: func(s string) string { return s },
	}
}

// Header returns the header variables read so far. The header section
// precedes the entities, so it is complete once Next returned an entity.
func (d *Decoder) Header() Header {
	return d.header
}

// readLine returns the next line without its line terminator
func (d *Decoder) readLine() (string, error) {
	s, err := d.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && s != "" {
			err = nil
		} else {
			return "", err
		}
	}
	d.line++
	return strings.TrimRight(s, "\r\n"), nil
}

func (d *Decoder) readPair() (*pair, error) {
	if d.pending != nil {
		p := d.pending
		d.pending = nil
		return p, nil
	}

	if d.line == 0 {
		head, _ := d.r.Peek(len(binarySentinel))
		if bytes.Equal(head, []byte(binarySentinel)) {
			return nil, ErrBinary
		}
	}

	first := d.line == 0
	codeLine, err := d.readLine()
	if err != nil {
		return nil, err
	}
	if first {
		codeLine = strings.TrimPrefix(codeLine, "\ufeff")
	}
	code, err := strconv.Atoi(strings.TrimSpace(codeLine))
	if err != nil {
		return nil, fmt.Errorf("line %d: invalid group code %q", d.line, codeLine)
	}
	value, err := d.readLine()
	if err == io.EOF {
		return nil, fmt.Errorf("line %d: group code %d without value: %w", d.line, code, io.ErrUnexpectedEOF)
	}
	if err != nil {
		return nil, err
	}
	return &pair{code: code, value: value}, nil
}

func (d *Decoder) unread(p *pair) {
	d.pending = p
}

// Next returns the next entity of the ENTITIES section. It returns io.EOF
// once the drawing ends.
func (d *Decoder) Next() (*Entity, error) {
	if d.done {
		return nil, io.EOF
	}

	for {
		p, err := d.readPair()
		if err == io.EOF {
			d.done = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}

		if p.code == 9 && d.section == "HEADER" {
			if err := d.readHeaderVariable(p.value); err != nil {
				return nil, err
			}
			continue
		}
		if p.code != 0 {
			continue
		}

		switch p.value {
		case "SECTION":
			name, err := d.readPair()
			if err != nil {
				return nil, err
			}
			if name.code == 2 {
				d.section = strings.TrimSpace(name.value)
			} else {
				d.unread(name)
			}
		case "ENDSEC":
			if d.section == "HEADER" {
				d.text = textDecoder(d.header)
			}
			d.section = ""
		case "EOF":
			d.done = true
			return nil, io.EOF
		default:
			if d.section == "ENTITIES" {
				return d.readEntity(strings.TrimSpace(p.value))
			}
		}
	}
}

func (d *Decoder) readHeaderVariable(name string) error {
	p, err := d.readPair()
	if err != nil {
		return err
	}
	switch strings.TrimSpace(name) {
	case "$ACADVER":
		d.header.Version = strings.TrimSpace(p.value)
	case "$DWGCODEPAGE":
		d.header.CodePage = strings.TrimSpace(p.value)
	default:
		d.unread(p)
	}
	return nil
}

// meshState tracks which list of a MESH record the 90 groups belong to
type meshState int

const (
	meshHeader meshState = iota
	meshFaces
	meshTrailer
)

func (d *Decoder) readEntity(kind string) (*Entity, error) {
	e := &Entity{Kind: kind, Index: d.index}
	d.index++

	var (
		state          = meshHeader
		vertexCount    = -1
		faceListSize   = -1
		faceListRead   = 0
		faceRemaining  = 0
		pendingVertex  = -1
		malformedCause string
	)
	fail := func(format string, args ...any) {
		if malformedCause == "" {
			malformedCause = fmt.Sprintf(format, args...)
		}
	}
	number := func(p *pair) float64 {
		v, err := strconv.ParseFloat(strings.TrimSpace(p.value), 64)
		if err != nil {
			fail("line %d: invalid number %q", d.line, p.value)
		}
		return v
	}
	integer := func(p *pair) int {
		v, err := strconv.Atoi(strings.TrimSpace(p.value))
		if err != nil {
			fail("line %d: invalid integer %q", d.line, p.value)
		}
		return v
	}

	for {
		p, err := d.readPair()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if p.code == 0 {
			d.unread(p)
			break
		}

		switch p.code {
		case 5:
			e.Handle = strings.TrimSpace(p.value)
			continue
		case 8:
			e.Layer = d.text(strings.TrimSpace(p.value))
			continue
		}
		if kind != KindMesh {
			continue
		}

		switch p.code {
		case 92:
			if state == meshHeader {
				vertexCount = integer(p)
				e.Vertices = make([]r3.Vec, 0, max(vertexCount, 0))
			}
		case 10:
			if vertexCount >= 0 && state == meshHeader {
				e.Vertices = append(e.Vertices, r3.Vec{X: number(p)})
				pendingVertex = len(e.Vertices) - 1
			}
		case 20:
			if pendingVertex >= 0 {
				e.Vertices[pendingVertex].Y = number(p)
			}
		case 30:
			if pendingVertex >= 0 {
				e.Vertices[pendingVertex].Z = number(p)
				pendingVertex = -1
			}
		case 93:
			state = meshFaces
			faceListSize = integer(p)
		case 94, 95:
			state = meshTrailer
		case 90:
			if state != meshFaces || faceListRead >= faceListSize {
				continue
			}
			v := integer(p)
			faceListRead++
			if faceRemaining == 0 {
				if v < 1 {
					fail("face with %d vertices", v)
					continue
				}
				faceRemaining = v
				e.Faces = append(e.Faces, make([]int, 0, v))
				continue
			}
			last := len(e.Faces) - 1
			e.Faces[last] = append(e.Faces[last], v)
			faceRemaining--
		}
	}

	if kind == KindMesh {
		switch {
		case vertexCount < 0:
			fail("missing vertex count")
		case len(e.Vertices) != vertexCount:
			fail("declares %d vertices, found %d", vertexCount, len(e.Vertices))
		case faceListSize < 0:
			fail("missing face list")
		case faceListRead != faceListSize || faceRemaining != 0:
			fail("face list truncated")
		}
	}
	if malformedCause != "" {
		e.Err = fmt.Errorf("%w: %s", ErrMalformed, malformedCause)
	}
	return e, nil
}

// Decode reads a whole drawing from r
func Decode(r io.Reader) (*Drawing, error) {
	d := NewDecoder(r)
	drawing := &Drawing{}
	for {
		e, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		drawing.Entities = append(drawing.Entities, e)
	}
	drawing.Header = d.Header()
	return drawing, nil
}

// ReadFile decodes the drawing at path
func ReadFile(path string) (*Drawing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	drawing, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return drawing, nil
}
