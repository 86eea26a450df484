package vtkio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

type fileAttrs struct {
	headerType string
	bigEndian  bool
	compressor string
}

type xmlArray struct {
	name       string
	dtype      string
	format     string
	components int
	rangeMin   *float64
	rangeMax   *float64
	payload    bytes.Buffer
}

// parseXML streams the document and decodes only the DataArrays found under
// PointData and CellData. Decoding stops at AppendedData, whose raw payload is
// not valid XML.
//
//nolint:gocognit // Token loop tracks sections inline.
func parseXML(data []byte) (Info, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		info    Info
		attrs   = fileAttrs{headerType: "UInt32"}
		section string
		current *xmlArray
		sawFile bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return info, fmt.Errorf("%w: %w", ErrUnsupported, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "VTKFile":
				sawFile = true
				for _, a := range t.Attr {
					switch a.Name.Local {
					case "header_type":
						attrs.headerType = a.Value
					case "byte_order":
						attrs.bigEndian = a.Value == "BigEndian"
					case "compressor":
						attrs.compressor = a.Value
					}
				}
			case "PointData", "CellData":
				section = t.Name.Local
			case "AppendedData":
				return finish(info, sawFile)
			case "DataArray":
				if section != "" {
					current = newXMLArray(t.Attr)
				}
			}
		case xml.CharData:
			if current != nil {
				current.payload.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "PointData", "CellData":
				section = ""
			case "DataArray":
				if current == nil {
					continue
				}
				arr := current.decode(attrs)
				if section == "PointData" {
					info.Point = merge(info.Point, arr)
				} else {
					info.Cell = merge(info.Cell, arr)
				}
				current = nil
			}
		}
	}
	return finish(info, sawFile)
}

func finish(info Info, sawFile bool) (Info, error) {
	if !sawFile {
		return info, fmt.Errorf("%w: no VTKFile element", ErrUnsupported)
	}
	return info, nil
}

func newXMLArray(attrs []xml.Attr) *xmlArray {
	a := &xmlArray{components: 1, format: "ascii"}
	for _, at := range attrs {
		switch at.Name.Local {
		case "Name":
			a.name = at.Value
		case "type":
			a.dtype = at.Value
		case "format":
			a.format = at.Value
		case "NumberOfComponents":
			if n, err := strconv.Atoi(at.Value); err == nil && n > 0 {
				a.components = n
			}
		case "RangeMin":
			if v, err := strconv.ParseFloat(at.Value, 64); err == nil {
				a.rangeMin = &v
			}
		case "RangeMax":
			if v, err := strconv.ParseFloat(at.Value, 64); err == nil {
				a.rangeMax = &v
			}
		}
	}
	return a
}

func (a *xmlArray) decode(attrs fileAttrs) Array {
	out := Array{Name: a.name, Components: a.components}
	acc := newAccumulator(a.components)

	var err error
	switch a.format {
	case "ascii":
		err = decodeASCII(a.payload.String(), acc)
	case "binary":
		if attrs.compressor != "" {
			err = fmt.Errorf("%w: %s compressed payload", ErrUnsupported, attrs.compressor)
			break
		}
		err = decodeBinary(a.payload.String(), a.dtype, attrs, acc)
	default:
		err = fmt.Errorf("%w: %s payload", ErrUnsupported, a.format)
	}

	if err == nil {
		out.Range, out.HasRange = acc.result()
		if !out.HasRange {
			out.Reason = errors.New("array holds no values")
		}
		return out
	}
	if a.rangeMin != nil && a.rangeMax != nil {
		out.Range.Min, out.Range.Max, out.HasRange = *a.rangeMin, *a.rangeMax, true
		return out
	}
	out.Reason = err
	return out
}

func decodeASCII(payload string, acc *accumulator) error {
	for _, field := range strings.Fields(payload) {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return fmt.Errorf("bad ascii value %q: %w", field, err)
		}
		acc.add(v)
	}
	return nil
}

var typeSizes = map[string]int{
	"Int8": 1, "UInt8": 1,
	"Int16": 2, "UInt16": 2,
	"Int32": 4, "UInt32": 4, "Float32": 4,
	"Int64": 8, "UInt64": 8, "Float64": 8,
}

// decodeBinary decodes an inline uncompressed base64 block: a byte count
// header followed by the raw values.
func decodeBinary(payload, dtype string, attrs fileAttrs, acc *accumulator) error {
	size, ok := typeSizes[dtype]
	if !ok {
		return fmt.Errorf("%w: data type %q", ErrUnsupported, dtype)
	}
	headerSize := 4
	switch attrs.headerType {
	case "UInt32":
	case "UInt64":
		headerSize = 8
	default:
		return fmt.Errorf("%w: header type %q", ErrUnsupported, attrs.headerType)
	}
	var order binary.ByteOrder = binary.LittleEndian
	if attrs.bigEndian {
		order = binary.BigEndian
	}

	raw, err := decodeBase64(strings.Join(strings.Fields(payload), ""), headerSize)
	if err != nil {
		return err
	}
	if len(raw) < headerSize {
		return errors.New("binary payload shorter than its header")
	}
	var n uint64
	if headerSize == 4 {
		n = uint64(order.Uint32(raw))
	} else {
		n = order.Uint64(raw)
	}
	body := raw[headerSize:]
	if n > uint64(len(body)) {
		return fmt.Errorf("binary payload declares %d bytes, has %d", n, len(body))
	}
	body = body[:n]
	for off := 0; off+size <= len(body); off += size {
		acc.add(readValue(body[off:off+size], dtype, order))
	}
	return nil
}

// decodeBase64 accepts the header and data encoded as one stream or as two
// separately padded blocks.
func decodeBase64(s string, headerSize int) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return raw, nil
	}
	headerChars := base64.StdEncoding.EncodedLen(headerSize)
	if len(s) < headerChars {
		return nil, fmt.Errorf("bad base64 payload: %w", err)
	}
	header, herr := base64.StdEncoding.DecodeString(s[:headerChars])
	body, berr := base64.StdEncoding.DecodeString(s[headerChars:])
	if herr != nil || berr != nil {
		return nil, fmt.Errorf("bad base64 payload: %w", err)
	}
	return append(header, body...), nil
}

func readValue(b []byte, dtype string, order binary.ByteOrder) float64 {
	switch dtype {
	case "Int8":
		return float64(int8(b[0]))
	case "UInt8":
		return float64(b[0])
	case "Int16":
		return float64(int16(order.Uint16(b)))
	case "UInt16":
		return float64(order.Uint16(b))
	case "Int32":
		return float64(int32(order.Uint32(b)))
	case "UInt32":
		return float64(order.Uint32(b))
	case "Float32":
		return float64(math.Float32frombits(order.Uint32(b)))
	case "Int64":
		return float64(int64(order.Uint64(b)))
	case "UInt64":
		return float64(order.Uint64(b))
	default:
		return math.Float64frombits(order.Uint64(b))
	}
}
