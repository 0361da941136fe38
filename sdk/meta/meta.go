// Package meta defines the plugdir module metadata blob: a JSON type
// catalog embedded in a plugin binary as plain string data, so hosts can
// discover what a module declares by reading the file, never by running it.
package meta

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Magic marks the start of an embedded metadata blob and End terminates
// it. Both carry 0xff sentinels, a byte that can never occur inside the
// UTF-8 JSON payload, so the delimiters are unambiguous.
const (
	Magic = "\xffPlugdir-Meta:v1\xff"
	End   = "\xffPlugdir-End\xff"
)

// FormatVersion is the document format this package reads and writes.
const FormatVersion = 1

// MaxPayload bounds the JSON payload size so a missing terminator cannot
// force an unbounded read.
const MaxPayload = 4 << 20

var (
	ErrNoMetadata = errors.New("no plugdir metadata blob")
	ErrCorrupt    = errors.New("corrupt plugdir metadata blob")
)

// Document is the type catalog a module embeds.
type Document struct {
	Format int    `json:"format"`
	Module string `json:"module"`
	Types  []Type `json:"types,omitempty"`
}

// Type describes one declared type purely at the metadata level: its
// identity, where it sits in the type graph, and any attached markers.
type Type struct {
	Name       string            `json:"name"`
	Kind       string            `json:"kind,omitempty"`
	Extends    string            `json:"extends,omitempty"`
	Implements []string          `json:"implements,omitempty"`
	Markers    map[string]string `json:"markers,omitempty"`
	Plugin     *PluginDecl       `json:"plugin,omitempty"`
}

// PluginDecl marks a type as an exported plugin.
type PluginDecl struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (d Document) Validate() error {
	if d.Format != FormatVersion {
		return fmt.Errorf("unsupported metadata format: %d", d.Format)
	}
	if d.Module == "" {
		return fmt.Errorf("module identity is required")
	}
	seen := map[string]struct{}{}
	for _, t := range d.Types {
		if t.Name == "" {
			return fmt.Errorf("type name is required")
		}
		if _, ok := seen[t.Name]; ok {
			return fmt.Errorf("duplicate type: %s", t.Name)
		}
		seen[t.Name] = struct{}{}
		if t.Plugin != nil {
			if t.Plugin.Name == "" {
				return fmt.Errorf("plugin name is required on type %s", t.Name)
			}
			if t.Plugin.Version == "" {
				return fmt.Errorf("plugin version is required on type %s", t.Name)
			}
		}
	}
	return nil
}

// TypeByName returns the declared type with the given fully qualified name.
func (d Document) TypeByName(name string) (Type, bool) {
	for _, t := range d.Types {
		if t.Name == name {
			return t, true
		}
	}
	return Type{}, false
}

// Blob encodes doc as an embeddable blob: Magic, the JSON payload, End.
func Blob(doc Document) (string, error) {
	if err := doc.Validate(); err != nil {
		return "", err
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal metadata document: %w", err)
	}
	if len(payload) > MaxPayload {
		return "", fmt.Errorf("metadata document exceeds %d bytes", MaxPayload)
	}
	return Magic + string(payload) + End, nil
}

// MustBlob is Blob for statically known documents.
func MustBlob(doc Document) string {
	blob, err := Blob(doc)
	if err != nil {
		panic(err)
	}
	return blob
}

// GoSource renders a generated Go file that pins the blob into a binary's
// data section as a string constant. Plugin authors check the result in
// next to their main package (see plugins/reference).
func GoSource(pkg string, doc Document) (string, error) {
	blob, err := Blob(doc)
	if err != nil {
		return "", err
	}
	var b bytes.Buffer
	b.WriteString("// Code generated by plugdir genmeta. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	b.WriteString("// pluginMetadata keeps the plugdir metadata blob in the compiled binary\n")
	b.WriteString("// so hosts can probe this module without executing it.\n")
	fmt.Fprintf(&b, "const pluginMetadata = %q\n\n", blob)
	b.WriteString("var _ = pluginMetadata\n")
	return b.String(), nil
}

// Extract scans r for an embedded blob and decodes its document. It streams
// the input, so callers can hand it a plain *os.File without reading the
// whole binary into memory. Returns ErrNoMetadata when no blob is present.
func Extract(r io.Reader) (Document, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	if err := seekMagic(br); err != nil {
		return Document{}, err
	}
	payload, err := readPayload(br)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return doc, nil
}

func seekMagic(br *bufio.Reader) error {
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				return ErrNoMetadata
			}
			return err
		}
		if b != Magic[0] {
			continue
		}
		rest, err := br.Peek(len(Magic) - 1)
		if err != nil {
			if err == io.EOF {
				return ErrNoMetadata
			}
			return err
		}
		if string(rest) == Magic[1:] {
			if _, err := br.Discard(len(Magic) - 1); err != nil {
				return err
			}
			return nil
		}
	}
}

func readPayload(br *bufio.Reader) ([]byte, error) {
	var buf bytes.Buffer
	for {
		chunk, err := br.ReadBytes(End[0])
		buf.Write(chunk)
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("%w: missing terminator", ErrCorrupt)
			}
			return nil, err
		}
		rest, err := br.Peek(len(End) - 1)
		if err != nil && err != io.EOF {
			return nil, err
		}
		if string(rest) == End[1:] {
			payload := buf.Bytes()
			return payload[:len(payload)-1], nil
		}
		if buf.Len() > MaxPayload {
			return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrCorrupt, MaxPayload)
		}
	}
}
