package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
)

// Reader holds a validated segment in memory.
type Reader struct {
	path   string
	header Header
	dict   []DictEntry
	data   []byte
}

// OpenReader reads and validates the segment at path: magic, version and the
// footer checksum must all match.
func OpenReader(path string) (*Reader, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	if len(raw) < HeaderSize+FooterSize {
		return nil, fmt.Errorf("segment %s truncated: %w", path, errors.ErrCorruptSegment)
	}
	header := decodeHeader(raw[:HeaderSize])
	if header.Magic != MagicBytes {
		return nil, fmt.Errorf("segment %s: bad magic bytes %x: %w", path, header.Magic, errors.ErrCorruptSegment)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("segment %s: unsupported version %d: %w", path, header.Version, errors.ErrCorruptSegment)
	}
	dataEnd := header.DataOffset + header.DataSize
	dictEnd := header.DictOffset + header.DictSize
	if header.DataOffset != int64(HeaderSize) || dataEnd != header.DictOffset || dictEnd+int64(FooterSize) != int64(len(raw)) {
		return nil, fmt.Errorf("segment %s: inconsistent section offsets: %w", path, errors.ErrCorruptSegment)
	}
	data := raw[header.DataOffset:dataEnd]
	dictData := raw[header.DictOffset:dictEnd]
	footer := raw[dictEnd:]

	crc := crc32.NewIEEE()
	crc.Write(data)
	crc.Write(dictData)
	if want := binary.LittleEndian.Uint32(footer[0:4]); crc.Sum32() != want {
		return nil, fmt.Errorf("segment %s: checksum mismatch: %w", path, errors.ErrCorruptSegment)
	}

	var dict []DictEntry
	if err := json.Unmarshal(dictData, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	if len(dict) != int(header.DocCount) {
		return nil, fmt.Errorf("segment %s: dictionary has %d entries, header says %d: %w",
			path, len(dict), header.DocCount, errors.ErrCorruptSegment)
	}
	return &Reader{path: path, header: header, dict: dict, data: data}, nil
}

// Documents decodes every record in write order.
func (r *Reader) Documents() ([]index.Document, error) {
	docs := make([]index.Document, 0, len(r.dict))
	for _, entry := range r.dict {
		end := entry.Offset + int64(entry.Len)
		if entry.Offset < 0 || end > int64(len(r.data)) {
			return nil, fmt.Errorf("record %s out of bounds: %w", entry.ExternalID, errors.ErrCorruptSegment)
		}
		var doc index.Document
		if err := json.Unmarshal(r.data[entry.Offset:end], &doc); err != nil {
			return nil, fmt.Errorf("parsing record %s: %w", entry.ExternalID, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *Reader) DocCount() int {
	return int(r.header.DocCount)
}

func (r *Reader) Path() string {
	return r.path
}
