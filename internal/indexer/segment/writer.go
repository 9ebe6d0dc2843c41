// Package segment persists indexed documents in immutable segment files.
//
// Layout: a 64-byte little-endian header, the document records (one JSON
// object each, concatenated), a JSON dictionary of record offsets, and a
// 16-byte footer holding a CRC32 of records plus dictionary.
package segment

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
)

const (
	MagicBytes    uint32 = 0x51455347
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 16
	Extension            = ".qseg"
)

// Header is the fixed header written at the start of every segment.
type Header struct {
	Magic      uint32
	Version    uint32
	DocCount   uint32
	CreatedAt  int64
	DictOffset int64
	DictSize   int64
	DataOffset int64
	DataSize   int64
}

func (h Header) encode() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.DocCount)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.DictSize))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.DataOffset))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.DataSize))
	return b
}

func decodeHeader(b []byte) Header {
	return Header{
		Magic:      binary.LittleEndian.Uint32(b[0:4]),
		Version:    binary.LittleEndian.Uint32(b[4:8]),
		DocCount:   binary.LittleEndian.Uint32(b[8:12]),
		CreatedAt:  int64(binary.LittleEndian.Uint64(b[16:24])),
		DictOffset: int64(binary.LittleEndian.Uint64(b[24:32])),
		DictSize:   int64(binary.LittleEndian.Uint64(b[32:40])),
		DataOffset: int64(binary.LittleEndian.Uint64(b[40:48])),
		DataSize:   int64(binary.LittleEndian.Uint64(b[48:56])),
	}
}

// DictEntry locates one document record relative to the data section.
type DictEntry struct {
	ExternalID string `json:"id"`
	Offset     int64  `json:"o"`
	Len        int    `json:"l"`
}

type Writer struct {
	dataDir string
	now     func() time.Time
}

func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir, now: time.Now}
}

// Write atomically creates a segment holding docs, in order. It writes to a
// .tmp file first and renames on success.
func (w *Writer) Write(docs []index.Document) (string, error) {
	if len(docs) == 0 {
		return "", fmt.Errorf("cannot write empty segment")
	}
	created := w.now()
	name := fmt.Sprintf("seg_%d%s", created.UnixNano(), Extension)
	finalPath := filepath.Join(w.dataDir, name)
	tmpPath := finalPath + ".tmp"

	var data bytes.Buffer
	dict := make([]DictEntry, 0, len(docs))
	for _, doc := range docs {
		rec, err := json.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("marshaling document %s: %w", doc.ExternalID, err)
		}
		dict = append(dict, DictEntry{ExternalID: doc.ExternalID, Offset: int64(data.Len()), Len: len(rec)})
		data.Write(rec)
	}
	dictData, err := json.Marshal(dict)
	if err != nil {
		return "", fmt.Errorf("marshaling dictionary: %w", err)
	}

	header := Header{
		Magic:      MagicBytes,
		Version:    FormatVersion,
		DocCount:   uint32(len(docs)),
		CreatedAt:  created.Unix(),
		DataOffset: int64(HeaderSize),
		DataSize:   int64(data.Len()),
		DictOffset: int64(HeaderSize + data.Len()),
		DictSize:   int64(len(dictData)),
	}
	crc := crc32.NewIEEE()
	crc.Write(data.Bytes())
	crc.Write(dictData)
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc.Sum32())
	binary.LittleEndian.PutUint32(footer[4:8], uint32(len(docs)))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(header.DictOffset))

	if err := os.MkdirAll(w.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	defer f.Close()
	for _, part := range [][]byte{header.encode(), data.Bytes(), dictData, footer} {
		if _, err := f.Write(part); err != nil {
			os.Remove(tmpPath)
			return "", fmt.Errorf("writing segment %s: %w", name, err)
		}
	}
	if err := f.Sync(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("syncing segment file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	return name, nil
}
