package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ugorji/go/codec"

	"github.com/aurumchain/go-aurum/internal/core/oracle"
	"github.com/aurumchain/go-aurum/internal/storage/compression"
	"github.com/aurumchain/go-aurum/internal/storage/recordstore"
)

// Dump files carry the exact wire blobs of each entry so that a dump
// round-trips byte for byte. The layout is a msgpack stream: a header,
// then a single payload blob holding the msgpack-encoded entry list,
// compressed per the header.

const (
	dumpMagic         = "aurum-record-dump"
	dumpFormatVersion = 1
)

type dumpHeader struct {
	Magic         string `codec:"magic"`
	FormatVersion int    `codec:"format_version"`
	Network       string `codec:"network"`
	CreatedAt     int64  `codec:"created_at"`
	Count         int    `codec:"count"`
	Compression   string `codec:"compression"`
	RawSize       int    `codec:"raw_size"`
}

type dumpRow struct {
	Height uint64   `codec:"height"`
	Record []byte   `codec:"record"`
	Supply []byte   `codec:"supply"`
	Assets [][]byte `codec:"assets"`
}

// writeDump serialises entries to path. The named compressor is applied to
// the payload; incompressible payloads are stored raw under "none".
func writeDump(path, network string, entries []*recordstore.Entry, compressorName string) error {
	rows := make([]dumpRow, 0, len(entries))
	for _, e := range entries {
		row := dumpRow{
			Height: e.Height,
			Record: e.Record.EncodeBlob(),
			Supply: e.Supply.EncodeBlob(),
		}
		for i := range e.Assets {
			row.Assets = append(row.Assets, e.Assets[i].EncodeBlob())
		}
		rows = append(rows, row)
	}

	var handle codec.MsgpackHandle
	var raw []byte
	if err := codec.NewEncoderBytes(&raw, &handle).Encode(rows); err != nil {
		return fmt.Errorf("encoding entries: %w", err)
	}

	comp, err := compression.Get(compressorName)
	if err != nil {
		return err
	}
	payload, err := comp.Compress(raw)
	if errors.Is(err, compression.ErrIncompressible) {
		compressorName = compression.NoneName
		payload = raw
	} else if err != nil {
		return err
	}

	header := dumpHeader{
		Magic:         dumpMagic,
		FormatVersion: dumpFormatVersion,
		Network:       network,
		CreatedAt:     time.Now().Unix(),
		Count:         len(rows),
		Compression:   compressorName,
		RawSize:       len(raw),
	}

	var out []byte
	enc := codec.NewEncoderBytes(&out, &handle)
	if err := enc.Encode(header); err != nil {
		return fmt.Errorf("encoding dump header: %w", err)
	}
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encoding dump payload: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}

// readDump loads a dump written by writeDump. Entries come back sorted by
// height ascending regardless of file order.
func readDump(path string) (dumpHeader, []*recordstore.Entry, error) {
	var header dumpHeader

	data, err := os.ReadFile(path)
	if err != nil {
		return header, nil, err
	}

	var handle codec.MsgpackHandle
	dec := codec.NewDecoderBytes(data, &handle)
	if err := dec.Decode(&header); err != nil {
		return header, nil, fmt.Errorf("reading dump header: %w", err)
	}
	if header.Magic != dumpMagic {
		return header, nil, fmt.Errorf("%s is not a record dump", path)
	}
	if header.FormatVersion != dumpFormatVersion {
		return header, nil, fmt.Errorf("unsupported dump format version %d", header.FormatVersion)
	}

	var payload []byte
	if err := dec.Decode(&payload); err != nil {
		return header, nil, fmt.Errorf("reading dump payload: %w", err)
	}

	comp, err := compression.Get(header.Compression)
	if err != nil {
		return header, nil, err
	}
	raw, err := comp.Decompress(payload, header.RawSize)
	if err != nil {
		return header, nil, err
	}

	var rows []dumpRow
	if err := codec.NewDecoderBytes(raw, &handle).Decode(&rows); err != nil {
		return header, nil, fmt.Errorf("decoding entries: %w", err)
	}
	if len(rows) != header.Count {
		return header, nil, fmt.Errorf("dump holds %d entries, header says %d", len(rows), header.Count)
	}

	entries := make([]*recordstore.Entry, 0, len(rows))
	for _, row := range rows {
		rec, err := oracle.DecodeRecordBlob(row.Record)
		if err != nil {
			return header, nil, fmt.Errorf("entry %d: %w", row.Height, err)
		}
		supply, err := oracle.DecodeSupplyBlob(row.Supply)
		if err != nil {
			return header, nil, fmt.Errorf("entry %d supply: %w", row.Height, err)
		}
		e := &recordstore.Entry{Height: row.Height, Record: rec, Supply: supply}
		for i, blob := range row.Assets {
			asset, err := oracle.DecodeAssetBlob(blob)
			if err != nil {
				return header, nil, fmt.Errorf("entry %d asset %d: %w", row.Height, i, err)
			}
			e.Assets = append(e.Assets, asset)
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Height < entries[j].Height })
	return header, entries, nil
}
