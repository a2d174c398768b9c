package vault

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Record kinds carried in the envelope header.
const (
	kindEntries = 0x01
	kindMaster  = 0x02
)

const headerLen = len(Magic) + 1 + 1

type entryRecord struct {
	ID             string `cbor:"1,keyasint"`
	Service        string `cbor:"2,keyasint"`
	Cipher         []byte `cbor:"3,keyasint"`
	CreatedAt      int64  `cbor:"4,keyasint"`
	UpdatedAt      int64  `cbor:"5,keyasint"`
	LastAccessedAt int64  `cbor:"6,keyasint"`
}

type entriesDocument struct {
	Entries []entryRecord `cbor:"1,keyasint"`
}

type masterDocument struct {
	Algorithm string `cbor:"1,keyasint"`
	Time      uint32 `cbor:"2,keyasint"`
	Memory    uint32 `cbor:"3,keyasint"`
	Threads   uint8  `cbor:"4,keyasint"`
	Salt      []byte `cbor:"5,keyasint"`
	Hash      []byte `cbor:"6,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

func encodeHeader(kind byte) []byte {
	buf := make([]byte, 0, headerLen)
	buf = append(buf, Magic...)
	buf = append(buf, Version, kind)
	return buf
}

func decodeHeader(raw []byte, kind byte) ([]byte, error) {
	if len(raw) < headerLen {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	if !bytes.Equal(raw[:len(Magic)], []byte(Magic)) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if v := raw[len(Magic)]; v != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}
	if k := raw[len(Magic)+1]; k != kind {
		return nil, fmt.Errorf("%w: unexpected record kind %d", ErrCorrupt, k)
	}
	return raw[headerLen:], nil
}

func encodeEntries(entries map[string]Entry) ([]byte, error) {
	doc := entriesDocument{Entries: make([]entryRecord, 0, len(entries))}
	for _, e := range entries {
		doc.Entries = append(doc.Entries, entryRecord{
			ID:             e.ID,
			Service:        e.Service,
			Cipher:         e.Cipher,
			CreatedAt:      e.CreatedAt.UnixNano(),
			UpdatedAt:      e.UpdatedAt.UnixNano(),
			LastAccessedAt: e.LastAccessedAt.UnixNano(),
		})
	}
	sort.Slice(doc.Entries, func(i, j int) bool { return doc.Entries[i].Service < doc.Entries[j].Service })

	body, err := encMode.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode entries: %w", err)
	}
	return append(encodeHeader(kindEntries), body...), nil
}

func decodeEntries(raw []byte) (map[string]Entry, error) {
	body, err := decodeHeader(raw, kindEntries)
	if err != nil {
		return nil, err
	}
	var doc entriesDocument
	if err := decMode.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	entries := make(map[string]Entry, len(doc.Entries))
	for _, r := range doc.Entries {
		if r.Service == "" {
			return nil, fmt.Errorf("%w: entry without service name", ErrCorrupt)
		}
		if _, dup := entries[r.Service]; dup {
			return nil, fmt.Errorf("%w: duplicate service %q", ErrCorrupt, r.Service)
		}
		entries[r.Service] = Entry{
			ID:             r.ID,
			Service:        r.Service,
			Cipher:         r.Cipher,
			CreatedAt:      time.Unix(0, r.CreatedAt),
			UpdatedAt:      time.Unix(0, r.UpdatedAt),
			LastAccessedAt: time.Unix(0, r.LastAccessedAt),
		}
	}
	return entries, nil
}

func encodeMaster(rec MasterRecord) ([]byte, error) {
	body, err := encMode.Marshal(masterDocument{
		Algorithm: rec.Algorithm,
		Time:      rec.Params.Time,
		Memory:    rec.Params.Memory,
		Threads:   rec.Params.Threads,
		Salt:      rec.Salt,
		Hash:      rec.Hash,
	})
	if err != nil {
		return nil, fmt.Errorf("encode master record: %w", err)
	}
	return append(encodeHeader(kindMaster), body...), nil
}

func decodeMaster(raw []byte) (MasterRecord, error) {
	body, err := decodeHeader(raw, kindMaster)
	if err != nil {
		return MasterRecord{}, err
	}
	var doc masterDocument
	if err := decMode.Unmarshal(body, &doc); err != nil {
		return MasterRecord{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if doc.Algorithm == "" || len(doc.Hash) == 0 {
		return MasterRecord{}, fmt.Errorf("%w: incomplete master record", ErrCorrupt)
	}
	return MasterRecord{
		Algorithm: doc.Algorithm,
		Params:    HashParams{Time: doc.Time, Memory: doc.Memory, Threads: doc.Threads},
		Salt:      doc.Salt,
		Hash:      doc.Hash,
	}, nil
}
