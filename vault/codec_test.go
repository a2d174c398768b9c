package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntries_EncodeDecode(t *testing.T) {
	now := time.Unix(0, 1709294400123456789)
	in := map[string]Entry{
		"github": {ID: "a", Service: "github", Cipher: []byte{1, 2, 3}, CreatedAt: now, UpdatedAt: now, LastAccessedAt: now.Add(time.Second)},
		"aws":    {ID: "b", Service: "aws", Cipher: []byte{4}, CreatedAt: now, UpdatedAt: now, LastAccessedAt: now},
	}

	raw, err := encodeEntries(in)
	require.NoError(t, err)
	assert.Equal(t, Magic, string(raw[:4]))
	assert.Equal(t, byte(Version), raw[4])
	assert.Equal(t, byte(kindEntries), raw[5])

	out, err := decodeEntries(raw)
	require.NoError(t, err)
	require.Len(t, out, 2)
	gh := out["github"]
	assert.Equal(t, "a", gh.ID)
	assert.Equal(t, []byte{1, 2, 3}, gh.Cipher)
	assert.True(t, gh.CreatedAt.Equal(now))
	assert.True(t, gh.LastAccessedAt.Equal(now.Add(time.Second)))
}

func TestEncodeEntries_Deterministic(t *testing.T) {
	now := time.Unix(1700000000, 0)
	in := map[string]Entry{}
	for _, s := range []string{"c", "a", "b", "d"} {
		in[s] = Entry{ID: s, Service: s, Cipher: []byte(s), CreatedAt: now, UpdatedAt: now, LastAccessedAt: now}
	}
	first, err := encodeEntries(in)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := encodeEntries(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDecodeEntries_Corrupt(t *testing.T) {
	good, err := encodeEntries(map[string]Entry{"x": {Service: "x", Cipher: []byte{1}}})
	require.NoError(t, err)

	master, err := encodeMaster(MasterRecord{Algorithm: hashAlgo, Hash: []byte{1}})
	require.NoError(t, err)

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 'X'
	badVersion := append([]byte(nil), good...)
	badVersion[4] = 0x7f

	cases := map[string][]byte{
		"empty":         {},
		"short header":  []byte("PWV"),
		"bad magic":     badMagic,
		"bad version":   badVersion,
		"wrong kind":    master,
		"truncated":     good[:len(good)-2],
		"garbage body":  append(encodeHeader(kindEntries), 0xff, 0x00, 0x13),
		"trailing data": append(append([]byte(nil), good...), 0x00),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeEntries(raw)
			assert.ErrorIs(t, err, ErrCorrupt)
			assert.ErrorIs(t, err, ErrPersistence)
		})
	}
}

func TestDecodeEntries_DuplicateService(t *testing.T) {
	body, err := encMode.Marshal(entriesDocument{Entries: []entryRecord{
		{ID: "1", Service: "github", Cipher: []byte{1}},
		{ID: "2", Service: "github", Cipher: []byte{2}},
	}})
	require.NoError(t, err)

	_, err = decodeEntries(append(encodeHeader(kindEntries), body...))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestMaster_EncodeDecode(t *testing.T) {
	in := MasterRecord{Algorithm: hashAlgo, Params: testParams, Salt: []byte("0123456789abcdef"), Hash: make([]byte, HashLen)}
	raw, err := encodeMaster(in)
	require.NoError(t, err)

	out, err := decodeMaster(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeMaster(raw[:headerLen])
	assert.ErrorIs(t, err, ErrCorrupt)
}
