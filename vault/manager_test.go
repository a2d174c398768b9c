package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_EndToEnd(t *testing.T) {
	m, entriesBlob, _ := newTestManager(t)
	master := []byte("Tr0ub4dor&3")

	require.NoError(t, m.Setup(master))
	sess, ok, err := m.Authenticate(master)
	require.NoError(t, err)
	require.True(t, ok)

	secret, err := m.Add("github", master, false)
	require.NoError(t, err)
	assert.Len(t, secret, DefaultSecretLength)
	assert.NotContains(t, string(entriesBlob.data), string(secret))

	got, err := m.Get("github", master)
	require.NoError(t, err)
	assert.Equal(t, secret, got)

	_, err = m.Get("github", []byte("wrong"))
	assert.ErrorIs(t, err, ErrAuthentication)

	_, err = m.Add("github", master, false)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	fresh, err := m.Update("github", master)
	require.NoError(t, err)
	assert.NotEqual(t, secret, fresh)
	got, err = m.Get("github", master)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	list, err := m.List(sess)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "github", list[0].Service)

	assert.ErrorIs(t, m.Delete("github", []byte("wrong")), ErrAuthentication)
	require.NoError(t, m.Delete("github", master))

	n, err := m.Count(sess)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = m.Get("github", master)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_GetTouchesAccess(t *testing.T) {
	m, _, _ := newTestManager(t)
	master := []byte("pw")
	require.NoError(t, m.Setup(master))
	sess, _, err := m.Authenticate(master)
	require.NoError(t, err)

	_, err = m.Add("github", master, false)
	require.NoError(t, err)
	before, err := m.List(sess)
	require.NoError(t, err)

	_, err = m.Get("github", master)
	require.NoError(t, err)
	after, err := m.List(sess)
	require.NoError(t, err)
	assert.True(t, after[0].LastAccessedAt.After(before[0].LastAccessedAt))

	// A rejected password does not count as an access.
	_, err = m.Get("github", []byte("nope"))
	require.Error(t, err)
	again, err := m.List(sess)
	require.NoError(t, err)
	assert.True(t, again[0].LastAccessedAt.Equal(after[0].LastAccessedAt))
}

func TestManager_LockedSession(t *testing.T) {
	m, _, _ := newTestManager(t)
	require.NoError(t, m.Setup([]byte("pw")))

	sess, ok, err := m.Authenticate([]byte("bad"))
	require.NoError(t, err)
	require.False(t, ok)

	_, err = m.List(sess)
	assert.ErrorIs(t, err, ErrLocked)
	_, err = m.Count(nil)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestManager_AddValidation(t *testing.T) {
	m, entriesBlob, _ := newTestManager(t)

	_, err := m.Add("", []byte("pw"), false)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, entriesBlob.writes)
}

func TestManager_AddFailedWrite(t *testing.T) {
	m, entriesBlob, _ := newTestManager(t)
	entriesBlob.writeErr = errDiskFull

	secret, err := m.Add("github", []byte("pw"), false)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Nil(t, secret)
}

func TestManager_SecretOptions(t *testing.T) {
	m := Open(&memBlob{}, &memBlob{}, testParams, Options{SecretLength: 24, IncludeSpecial: false})

	secret, err := m.Add("db", []byte("pw"), false)
	require.NoError(t, err)
	assert.Len(t, secret, 24)
	assert.NotContains(t, string(secret), "!")
}

func TestManager_SurvivesReopen(t *testing.T) {
	entries, master := &memBlob{}, &memBlob{}
	pw := []byte("Tr0ub4dor&3")

	m := Open(entries, master, testParams, DefaultOptions())
	require.NoError(t, m.Setup(pw))
	secret, err := m.Add("github", pw, false)
	require.NoError(t, err)

	reopened := Open(entries, master, testParams, DefaultOptions())
	exists, err := reopened.Exists()
	require.NoError(t, err)
	assert.True(t, exists)
	_, ok, err := reopened.Authenticate(pw)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := reopened.Get("github", pw)
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func TestManager_UpdateKeepsCreatedAt(t *testing.T) {
	m, _, _ := newTestManager(t)
	pw := []byte("pw")
	require.NoError(t, m.Setup(pw))
	sess, _, err := m.Authenticate(pw)
	require.NoError(t, err)

	_, err = m.Add("github", pw, false)
	require.NoError(t, err)
	before, err := m.List(sess)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	_, err = m.Update("github", pw)
	require.NoError(t, err)
	after, err := m.List(sess)
	require.NoError(t, err)

	assert.True(t, after[0].CreatedAt.Equal(before[0].CreatedAt))
	assert.True(t, after[0].UpdatedAt.After(before[0].UpdatedAt))
}
