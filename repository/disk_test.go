package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tipee-sa/sherpa/cluster"
)

func testCluster(name string) *cluster.Cluster {
	c := cluster.New(name, "testing")
	c.Provider = "fake"
	c.SSH = cluster.SSHConfig{User: "ubuntu", KeyPair: "test-key", PrivateKeyPath: "/tmp/id_test"}
	lo.Must(c.AddGroup("compute", 1, "ubuntu-24.04", "m1.small", []string{"default"}))
	nodes := lo.Must(c.Grow("compute", 2))
	nodes[0].State = cluster.NodeStateRunningReachable
	nodes[0].InstanceID = "i-compute001"
	nodes[0].PublicIP = "203.0.113.1"
	return c
}

func TestDiskRoundTrip(t *testing.T) {
	repo, err := NewDisk(t.TempDir(), nil)
	require.NoError(t, err)

	saved := testCluster("alpine")
	require.NoError(t, repo.Save(saved))

	loaded, err := repo.Load("alpine")
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
	assert.Equal(t, 2, loaded.Groups["compute"].NextIndex, "the naming sequence must survive a reload")
	assert.True(t, repo.Exists("alpine"))
	assert.False(t, repo.Exists("everest"))
}

func TestDiskJSONCodec(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewDisk(dir, lo.Must(CodecByName("json")))
	require.NoError(t, err)

	saved := testCluster("alpine")
	require.NoError(t, repo.Save(saved))
	assert.FileExists(t, filepath.Join(dir, "alpine.json"))

	loaded, err := repo.Load("alpine")
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

// Cluster names become file names; anything that would resolve outside the
// storage directory is rejected before any path is built.
func TestDiskRejectsPathEscapingNames(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewDisk(dir, nil)
	require.NoError(t, err)

	for _, name := range []string{"", ".", "..", "../escape", "a/b", "nested/../../escape"} {
		c := testCluster("alpine")
		c.Name = name
		assert.ErrorIs(t, repo.Save(c), ErrInvalidName, "Save(%q)", name)

		_, err := repo.Load(name)
		assert.ErrorIs(t, err, ErrInvalidName, "Load(%q)", name)
		assert.ErrorIs(t, repo.Delete(name), ErrInvalidName, "Delete(%q)", name)

		_, err = repo.Lock(name)
		assert.ErrorIs(t, err, ErrInvalidName, "Lock(%q)", name)
	}

	entries := lo.Must(os.ReadDir(dir))
	assert.Empty(t, entries, "nothing may be written for a rejected name")
}

// An existing snapshot keeps its encoding even when the repository is later
// opened with a different default codec.
func TestDiskCodecIsSticky(t *testing.T) {
	dir := t.TempDir()
	jsonRepo := lo.Must(NewDisk(dir, lo.Must(CodecByName("json"))))
	require.NoError(t, jsonRepo.Save(testCluster("alpine")))

	gobRepo := lo.Must(NewDisk(dir, nil))
	c := lo.Must(gobRepo.Load("alpine"))
	c.SSH.User = "debian"
	require.NoError(t, gobRepo.Save(c))

	assert.FileExists(t, filepath.Join(dir, "alpine.json"))
	assert.NoFileExists(t, filepath.Join(dir, "alpine.gob"))
	assert.Equal(t, "debian", lo.Must(gobRepo.Load("alpine")).SSH.User)
}

func TestDiskLoadMissing(t *testing.T) {
	repo := lo.Must(NewDisk(t.TempDir(), nil))
	_, err := repo.Load("everest")
	assert.ErrorIs(t, err, ErrClusterNotFound)
}

func TestDiskCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	repo := lo.Must(NewDisk(dir, nil))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alpine.gob"), []byte("not a snapshot"), 0600))

	_, err := repo.Load("alpine")
	var readErr *ReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, "alpine", readErr.Name)
}

func TestDiskSnapshotNameMismatch(t *testing.T) {
	dir := t.TempDir()
	repo := lo.Must(NewDisk(dir, nil))
	require.NoError(t, repo.Save(testCluster("alpine")))
	require.NoError(t, os.Rename(filepath.Join(dir, "alpine.gob"), filepath.Join(dir, "everest.gob")))

	_, err := repo.Load("everest")
	var readErr *ReadError
	require.ErrorAs(t, err, &readErr)
}

func TestDiskLoadAll(t *testing.T) {
	dir := t.TempDir()
	repo := lo.Must(NewDisk(dir, nil))
	require.NoError(t, repo.Save(testCluster("alpine")))

	jsonRepo := lo.Must(NewDisk(dir, lo.Must(CodecByName("json"))))
	require.NoError(t, jsonRepo.Save(testCluster("everest")))

	// Companion files must not be mistaken for snapshots.
	require.NoError(t, os.WriteFile(repo.KnownHostsPath("alpine"), []byte("host key\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alpine.lock"), []byte("1\n"), 0600))

	clusters, err := repo.LoadAll()
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	names := lo.Map(clusters, func(c *cluster.Cluster, _ int) string { return c.Name })
	assert.ElementsMatch(t, []string{"alpine", "everest"}, names)
}

func TestDiskDelete(t *testing.T) {
	dir := t.TempDir()
	repo := lo.Must(NewDisk(dir, nil))
	require.NoError(t, repo.Save(testCluster("alpine")))
	require.NoError(t, os.WriteFile(repo.KnownHostsPath("alpine"), []byte("host key\n"), 0600))

	require.NoError(t, repo.Delete("alpine"))
	assert.False(t, repo.Exists("alpine"))
	assert.NoFileExists(t, repo.KnownHostsPath("alpine"))

	assert.ErrorIs(t, repo.Delete("alpine"), ErrClusterNotFound)
}

func TestDiskLock(t *testing.T) {
	repo := lo.Must(NewDisk(t.TempDir(), nil))

	release, err := repo.Lock("alpine")
	require.NoError(t, err)

	_, err = repo.Lock("alpine")
	assert.ErrorIs(t, err, ErrClusterLocked)

	// A different cluster is not affected.
	otherRelease, err := repo.Lock("everest")
	require.NoError(t, err)
	otherRelease()

	release()
	release, err = repo.Lock("alpine")
	require.NoError(t, err)
	release()
}
