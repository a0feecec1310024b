package zone

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestServerClientSyncData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "device-context.zone")

	srv, err := CreateServer(path, 64)
	if err != nil {
		t.Fatalf("CreateServer: %v", err)
	}
	defer srv.Close()

	cli, err := OpenClient(path, 64)
	if err != nil {
		t.Fatalf("OpenClient: %v", err)
	}
	defer cli.Close()

	// Before SyncData, the client should see the zeroed initial state.
	got, _ := cli.Read(0, 4)
	if !bytes.Equal(got, []byte{0, 0, 0, 0}) {
		t.Fatalf("expected zeroed zone before sync, got %v", got)
	}

	want := []byte{1, 2, 3, 4}
	if err := srv.Stage(0, want); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	// Staging alone must not be visible yet.
	got, _ = cli.Read(0, 4)
	if bytes.Equal(got, want) {
		t.Fatalf("staged data became visible before SyncData")
	}

	srv.SyncData()
	got, err = cli.Read(0, 4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v want %v after SyncData", got, want)
	}
}

func TestFilePathIsCollisionFree(t *testing.T) {
	a := FilePath("/cache", "device")
	b := FilePath("/cache", "device")
	if a == b {
		t.Fatalf("expected distinct zone file paths, got %q twice", a)
	}
}
