package storage

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnsureLocalFilesystem(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dbPath := filepath.Join(root, "nested", "dir", "history.db")

	cases := []struct {
		name    string
		fsType  string
		detErr  error
		wantErr string
	}{
		{name: "local", fsType: "0xef53"},
		{name: "apfs", fsType: "apfs"},
		{name: "nfs", fsType: "nfs", wantErr: `network filesystem "nfs"`},
		{name: "smb uppercase", fsType: "SMBFS", wantErr: "history.path"},
		{name: "undetectable", detErr: errors.New("unsupported")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var inspected string
			err := ensureLocalFilesystem(dbPath, func(p string) (string, error) {
				inspected = p
				return tc.fsType, tc.detErr
			})
			if inspected != root {
				t.Fatalf("inspected %q, want nearest existing %q", inspected, root)
			}
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}
