package service

import (
	"context"
	"testing"

	"bitwise74/fileshare-api/model"
)

func TestStatsOverview(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	files, _, sharing := newFiles(t, conn)
	stats := NewStats(conn)
	ctx := context.Background()

	alice := mustUser(t, conn, "st1", "alice@x.com", model.RoleUser)
	bob := mustUser(t, conn, "st2", "bob@x.com", model.RoleUser)
	mustUser(t, conn, "st3", "root@x.com", model.RoleAdmin)

	for _, name := range []string{"a1.txt", "a2.txt", "a3.txt"} {
		if _, err := files.Upload(ctx, alice.ID, name, "text/plain", []byte(name)); err != nil {
			t.Fatalf("Upload error: %v", err)
		}
	}
	if _, err := files.Upload(ctx, bob.ID, "b1.txt", "text/plain", []byte("b")); err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	if _, err := sharing.Share(ctx, alice.ID, "a1.txt", bob.Email, model.PermissionView); err != nil {
		t.Fatalf("Share error: %v", err)
	}
	if _, err := sharing.Share(ctx, alice.ID, "a2.txt", bob.Email, model.PermissionViewDownload); err != nil {
		t.Fatalf("Share error: %v", err)
	}

	out, err := stats.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview error: %v", err)
	}

	if out.TotalUploads != 4 {
		t.Fatalf("got %d total uploads, want 4", out.TotalUploads)
	}
	if out.TotalShares != 2 {
		t.Fatalf("got %d total shares, want 2", out.TotalShares)
	}

	if len(out.UploadsPerUser) != 2 {
		t.Fatalf("got %d upload rollup rows, want 2 (admins excluded)", len(out.UploadsPerUser))
	}
	if out.UploadsPerUser[0].Email != "alice@x.com" || out.UploadsPerUser[0].Count != 3 {
		t.Fatalf("expected alice first with 3 uploads, got %+v", out.UploadsPerUser[0])
	}
	if out.UploadsPerUser[1].Email != "bob@x.com" || out.UploadsPerUser[1].Count != 1 {
		t.Fatalf("expected bob second with 1 upload, got %+v", out.UploadsPerUser[1])
	}

	if out.SharesPerUser[0].Email != "alice@x.com" || out.SharesPerUser[0].Count != 2 {
		t.Fatalf("expected alice first with 2 shares, got %+v", out.SharesPerUser[0])
	}
	if out.SharesPerUser[1].Email != "bob@x.com" || out.SharesPerUser[1].Count != 0 {
		t.Fatalf("expected bob second with 0 shares, got %+v", out.SharesPerUser[1])
	}
}

func TestStatsOverviewEmpty(t *testing.T) {
	t.Parallel()

	stats := NewStats(newTestDB(t))

	out, err := stats.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview error: %v", err)
	}
	if out.TotalUploads != 0 || out.TotalShares != 0 {
		t.Fatalf("expected zero totals, got %+v", out)
	}
}
