package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// SaleMail renders a vendor sale notification in the on-disk mail format.
func SaleMail(id string, ts int64, vendor, item, customer string, amount int64) string {
	return strings.Join([]string{
		id,
		"SWG.Galaxy.auctioner",
		"Vendor Sale Complete",
		fmt.Sprintf("TIMESTAMP: %d", ts),
		fmt.Sprintf("Vendor: %s has sold %s to %s for %d credits.", vendor, item, customer, amount),
		"The sale took place at Mos Eisley, on Tatooine.",
	}, "\n") + "\n"
}

// PurchaseMail renders an auction purchase notification.
func PurchaseMail(id string, ts int64, item, vendor string, amount int64) string {
	return strings.Join([]string{
		id,
		"SWG.Galaxy.auctioner",
		"Vendor Item Purchased",
		fmt.Sprintf("TIMESTAMP: %d", ts),
		fmt.Sprintf("You have won the auction of %q from %q for %d credits.", item, vendor, amount),
		"The sale took place at Bestine, on Tatooine.",
	}, "\n") + "\n"
}

// WriteMail writes content to dir/name, creating parent directories, and
// returns the path.
func WriteMail(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
